package domain

import "time"

// TradeRecord is a flattened ledger entry used purely for statistics.
// Derived from position settlement, never independently created.
type TradeRecord struct {
	ID         string
	PositionID string
	MarketID   string
	Side       string // "BUY"
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64 // settlement price; zero while the trade is open
	OpenedAt   time.Time
	ClosedAt   *time.Time
	PnL        float64
	PnLPercent float64
}

// Closed devuelve true si el trade ya tiene precio de salida.
func (t TradeRecord) Closed() bool {
	return t.ClosedAt != nil
}

// PnLSummary is the aggregate statistics over all closed trades.
type PnLSummary struct {
	TotalTrades     int
	Wins            int
	Losses          int
	TotalPnL        float64
	WinRate         float64 // percent
	AverageWin      float64
	AverageLoss     float64
	ProfitFactor    float64 // 0 when there are no losing trades
	MaxDrawdown     float64 // percent, monotonically non-decreasing
	CurrentDrawdown float64 // percent, 0 while at peak
	PeakBalance     float64
	InitialBalance  float64
	CurrentBalance  float64
}

// EquityPoint is one sample of the balance curve after a trade closed.
type EquityPoint struct {
	Timestamp time.Time
	Balance   float64
	PnL       float64
	TradeID   string
}
