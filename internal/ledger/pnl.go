package ledger

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/google/uuid"
)

// PnLTracker tracks realized PnL, balance evolution, and drawdown across the
// ledger's lifetime. Max drawdown is monotonically non-decreasing even when
// the current drawdown resets to 0 after a new peak.
type PnLTracker struct {
	mu              sync.Mutex
	initialBalance  float64
	currentBalance  float64
	peakBalance     float64
	maxDrawdown     float64
	currentDrawdown float64
	trades          []*domain.TradeRecord
	open            map[string]*domain.TradeRecord // positionID → open trade
}

// NewPnLTracker creates a tracker seeded with the initial balance.
func NewPnLTracker(initialBalance float64) *PnLTracker {
	return &PnLTracker{
		initialBalance: initialBalance,
		currentBalance: initialBalance,
		peakBalance:    initialBalance,
		open:           make(map[string]*domain.TradeRecord),
	}
}

// OpenTrade records the entry side of a position and returns the trade id.
func (t *PnLTracker) OpenTrade(positionID, marketID string, quantity, entryPrice float64) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	trade := &domain.TradeRecord{
		ID:         positionID + "-" + uuid.New().String()[:8],
		PositionID: positionID,
		MarketID:   marketID,
		Side:       "BUY",
		Quantity:   quantity,
		EntryPrice: entryPrice,
		OpenedAt:   time.Now().UTC(),
	}
	t.open[positionID] = trade
	t.trades = append(t.trades, trade)

	slog.Debug("pnl: trade opened",
		"trade", trade.ID,
		"quantity", fmt.Sprintf("%.4f", quantity),
		"entry", fmt.Sprintf("$%.4f", entryPrice),
	)
	return trade.ID
}

// CloseTrade settles the open trade for a position at the settlement price
// and returns the realized PnL. Updates balance, peak, and drawdown.
func (t *PnLTracker) CloseTrade(positionID string, settlementPrice float64) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	trade, ok := t.open[positionID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPosition, positionID)
	}

	pnl := (settlementPrice - trade.EntryPrice) * trade.Quantity
	pnlPercent := 0.0
	if cost := trade.EntryPrice * trade.Quantity; cost > 0 {
		pnlPercent = pnl / cost * 100
	}

	now := time.Now().UTC()
	trade.ExitPrice = settlementPrice
	trade.ClosedAt = &now
	trade.PnL = pnl
	trade.PnLPercent = pnlPercent

	t.currentBalance += pnl
	if t.currentBalance > t.peakBalance {
		t.peakBalance = t.currentBalance
		t.currentDrawdown = 0
	} else {
		t.currentDrawdown = (t.peakBalance - t.currentBalance) / t.peakBalance * 100
		if t.currentDrawdown > t.maxDrawdown {
			t.maxDrawdown = t.currentDrawdown
		}
	}

	delete(t.open, positionID)

	if pnl >= 0 {
		slog.Info("pnl: trade settled (WIN)",
			"position", positionID,
			"pnl", fmt.Sprintf("$%.2f", pnl),
			"pnl_pct", fmt.Sprintf("%.2f%%", pnlPercent),
		)
	} else {
		slog.Warn("pnl: trade settled (LOSS)",
			"position", positionID,
			"pnl", fmt.Sprintf("$%.2f", pnl),
			"pnl_pct", fmt.Sprintf("%.2f%%", pnlPercent),
		)
	}
	return pnl, nil
}

// Summary computes the aggregate statistics over all closed trades.
// Profit factor is 0 when there are no losing trades.
func (t *PnLTracker) Summary() domain.PnLSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := domain.PnLSummary{
		InitialBalance:  t.initialBalance,
		CurrentBalance:  t.currentBalance,
		PeakBalance:     t.peakBalance,
		MaxDrawdown:     t.maxDrawdown,
		CurrentDrawdown: t.currentDrawdown,
	}

	var totalProfit, totalLoss float64
	for _, trade := range t.trades {
		if !trade.Closed() {
			continue
		}
		summary.TotalTrades++
		summary.TotalPnL += trade.PnL
		if trade.PnL > 0 {
			summary.Wins++
			totalProfit += trade.PnL
		} else {
			summary.Losses++
			totalLoss += -trade.PnL
		}
	}

	if summary.TotalTrades > 0 {
		summary.WinRate = float64(summary.Wins) / float64(summary.TotalTrades) * 100
	}
	if summary.Wins > 0 {
		summary.AverageWin = totalProfit / float64(summary.Wins)
	}
	if summary.Losses > 0 {
		summary.AverageLoss = -totalLoss / float64(summary.Losses)
	}
	if totalLoss > 0 {
		summary.ProfitFactor = totalProfit / totalLoss
	}
	return summary
}

// History returns the closed trades, newest first. limit ≤ 0 means all.
func (t *PnLTracker) History(limit int) []domain.TradeRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var closed []domain.TradeRecord
	for _, trade := range t.trades {
		if trade.Closed() {
			closed = append(closed, *trade)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].ClosedAt.After(*closed[j].ClosedAt)
	})
	if limit > 0 && len(closed) > limit {
		closed = closed[:limit]
	}
	return closed
}

// EquityCurve returns the balance after each closed trade, oldest first.
func (t *PnLTracker) EquityCurve() []domain.EquityPoint {
	t.mu.Lock()
	defer t.mu.Unlock()

	var closed []*domain.TradeRecord
	for _, trade := range t.trades {
		if trade.Closed() {
			closed = append(closed, trade)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].ClosedAt.Before(*closed[j].ClosedAt)
	})

	points := make([]domain.EquityPoint, 0, len(closed))
	balance := t.initialBalance
	for _, trade := range closed {
		balance += trade.PnL
		points = append(points, domain.EquityPoint{
			Timestamp: *trade.ClosedAt,
			Balance:   balance,
			PnL:       trade.PnL,
			TradeID:   trade.ID,
		})
	}
	return points
}

// Balance returns the running balance including all realized PnL.
func (t *PnLTracker) Balance() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentBalance
}
