package domain

import "time"

// PositionStatus represents the lifecycle of a position.
// Terminal states (SETTLED, FAILED) are never reopened.
type PositionStatus string

const (
	PositionOpen    PositionStatus = "OPEN"
	PositionSettled PositionStatus = "SETTLED"
	PositionFailed  PositionStatus = "FAILED"
)

// Position is the ledger's record of capital committed to one opportunity.
// Created by the buy path, mutated exactly once at settlement, never deleted.
type Position struct {
	ID               string
	MarketID         string
	Slug             string
	Question         string
	TokenIDYes       string
	TokenIDNo        string
	WinningTokenID   string
	Shares           float64
	EntryPrice       float64
	AllocatedCapital float64
	ExpectedProfit   float64
	EdgePercent      float64
	CloseTime        time.Time // cierre del mercado, no de la posición
	Status           PositionStatus
	OpenedAt         time.Time
	SettledAt        *time.Time
	SettlementPrice  float64 // valid once Status == SETTLED
	RealizedPnL      float64 // valid once Status == SETTLED
}

// IsTerminal devuelve true si la posición está en un estado final.
func (p Position) IsTerminal() bool {
	return p.Status == PositionSettled || p.Status == PositionFailed
}

// PnLAt devuelve el PnL que realizaría la posición al precio de settlement dado.
func (p Position) PnLAt(settlementPrice float64) float64 {
	return (settlementPrice - p.EntryPrice) * p.Shares
}
