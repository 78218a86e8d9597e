package domain

import "time"

// OpportunityStatus represents the lifecycle of a detected opportunity.
type OpportunityStatus string

const (
	OpportunityDetected OpportunityStatus = "DETECTED"
	OpportunityExecuted OpportunityStatus = "EXECUTED"
	OpportunityFailed   OpportunityStatus = "FAILED"
	OpportunitySettled  OpportunityStatus = "SETTLED"
)

// Opportunity is a market whose winning token trades inside the settlement
// threshold band. Immutable once created except for Status transitions.
type Opportunity struct {
	MarketID       string
	Slug           string
	Question       string
	Category       Category
	TokenIDYes     string
	TokenIDNo      string
	WinningTokenID string    // token priced above the threshold
	Price          float64   // current price of the winning token, 0.0–1.0
	EdgePercent    float64   // (1.00 - Price) × 100
	SecondsToClose float64
	CloseTime      time.Time
	DetectedAt     time.Time
	Status         OpportunityStatus
}

// ExpectedProfit devuelve el profit esperado si el token gana ($1.00/share)
// para la cantidad de shares dada.
func (o Opportunity) ExpectedProfit(shares float64) float64 {
	return shares * (1.0 - o.Price)
}

// Shares devuelve cuántas shares compra el capital dado al precio actual.
func (o Opportunity) Shares(capital float64) float64 {
	if o.Price <= 0 {
		return 0
	}
	return capital / o.Price
}
