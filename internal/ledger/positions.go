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

// Book tracks every position ever opened. Positions are never deleted, only
// transitioned (OPEN → SETTLED | FAILED), so the full history stays
// auditable.
type Book struct {
	mu           sync.Mutex
	maxPositions int
	positions    map[string]*domain.Position
}

// NewBook creates a position book with the given open-position limit.
func NewBook(maxPositions int) *Book {
	return &Book{
		maxPositions: maxPositions,
		positions:    make(map[string]*domain.Position),
	}
}

// NewPositionID genera un id único para una posición del mercado dado.
// uuid en vez de timestamp: ids derivados de wall-clock colisionan bajo
// llamadas rápidas dentro del mismo segundo.
func NewPositionID(marketID string) string {
	return marketID + "-" + uuid.New().String()[:8]
}

// Create opens a position from an opportunity snapshot.
func (b *Book) Create(id string, opp domain.Opportunity, shares, allocatedCapital, expectedProfit float64) domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos := domain.Position{
		ID:               id,
		MarketID:         opp.MarketID,
		Slug:             opp.Slug,
		Question:         opp.Question,
		TokenIDYes:       opp.TokenIDYes,
		TokenIDNo:        opp.TokenIDNo,
		WinningTokenID:   opp.WinningTokenID,
		Shares:           shares,
		EntryPrice:       opp.Price,
		AllocatedCapital: allocatedCapital,
		ExpectedProfit:   expectedProfit,
		EdgePercent:      opp.EdgePercent,
		CloseTime:        opp.CloseTime,
		Status:           domain.PositionOpen,
		OpenedAt:         time.Now().UTC(),
	}
	b.positions[id] = &pos

	slog.Info("ledger: position created",
		"position", id,
		"shares", fmt.Sprintf("%.4f", shares),
		"entry", fmt.Sprintf("$%.4f", opp.Price),
		"expected_profit", fmt.Sprintf("$%.2f", expectedProfit),
	)
	return pos
}

// Settle transitions an open position to SETTLED and records the realized
// PnL. Terminal positions cannot be settled again.
func (b *Book) Settle(id string, settlementPrice float64) (domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[id]
	if !ok || pos.IsTerminal() {
		return domain.Position{}, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}

	now := time.Now().UTC()
	pos.SettlementPrice = settlementPrice
	pos.RealizedPnL = pos.PnLAt(settlementPrice)
	pos.SettledAt = &now
	pos.Status = domain.PositionSettled
	return *pos, nil
}

// Fail transitions an open position to FAILED (allocation or settlement
// error path).
func (b *Book) Fail(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[id]
	if !ok || pos.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	pos.Status = domain.PositionFailed
	slog.Warn("ledger: position failed", "position", id)
	return nil
}

// Get returns a copy of the position, if it exists.
func (b *Book) Get(id string) (domain.Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[id]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// Open returns all open positions sorted by open time.
func (b *Book) Open() []domain.Position {
	return b.byStatus(domain.PositionOpen)
}

// Settled returns all settled positions sorted by open time.
func (b *Book) Settled() []domain.Position {
	return b.byStatus(domain.PositionSettled)
}

// All returns every position ever opened, sorted by open time.
func (b *Book) All() []domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, *p)
	}
	sortByOpenedAt(out)
	return out
}

// OpenCount returns the number of open positions.
func (b *Book) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.positions {
		if p.Status == domain.PositionOpen {
			n++
		}
	}
	return n
}

// CanOpen es el predicado puro de capacidad: open < max.
func (b *Book) CanOpen() bool {
	return b.OpenCount() < b.maxPositions
}

// AllocatedCapital returns the capital committed to open positions.
func (b *Book) AllocatedCapital() float64 {
	total := 0.0
	for _, p := range b.Open() {
		total += p.AllocatedCapital
	}
	return total
}

func (b *Book) byStatus(status domain.PositionStatus) []domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Position
	for _, p := range b.positions {
		if p.Status == status {
			out = append(out, *p)
		}
	}
	sortByOpenedAt(out)
	return out
}

func sortByOpenedAt(positions []domain.Position) {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].OpenedAt.Equal(positions[j].OpenedAt) {
			return positions[i].ID < positions[j].ID
		}
		return positions[i].OpenedAt.Before(positions[j].OpenedAt)
	})
}
