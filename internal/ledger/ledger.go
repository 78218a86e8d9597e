// Package ledger holds the simulated capital: cash balance, per-position
// allocations, the position book, and realized PnL statistics.
//
// Conservation law: allocated capital of open positions + available balance
// always equals the capital ever put into the system (starting balance plus
// realized PnL returned at settlement). Balance changes only via allocation
// (−) or settlement return (+).
package ledger

import (
	"fmt"
	"log/slog"
	"sync"
)

// Allocation is the per-position record of capital taken from the shared
// balance and capital returned at settlement.
type Allocation struct {
	PositionID string
	MarketID   string
	Allocated  float64
	Returned   float64
	Closed     bool
}

// Ledger tracks the simulated cash balance and per-position allocations.
// All mutation must happen from the orchestration loop; the mutex only
// protects read-only snapshots taken by the dashboard.
type Ledger struct {
	mu           sync.Mutex
	starting     float64
	balance      float64
	deployed     float64
	split        float64 // capital fraction of starting balance per position
	maxPositions int
	allocations  map[string]*Allocation
}

// New creates a Ledger with the given starting balance, capital split
// fraction and open-position limit.
func New(startingBalance, splitFraction float64, maxPositions int) *Ledger {
	slog.Info("ledger: initialized",
		"starting_balance", fmt.Sprintf("$%.2f", startingBalance),
		"split", fmt.Sprintf("%.0f%%", splitFraction*100),
		"max_positions", maxPositions,
	)
	return &Ledger{
		starting:     startingBalance,
		balance:      startingBalance,
		split:        splitFraction,
		maxPositions: maxPositions,
		allocations:  make(map[string]*Allocation),
	}
}

// PositionSize devuelve el capital por posición: fracción fija del balance
// INICIAL, no del actual, para que la exposición total quede acotada incluso
// en drawdown.
func (l *Ledger) PositionSize() float64 {
	return l.starting * l.split
}

// Allocate commits capital to a position. The committed amount is capped to
// the fixed per-position size, so caller drift cannot over-allocate.
// Returns the amount actually committed.
func (l *Ledger) Allocate(positionID, marketID string, amount float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// El límite de posiciones se comprueba antes que el balance: con las N
	// posiciones abiertas la respuesta es "sin hueco", tenga o no fondos.
	if l.openCountLocked() >= l.maxPositions {
		return 0, fmt.Errorf("%w: %d open", ErrCapacityExceeded, l.openCountLocked())
	}
	if l.balance < amount {
		return 0, fmt.Errorf("%w: have $%.2f, need $%.2f",
			ErrInsufficientBalance, l.balance, amount)
	}

	committed := min(amount, l.PositionSize())

	l.allocations[positionID] = &Allocation{
		PositionID: positionID,
		MarketID:   marketID,
		Allocated:  committed,
	}
	l.balance -= committed
	l.deployed += committed

	slog.Info("ledger: allocated",
		"position", positionID,
		"amount", fmt.Sprintf("$%.2f", committed),
		"balance", fmt.Sprintf("$%.2f", l.balance),
		"deployed", fmt.Sprintf("$%.2f", l.deployed),
	)
	return committed, nil
}

// Return releases a settled position's payout back to the balance and closes
// its allocation record. The returned amount may be zero (losing token).
// A closed allocation cannot be returned again: crediting the balance twice
// would break the conservation law.
func (l *Ledger) Return(positionID string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	alloc, ok := l.allocations[positionID]
	if !ok || alloc.Closed {
		return fmt.Errorf("%w: %s", ErrUnknownPosition, positionID)
	}

	alloc.Returned = amount
	alloc.Closed = true
	l.balance += amount
	l.deployed -= alloc.Allocated

	slog.Info("ledger: returned",
		"position", positionID,
		"amount", fmt.Sprintf("$%.2f", amount),
		"balance", fmt.Sprintf("$%.2f", l.balance),
	)
	return nil
}

// CanOpen devuelve true si queda un slot de posición libre.
func (l *Ledger) CanOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openCountLocked() < l.maxPositions
}

// StartingBalance returns the balance the ledger was created with.
func (l *Ledger) StartingBalance() float64 {
	return l.starting
}

// Balance returns the current available balance.
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Deployed returns the capital currently committed to open positions.
func (l *Ledger) Deployed() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deployed
}

// Available returns the balance available for new positions.
func (l *Ledger) Available() float64 {
	return l.Balance()
}

// OpenAllocations returns the number of allocation records not yet closed.
func (l *Ledger) OpenAllocations() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openCountLocked()
}

// Allocation returns a copy of the allocation record for the position.
func (l *Ledger) Allocation(positionID string) (Allocation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	alloc, ok := l.allocations[positionID]
	if !ok {
		return Allocation{}, false
	}
	return *alloc, true
}

func (l *Ledger) openCountLocked() int {
	n := 0
	for _, a := range l.allocations {
		if !a.Closed {
			n++
		}
	}
	return n
}
