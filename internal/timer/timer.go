// Package timer schedules a single execution trigger per market shortly
// before its close time. It is a pure time predicate: polling returns the
// markets whose trigger instant has passed, and the caller is responsible
// for executing and then removing the entry.
package timer

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
)

// ErrTooLate means the trigger instant was already in the past at
// registration time. The entry is rejected instead of firing immediately:
// the lead-time guarantee no longer holds.
var ErrTooLate = errors.New("timer: too late to execute")

// Entry is one armed countdown: the market, the instant to fire, and a
// snapshot of the opportunity needed to execute.
type Entry struct {
	MarketID    string
	ExecuteAt   time.Time
	Opportunity domain.Opportunity
}

// Timer tracks at most one armed entry per market id. All mutation happens
// from the orchestration loop's tick; the mutex covers concurrent readers
// like the monitoring surface.
type Timer struct {
	lead time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
}

// New creates a Timer that fires lead before each market's close time.
func New(lead time.Duration) *Timer {
	return &Timer{
		lead:    lead,
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Start arms a countdown for the market: trigger = closeTime - lead.
// Re-arming an already-armed market is a no-op, preventing duplicate
// capital commitment. Returns ErrTooLate if the trigger is already past.
func (t *Timer) Start(marketID string, opp domain.Opportunity, closeTime time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[marketID]; ok {
		return nil // already armed
	}

	executeAt := closeTime.Add(-t.lead)
	if !executeAt.After(t.now()) {
		return fmt.Errorf("%w: market %s closes in %.0fs",
			ErrTooLate, marketID, closeTime.Sub(t.now()).Seconds())
	}

	t.entries[marketID] = Entry{
		MarketID:    marketID,
		ExecuteAt:   executeAt,
		Opportunity: opp,
	}
	slog.Info("timer: armed",
		"market", marketID,
		"execute_in", t.now().Sub(executeAt).Abs().Round(time.Second),
	)
	return nil
}

// Due returns the market ids whose trigger instant has passed, sorted for
// deterministic processing. It does not execute or remove anything.
func (t *Timer) Due() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var ready []string
	for id, e := range t.entries {
		if !now.Before(e.ExecuteAt) {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)
	return ready
}

// Get returns the armed entry for a market, if any.
func (t *Timer) Get(marketID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[marketID]
	return e, ok
}

// Armed reports whether the market currently has an armed entry.
func (t *Timer) Armed(marketID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[marketID]
	return ok
}

// Remove deletes the entry after execution was attempted. A fired timer is
// spent regardless of execution success, so no market is retried forever.
func (t *Timer) Remove(marketID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[marketID]; ok {
		delete(t.entries, marketID)
		slog.Debug("timer: removed", "market", marketID)
	}
}

// Len returns the number of armed entries.
func (t *Timer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
