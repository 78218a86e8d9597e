package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultCooldown = 5 * time.Minute

// Manager deduplicates and dispatches alerts. Similar alerts (same type and
// message) inside the cooldown window are dropped so a flapping condition
// cannot flood the channels.
type Manager struct {
	mu       sync.Mutex
	senders  []Sender
	minSend  Severity // below this, alerts are only logged
	cooldown time.Duration
	history  []sentRecord
	now      func() time.Time
}

type sentRecord struct {
	typ     Type
	message string
	at      time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCooldown overrides the dedup window.
func WithCooldown(d time.Duration) Option {
	return func(m *Manager) { m.cooldown = d }
}

// WithMinSeverity sets the minimum severity dispatched to senders.
func WithMinSeverity(s Severity) Option {
	return func(m *Manager) { m.minSend = s }
}

// NewManager creates a Manager dispatching to the given senders.
func NewManager(senders []Sender, opts ...Option) *Manager {
	m := &Manager{
		senders:  senders,
		minSend:  SeverityWarning,
		cooldown: defaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Emit logs the event and dispatches it to the senders if its severity
// qualifies and it is not rate limited.
func (m *Manager) Emit(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = m.now().UTC()
	}

	m.log(e)

	if !m.shouldSend(e) {
		slog.Debug("alert: rate limited", "type", string(e.Type))
		return
	}
	if e.Severity < m.minSend {
		return
	}

	for _, s := range m.senders {
		if err := s.Send(ctx, e); err != nil {
			slog.Warn("alert: sender failed", "type", string(e.Type), "err", err)
		}
	}
}

// shouldSend tracks the event and reports whether a similar one already
// went out inside the cooldown window.
func (m *Manager) shouldSend(e Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	fresh := m.history[:0]
	for _, r := range m.history {
		if now.Sub(r.at) < m.cooldown {
			fresh = append(fresh, r)
		}
	}
	m.history = fresh

	for _, r := range m.history {
		if r.typ == e.Type && r.message == e.Message {
			return false
		}
	}
	m.history = append(m.history, sentRecord{typ: e.Type, message: e.Message, at: now})
	return true
}

func (m *Manager) log(e Event) {
	attrs := []any{"type", string(e.Type), "title", e.Title}
	for k, v := range e.Data {
		attrs = append(attrs, k, v)
	}
	switch e.Severity {
	case SeverityCritical, SeverityError:
		slog.Error(e.Message, attrs...)
	case SeverityWarning:
		slog.Warn(e.Message, attrs...)
	default:
		slog.Info(e.Message, attrs...)
	}
}

// --- typed helpers, one per event the core emits ---

// OpportunityDetected announces a market entering the threshold band.
func (m *Manager) OpportunityDetected(ctx context.Context, marketSlug string, price, edge, secondsToClose float64) {
	m.Emit(ctx, Event{
		Type:     TypeOpportunityDetected,
		Severity: SeverityInfo,
		Title:    "Arbitrage opportunity: " + marketSlug,
		Message:  fmt.Sprintf("opportunity detected: %s @ $%.4f (edge %.2f%%, closes in %.0fs)", marketSlug, price, edge, secondsToClose),
		Data: map[string]any{
			"market": marketSlug,
			"price":  price,
			"edge":   edge,
			"closes": secondsToClose,
		},
	})
}

// PositionOpened announces a filled simulated buy.
func (m *Manager) PositionOpened(ctx context.Context, positionID, marketSlug string, shares, price float64) {
	m.Emit(ctx, Event{
		Type:     TypePositionOpened,
		Severity: SeverityInfo,
		Title:    "Position opened: " + positionID,
		Message:  fmt.Sprintf("position opened: %s — %.4f shares @ $%.4f", positionID, shares, price),
		Data: map[string]any{
			"position": positionID,
			"market":   marketSlug,
			"shares":   shares,
			"price":    price,
		},
	})
}

// PositionClosed announces a settlement; losses are warnings.
func (m *Manager) PositionClosed(ctx context.Context, positionID, marketSlug string, exitPrice, pnl float64) {
	sev := SeverityInfo
	title := "Position settled (WIN): " + positionID
	if pnl < 0 {
		sev = SeverityWarning
		title = "Position settled (LOSS): " + positionID
	}
	m.Emit(ctx, Event{
		Type:     TypePositionClosed,
		Severity: sev,
		Title:    title,
		Message:  fmt.Sprintf("position settled: %s — exit $%.4f, pnl $%.2f", positionID, exitPrice, pnl),
		Data: map[string]any{
			"position": positionID,
			"market":   marketSlug,
			"exit":     exitPrice,
			"pnl":      pnl,
		},
	})
	if pnl < 0 {
		m.Emit(ctx, Event{
			Type:     TypePositionLoss,
			Severity: SeverityWarning,
			Title:    "Position loss: " + positionID,
			Message:  fmt.Sprintf("position loss: %s — -$%.2f on %s", positionID, -pnl, marketSlug),
			Data: map[string]any{
				"position": positionID,
				"market":   marketSlug,
				"loss":     pnl,
			},
		})
	}
}

// SystemStart announces the bot starting.
func (m *Manager) SystemStart(ctx context.Context) {
	m.Emit(ctx, Event{
		Type:     TypeSystemStart,
		Severity: SeverityInfo,
		Title:    "System started",
		Message:  "settlebot started",
	})
}

// SystemStop announces the bot stopping.
func (m *Manager) SystemStop(ctx context.Context, reason string) {
	msg := "settlebot stopped"
	if reason != "" {
		msg += ": " + reason
	}
	m.Emit(ctx, Event{
		Type:     TypeSystemStop,
		Severity: SeverityInfo,
		Title:    "System stopped",
		Message:  msg,
	})
}

// SystemError reports a loop-level failure that was contained.
func (m *Manager) SystemError(ctx context.Context, where string, err error) {
	m.Emit(ctx, Event{
		Type:     TypeSystemError,
		Severity: SeverityError,
		Title:    "System error",
		Message:  fmt.Sprintf("system error in %s: %v", where, err),
		Data: map[string]any{
			"context": where,
			"err":     err.Error(),
		},
	})
}
