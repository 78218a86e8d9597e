// Package alert creates and dispatches typed event notifications. Delivery
// is fire-and-forget: a failed sender is logged and never fatal to the
// trading loop.
package alert

import (
	"context"
	"time"
)

// Type identifies the event an alert carries.
type Type string

const (
	TypeOpportunityDetected Type = "opportunity_detected"
	TypePositionOpened      Type = "position_opened"
	TypePositionClosed      Type = "position_closed"
	TypePositionLoss        Type = "position_loss"
	TypeSystemStart         Type = "system_start"
	TypeSystemStop          Type = "system_stop"
	TypeSystemError         Type = "system_error"
)

// Severity levels, ordered.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

// Event is one alert with its structured payload.
type Event struct {
	Type     Type
	Severity Severity
	Title    string
	Message  string
	Data     map[string]any
	At       time.Time
}

// Sender delivers events to an external channel (webhook, console, …).
type Sender interface {
	Send(ctx context.Context, e Event) error
}
