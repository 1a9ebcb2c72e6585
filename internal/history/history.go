// Package history exports worker lifecycle events to external stores for
// audit and fleet monitoring. Export is best-effort: the supervisor logs sink
// failures and carries on.
package history

import (
	"context"
	"time"
)

// EventType is the kind of lifecycle event.
type EventType string

const (
	EventStart EventType = "start"
	EventStop  EventType = "stop"
)

// Event is one lifecycle transition of a supervised worker.
type Event struct {
	Type       EventType `json:"type"`
	Runner     string    `json:"runner"` // worker working directory
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink is a destination for lifecycle events. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
