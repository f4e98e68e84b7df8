// Package audit publishes the outcome of every prediction attempt to an
// optional sink. The NATS publisher emits one JSON message per attempt and
// carries the trace context in the message headers.
package audit

import (
	"context"
	"time"

	"github.com/goliatone/go-ototahmin/pkg/cascade"
)

// Event describes one prediction attempt.
type Event struct {
	RequestID string            `json:"requestId,omitempty"`
	Form      cascade.FormState `json:"form"`
	Price     float64           `json:"price,omitempty"`
	Display   string            `json:"display"`
	Failed    bool              `json:"failed"`
	Error     string            `json:"error,omitempty"`
	At        time.Time         `json:"at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function into a Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

// Publish calls the underlying function.
func (fn PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return fn(ctx, ev)
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
