// Package events defines the real-time screen events emitted when a target's
// dashboard content changes. Publication is fire-and-forget: delivery
// failures are logged by the publisher or the caller and never fail the
// triggering operation.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/casewatch/casewatch/internal/signal"
)

// KindSignalsUpdated tells dashboard clients that the signal list for a
// (target, type) pair changed and should be refetched.
const KindSignalsUpdated = "signals-updated"

// Event is the payload pushed to real-time consumers. Consumers assume
// at-least-once delivery.
type Event struct {
	Kind       string            `json:"kind"`
	Type       signal.Type       `json:"type"`
	TargetKind signal.TargetKind `json:"target_kind"`
	TargetID   string            `json:"target_id"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// SignalsUpdated builds the screen event for a signal's (target, type) pair.
func SignalsUpdated(s *signal.Signal) Event {
	return Event{
		Kind:       KindSignalsUpdated,
		Type:       s.Type,
		TargetKind: s.TargetKind,
		TargetID:   s.TargetID,
		OccurredAt: time.Now(),
	}
}

// Publisher pushes events to a real-time channel.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Fanout publishes to every wrapped publisher and reports all failures.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards all events. Used when no real-time channel is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
