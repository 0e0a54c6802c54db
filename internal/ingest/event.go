// Package ingest consumes business events from SQS and turns them into
// signals: a dashboard entry, a mail, both, or nothing, depending on the
// target's settings.
package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/casewatch/casewatch/internal/signal"
)

// ErrUnprocessable marks an event that can never be handled: unknown type,
// missing target or subject. Such events are dropped instead of redelivered.
var ErrUnprocessable = errors.New("event cannot be processed")

// BusinessEvent is the message shape upstream systems put on the queue when
// something notification-worthy happens to a case, task or document.
type BusinessEvent struct {
	EventType     string    `json:"event_type"`
	SubjectID     string    `json:"subject_id"`
	ActorID       string    `json:"actor_id"`
	TargetUserID  string    `json:"target_user_id,omitempty"`
	TargetGroupID string    `json:"target_group_id,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// eventTypes maps the wire event type to the signal type it produces.
var eventTypes = map[string]signal.Type{
	"case.assigned":       signal.TypeCaseAssigned,
	"case.document.added": signal.TypeCaseDocumentAdded,
	"task.assigned":       signal.TypeTaskAssigned,
	"document.routed":     signal.TypeDocumentAdded,
}

// signalType resolves the signal type for the event.
func (e *BusinessEvent) signalType() (signal.Type, error) {
	t, ok := eventTypes[e.EventType]
	if !ok {
		return "", fmt.Errorf("%w: unknown event type %q", ErrUnprocessable, e.EventType)
	}
	return t, nil
}

// target returns the event's target. Exactly one of the target fields must
// be set.
func (e *BusinessEvent) target() (signal.TargetKind, string, error) {
	switch {
	case e.TargetUserID != "" && e.TargetGroupID != "":
		return "", "", fmt.Errorf("%w: both user and group target set", ErrUnprocessable)
	case e.TargetUserID != "":
		return signal.TargetUser, e.TargetUserID, nil
	case e.TargetGroupID != "":
		return signal.TargetGroup, e.TargetGroupID, nil
	default:
		return "", "", fmt.Errorf("%w: no target", ErrUnprocessable)
	}
}
