package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/signal"
)

// Orchestrator is the slice of the notification orchestrator the ingest
// pipeline drives.
type Orchestrator interface {
	NewSignal(t signal.Type) *signal.Signal
	IsNecessary(sig *signal.Signal, actorID string) bool
	ReadSettings(ctx context.Context, t signal.Type, ownerKind signal.TargetKind, ownerID string) (*signal.Settings, error)
	CreateSignal(ctx context.Context, sig *signal.Signal) error
	SendMail(ctx context.Context, sig *signal.Signal) error
}

// Handler turns one business event into deliveries.
type Handler struct {
	orch   Orchestrator
	logger *zap.Logger
}

// NewHandler creates the event handler.
func NewHandler(orch Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{orch: orch, logger: logger}
}

// Handle processes one business event. An ErrUnprocessable means the event
// is malformed and must be dropped; any other error means processing failed
// transiently and the event should be redelivered.
func (h *Handler) Handle(ctx context.Context, ev *BusinessEvent) error {
	t, err := ev.signalType()
	if err != nil {
		return err
	}
	kind, targetID, err := ev.target()
	if err != nil {
		return err
	}
	if ev.SubjectID == "" {
		return fmt.Errorf("%w: no subject", ErrUnprocessable)
	}

	sig := h.orch.NewSignal(t)
	sig.TargetKind = kind
	sig.TargetID = targetID
	sig.SetSubject(ev.SubjectID)
	sig.Detail = signal.Detail(ev.Detail)

	if err := sig.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}

	if !h.orch.IsNecessary(sig, ev.ActorID) {
		h.logger.Debug("signal not necessary, actor is target",
			zap.String("type", string(t)),
			zap.String("actor", ev.ActorID),
		)
		return nil
	}

	settings, err := h.orch.ReadSettings(ctx, t, kind, targetID)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	if settings.Dashboard {
		if err := h.orch.CreateSignal(ctx, sig); err != nil {
			return fmt.Errorf("create signal: %w", err)
		}
	}
	if settings.Mail {
		if err := h.orch.SendMail(ctx, sig); err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
	}
	if settings.IsEmpty() {
		h.logger.Debug("target has not opted in, dropping event",
			zap.String("type", string(t)),
			zap.String("target", targetID),
		)
	}
	return nil
}
