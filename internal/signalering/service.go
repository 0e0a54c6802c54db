// Package signalering is the notification orchestrator. It decides whether a
// signal is necessary, persists dashboard signals, fans out screen events,
// and drives the dedup-aware mail pipeline.
package signalering

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/events"
	"github.com/casewatch/casewatch/internal/mail"
	"github.com/casewatch/casewatch/internal/metrics"
	"github.com/casewatch/casewatch/internal/signal"
	"github.com/casewatch/casewatch/internal/subject"
)

// Repository is the persistence surface the orchestrator needs.
type Repository interface {
	CreateSignal(ctx context.Context, s *signal.Signal) error
	ListSignals(ctx context.Context, f signal.Filter, page *signal.Page) ([]*signal.Signal, error)
	CountSignals(ctx context.Context, f signal.Filter) (int64, error)
	LatestSignalAt(ctx context.Context, f signal.Filter) (*time.Time, error)
	DeleteSignals(ctx context.Context, f signal.Filter) ([]*signal.Signal, error)
	DeleteSignalsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	UpsertSettings(ctx context.Context, s *signal.Settings) error
	ListSettings(ctx context.Context, f signal.SettingsFilter) ([]*signal.Settings, error)
	DeleteSettings(ctx context.Context, f signal.SettingsFilter) (int64, error)

	CreateSentRecord(ctx context.Context, rec *signal.SentRecord) error
	FindSentRecord(ctx context.Context, f signal.SentRecordFilter) (*signal.SentRecord, error)
	DeleteSentRecords(ctx context.Context, f signal.SentRecordFilter) (int64, error)
}

// Directory resolves a signal target to a mail address. A nil address with a
// nil error means the target cannot be mailed.
type Directory interface {
	ResolveContact(ctx context.Context, kind signal.TargetKind, id string) (*mail.Address, error)
}

// SourceResolver fetches the merge sources for a signal's mail.
type SourceResolver interface {
	Resolve(ctx context.Context, sig *signal.Signal) ([]subject.MergeSource, error)
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Repository Repository
	Events     events.Publisher
	Mailer     mail.Mailer
	Templates  mail.TemplateResolver
	Sources    SourceResolver
	Directory  Directory

	// From is the sender address on every notification mail.
	From mail.Address
}

// Service is the notification orchestrator.
type Service struct {
	repo      Repository
	events    events.Publisher
	mailer    mail.Mailer
	templates mail.TemplateResolver
	sources   SourceResolver
	directory Directory
	from      mail.Address
	logger    *zap.Logger

	now func() time.Time
}

// NewService creates the orchestrator.
func NewService(cfg Config, logger *zap.Logger) *Service {
	ev := cfg.Events
	if ev == nil {
		ev = events.Nop{}
	}
	return &Service{
		repo:      cfg.Repository,
		events:    ev,
		mailer:    cfg.Mailer,
		templates: cfg.Templates,
		sources:   cfg.Sources,
		directory: cfg.Directory,
		from:      cfg.From,
		logger:    logger,
		now:       time.Now,
	}
}

// NewSignal returns a fresh signal of the given type with its identity and
// timestamp filled in. Target and subject are set by the caller.
func (s *Service) NewSignal(t signal.Type) *signal.Signal {
	return &signal.Signal{
		ID:        uuid.New(),
		Type:      t,
		CreatedAt: s.now().UTC(),
	}
}

// IsNecessary reports whether a signal should be delivered at all. Signals
// addressed to a group are always necessary; signals addressed to a user are
// suppressed when that user caused the event themselves.
func (s *Service) IsNecessary(sig *signal.Signal, actorID string) bool {
	if sig.TargetKind == signal.TargetGroup {
		return true
	}
	return sig.TargetID != actorID
}

// CreateSignal validates and stores a dashboard signal, then publishes a
// screen event so open dashboards refresh. Publish failures are logged, never
// returned; the stored signal is the source of truth.
func (s *Service) CreateSignal(ctx context.Context, sig *signal.Signal) error {
	if sig.ID == uuid.Nil {
		sig.ID = uuid.New()
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = s.now().UTC()
	}
	if err := sig.Validate(); err != nil {
		return err
	}

	if err := s.repo.CreateSignal(ctx, sig); err != nil {
		return fmt.Errorf("store signal: %w", err)
	}
	metrics.RecordSignalCreated(string(sig.Type))

	s.publish(ctx, events.SignalsUpdated(sig))
	return nil
}

// ListSignals returns the signals matching the filter, newest first.
func (s *Service) ListSignals(ctx context.Context, f signal.Filter, page *signal.Page) ([]*signal.Signal, error) {
	return s.repo.ListSignals(ctx, f, page)
}

// CountSignals returns the number of signals matching the filter.
func (s *Service) CountSignals(ctx context.Context, f signal.Filter) (int64, error) {
	return s.repo.CountSignals(ctx, f)
}

// LatestSignalAt returns the creation time of the newest matching signal, or
// nil when there is none.
func (s *Service) LatestSignalAt(ctx context.Context, f signal.Filter) (*time.Time, error) {
	return s.repo.LatestSignalAt(ctx, f)
}

// DeleteSignals removes the signals matching the filter and publishes one
// screen event per distinct (target, type) pair among the deleted rows, so a
// bulk delete does not flood the dashboards.
func (s *Service) DeleteSignals(ctx context.Context, f signal.Filter) (int64, error) {
	deleted, err := s.repo.DeleteSignals(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("delete signals: %w", err)
	}

	byType := make(map[signal.Type]int)
	groups := make(map[string]*signal.Signal)
	for _, sig := range deleted {
		byType[sig.Type]++
		if _, seen := groups[sig.GroupKey()]; !seen {
			groups[sig.GroupKey()] = sig
		}
	}

	for t, n := range byType {
		metrics.RecordSignalsDeleted(string(t), n)
	}
	for _, sig := range groups {
		s.publish(ctx, events.SignalsUpdated(sig))
	}

	return int64(len(deleted)), nil
}

// DeleteOldSignals removes signals older than the retention period. Used by
// the nightly cleanup.
func (s *Service) DeleteOldSignals(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-maxAge)
	n, err := s.repo.DeleteSignalsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old signals: %w", err)
	}
	if n > 0 {
		s.logger.Info("deleted old signals",
			zap.Int64("count", n),
			zap.Time("cutoff", cutoff),
		)
	}
	return n, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		metrics.RecordEventPublished("error")
		s.logger.Warn("failed to publish screen event",
			zap.String("kind", event.Kind),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return
	}
	metrics.RecordEventPublished("ok")
}
