package duedate

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SchedulerConfig controls when the nightly scan fires.
type SchedulerConfig struct {
	// Hour is the local hour of day (0-23) the scan starts.
	Hour int
}

// Scheduler triggers the due-date scan once a night. Deployments that prefer
// external cron can disable it and hit the scan endpoint instead.
type Scheduler struct {
	scanner *Scanner
	config  SchedulerConfig
	logger  *zap.Logger

	now func() time.Time
}

// NewScheduler creates the nightly scheduler.
func NewScheduler(scanner *Scanner, cfg SchedulerConfig, logger *zap.Logger) *Scheduler {
	if cfg.Hour < 0 || cfg.Hour > 23 {
		cfg.Hour = 2
	}
	return &Scheduler{
		scanner: scanner,
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Start blocks until the context is cancelled, running the scan at the
// configured hour each night.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		next := s.nextRun()
		s.logger.Info("next due-date scan scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("due-date scheduler stopping")
			return
		case <-timer.C:
		}

		report, err := s.scanner.Run(ctx)
		if err != nil {
			// A manual run holding the lock at the scheduled moment
			// is not worth an error-level log.
			level := zapcore.ErrorLevel
			if errors.Is(err, ErrScanInProgress) {
				level = zapcore.WarnLevel
			}
			s.logger.Log(level, "scheduled due-date scan failed", zap.Error(err))
			continue
		}
		s.logger.Info("scheduled due-date scan completed",
			zap.Int("cases_notified", report.CasesNotified),
			zap.Int("tasks_notified", report.TasksNotified),
		)
	}
}

func (s *Scheduler) nextRun() time.Time {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.Hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
