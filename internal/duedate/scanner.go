// Package duedate runs the scheduled scans that warn assignees about cases
// and tasks approaching their due dates. Scans are idempotent: a sent record
// fences every (target, type, subject, detail) key, and reconciliation
// re-arms keys whose date moved back out of the warning window.
package duedate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/clients"
	"github.com/casewatch/casewatch/internal/metrics"
	"github.com/casewatch/casewatch/internal/signal"
	"github.com/casewatch/casewatch/internal/subject"
)

// ErrScanInProgress is returned when a scan is requested while another run
// is still active.
var ErrScanInProgress = errors.New("a due-date scan is already running")

// Orchestrator is the slice of the notification orchestrator the scanner
// drives.
type Orchestrator interface {
	NewSignal(t signal.Type) *signal.Signal
	ReadSettings(ctx context.Context, t signal.Type, ownerKind signal.TargetKind, ownerID string) (*signal.Settings, error)
	SendMail(ctx context.Context, sig *signal.Signal) error
	RecordSent(ctx context.Context, sig *signal.Signal) error
	WasSent(ctx context.Context, sig *signal.Signal) (bool, error)
	RevokeSent(ctx context.Context, f signal.SentRecordFilter) (int64, error)
}

// CaseTypeCatalog lists the case types and their warning windows.
type CaseTypeCatalog interface {
	ListCaseTypes(ctx context.Context) ([]subject.CaseType, error)
}

// CaseSearcher queries the search index for cases by date range.
type CaseSearcher interface {
	FindCases(ctx context.Context, q clients.CaseDateQuery) ([]clients.CaseHit, error)
}

// TaskLister lists open assigned tasks by due date.
type TaskLister interface {
	ListOpenTasksDueNow(ctx context.Context, reference time.Time) ([]subject.Task, error)
	ListOpenTasksDueLater(ctx context.Context, reference time.Time) ([]subject.Task, error)
}

// Report summarizes one scan run.
type Report struct {
	CasesConsidered int           `json:"cases_considered"`
	CasesNotified   int           `json:"cases_notified"`
	CaseFailures    int           `json:"case_failures"`
	TasksConsidered int           `json:"tasks_considered"`
	TasksNotified   int           `json:"tasks_notified"`
	TaskFailures    int           `json:"task_failures"`
	Revoked         int64         `json:"revoked"`
	Duration        time.Duration `json:"duration"`
}

// Scanner runs the case and task due-date scans.
type Scanner struct {
	orch      Orchestrator
	caseTypes CaseTypeCatalog
	search    CaseSearcher
	tasks     TaskLister
	logger    *zap.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewScanner creates the scanner.
func NewScanner(orch Orchestrator, caseTypes CaseTypeCatalog, search CaseSearcher, tasks TaskLister, logger *zap.Logger) *Scanner {
	return &Scanner{
		orch:      orch,
		caseTypes: caseTypes,
		search:    search,
		tasks:     tasks,
		logger:    logger,
		now:       time.Now,
	}
}

// dateFields maps a due-date detail to its search index field.
var dateFields = map[signal.Detail]string{
	signal.DetailTargetDate: "target_date",
	signal.DetailFatalDate:  "fatal_date",
}

// Run executes the case scan followed by the task scan. Only one run may be
// active at a time; a concurrent request gets ErrScanInProgress instead of a
// second run.
func (s *Scanner) Run(ctx context.Context) (*Report, error) {
	if !s.mu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.mu.Unlock()

	start := s.now()
	today := truncateToDay(start.UTC())
	report := &Report{}

	s.logger.Info("due-date scan starting", zap.Time("today", today))

	if err := s.scanCases(ctx, today, report); err != nil {
		return nil, err
	}
	if err := s.scanTasks(ctx, today, report); err != nil {
		return nil, err
	}

	report.Duration = s.now().Sub(start)
	metrics.RecordScanDuration("full", report.Duration)

	s.logger.Info("due-date scan finished",
		zap.Int("cases_considered", report.CasesConsidered),
		zap.Int("cases_notified", report.CasesNotified),
		zap.Int("case_failures", report.CaseFailures),
		zap.Int("tasks_considered", report.TasksConsidered),
		zap.Int("tasks_notified", report.TasksNotified),
		zap.Int("task_failures", report.TaskFailures),
		zap.Int64("revoked", report.Revoked),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// scanCases warns assignees of cases whose target or fatal date falls inside
// the case type's warning window, then re-arms keys for cases whose date
// moved beyond the window again.
func (s *Scanner) scanCases(ctx context.Context, today time.Time, report *Report) error {
	caseTypes, err := s.caseTypes.ListCaseTypes(ctx)
	if err != nil {
		return fmt.Errorf("list case types: %w", err)
	}

	for _, ct := range caseTypes {
		if ct.TargetDateWarningDays != nil {
			s.scanCaseField(ctx, today, ct, signal.DetailTargetDate, *ct.TargetDateWarningDays, report)
		}
		if ct.FatalDateWarningDays != nil {
			s.scanCaseField(ctx, today, ct, signal.DetailFatalDate, *ct.FatalDateWarningDays, report)
		}
	}
	return nil
}

func (s *Scanner) scanCaseField(ctx context.Context, today time.Time, ct subject.CaseType, detail signal.Detail, windowDays int, report *Report) {
	field := dateFields[detail]
	to := today.AddDate(0, 0, windowDays)

	hits, err := s.search.FindCases(ctx, clients.CaseDateQuery{
		CaseTypeID: ct.ID,
		DateField:  field,
		From:       &today,
		To:         &to,
	})
	if err != nil {
		metrics.RecordScanFailure("case")
		report.CaseFailures++
		s.logger.Error("case window query failed",
			zap.String("case_type", ct.ID),
			zap.String("date_field", field),
			zap.Error(err),
		)
		return
	}

	for _, hit := range hits {
		report.CasesConsidered++
		metrics.RecordScanCandidate("case")

		sig := s.orch.NewSignal(signal.TypeCaseDue)
		sig.SetTargetUser(hit.AssigneeID)
		sig.SetSubject(hit.CaseID)
		sig.Detail = detail

		notified, err := s.notify(ctx, sig)
		if err != nil {
			metrics.RecordScanFailure("case")
			report.CaseFailures++
			s.logger.Error("case candidate failed",
				zap.String("case_id", hit.CaseID),
				zap.String("assignee", hit.AssigneeID),
				zap.Error(err),
			)
			continue
		}
		if notified {
			metrics.RecordScanNotified("case")
			report.CasesNotified++
		}
	}

	s.reconcileCaseField(ctx, today, ct, detail, windowDays, report)
}

// reconcileCaseField deletes the sent records of cases whose date now lies
// strictly beyond the warning window, so a date pushed into the future warns
// again when it next approaches. The query starts at window+1, tiling
// exactly with the send window: every date falls in one of the two queries.
func (s *Scanner) reconcileCaseField(ctx context.Context, today time.Time, ct subject.CaseType, detail signal.Detail, windowDays int, report *Report) {
	from := today.AddDate(0, 0, windowDays+1)

	hits, err := s.search.FindCases(ctx, clients.CaseDateQuery{
		CaseTypeID: ct.ID,
		DateField:  dateFields[detail],
		From:       &from,
	})
	if err != nil {
		metrics.RecordScanFailure("case")
		report.CaseFailures++
		s.logger.Error("case reconciliation query failed",
			zap.String("case_type", ct.ID),
			zap.Error(err),
		)
		return
	}

	for _, hit := range hits {
		n, err := s.orch.RevokeSent(ctx, signal.SentRecordFilter{
			Types:       []signal.Type{signal.TypeCaseDue},
			TargetKind:  signal.TargetUser,
			TargetID:    hit.AssigneeID,
			SubjectKind: signal.SubjectCase,
			SubjectID:   hit.CaseID,
			Detail:      detail,
		})
		if err != nil {
			metrics.RecordScanFailure("case")
			report.CaseFailures++
			s.logger.Error("failed to re-arm case",
				zap.String("case_id", hit.CaseID),
				zap.Error(err),
			)
			continue
		}
		report.Revoked += n
	}
}

// scanTasks warns assignees of open tasks that are due now, then re-arms
// keys for tasks whose due date lies in the future again.
func (s *Scanner) scanTasks(ctx context.Context, today time.Time, report *Report) error {
	due, err := s.tasks.ListOpenTasksDueNow(ctx, today)
	if err != nil {
		return fmt.Errorf("list tasks due now: %w", err)
	}

	for _, task := range due {
		if task.AssigneeID == "" {
			continue
		}
		report.TasksConsidered++
		metrics.RecordScanCandidate("task")

		sig := s.orch.NewSignal(signal.TypeTaskDue)
		sig.SetTargetUser(task.AssigneeID)
		sig.SetSubject(task.ID)
		sig.Detail = signal.DetailTargetDate

		notified, err := s.notify(ctx, sig)
		if err != nil {
			metrics.RecordScanFailure("task")
			report.TaskFailures++
			s.logger.Error("task candidate failed",
				zap.String("task_id", task.ID),
				zap.String("assignee", task.AssigneeID),
				zap.Error(err),
			)
			continue
		}
		if notified {
			metrics.RecordScanNotified("task")
			report.TasksNotified++
		}
	}

	later, err := s.tasks.ListOpenTasksDueLater(ctx, today)
	if err != nil {
		return fmt.Errorf("list tasks due later: %w", err)
	}
	for _, task := range later {
		n, err := s.orch.RevokeSent(ctx, signal.SentRecordFilter{
			Types:       []signal.Type{signal.TypeTaskDue},
			SubjectKind: signal.SubjectTask,
			SubjectID:   task.ID,
			Detail:      signal.DetailTargetDate,
		})
		if err != nil {
			metrics.RecordScanFailure("task")
			report.TaskFailures++
			s.logger.Error("failed to re-arm task",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
			continue
		}
		report.Revoked += n
	}
	return nil
}

// notify sends the mail for one candidate unless the target opted out of
// mail for this type or the key was already mailed. The sent record is
// written after dispatch; a missing recipient still fences the key so the
// scan does not retry it every night.
func (s *Scanner) notify(ctx context.Context, sig *signal.Signal) (bool, error) {
	settings, err := s.orch.ReadSettings(ctx, sig.Type, sig.TargetKind, sig.TargetID)
	if err != nil {
		return false, err
	}
	if !settings.Mail {
		return false, nil
	}

	sent, err := s.orch.WasSent(ctx, sig)
	if err != nil {
		return false, err
	}
	if sent {
		return false, nil
	}

	if err := s.orch.SendMail(ctx, sig); err != nil {
		return false, err
	}
	if err := s.orch.RecordSent(ctx, sig); err != nil {
		return false, err
	}
	return true, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
