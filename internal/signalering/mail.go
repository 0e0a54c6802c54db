package signalering

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/mail"
	"github.com/casewatch/casewatch/internal/metrics"
	"github.com/casewatch/casewatch/internal/signal"
)

// SendMail resolves the recipient, template and merge sources for a signal
// and dispatches the mail. A target the directory cannot resolve to a mail
// address is not an error: the mail is skipped with a debug log so batch
// scans keep going.
func (s *Service) SendMail(ctx context.Context, sig *signal.Signal) error {
	to, err := s.directory.ResolveContact(ctx, sig.TargetKind, sig.TargetID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if to == nil {
		metrics.RecordMailSkipped("no_recipient")
		s.logger.Debug("no mail address for signal target, skipping mail",
			zap.String("type", string(sig.Type)),
			zap.String("target_kind", string(sig.TargetKind)),
			zap.String("target_id", sig.TargetID),
		)
		return nil
	}

	tpl, err := s.templates.Resolve(sig.Type, sig.Detail)
	if err != nil {
		return fmt.Errorf("resolve template: %w", err)
	}

	sources, err := s.sources.Resolve(ctx, sig)
	if err != nil {
		return fmt.Errorf("resolve mail sources: %w", err)
	}

	subjectLine, body := mail.Render(tpl, sources)
	msg := mail.Message{
		From:    s.from,
		To:      *to,
		Subject: subjectLine,
		Body:    body,
	}

	if err := s.mailer.Send(ctx, msg, sources); err != nil {
		metrics.RecordMailFailed(string(sig.Type))
		return fmt.Errorf("send mail: %w", err)
	}

	metrics.RecordMailSent(string(sig.Type))
	return nil
}

// RecordSent stores the dedup fence for a signal's mail. The underlying
// upsert makes this idempotent per key.
func (s *Service) RecordSent(ctx context.Context, sig *signal.Signal) error {
	rec := &signal.SentRecord{
		ID:          uuid.New(),
		Type:        sig.Type,
		TargetKind:  sig.TargetKind,
		TargetID:    sig.TargetID,
		SubjectKind: sig.SubjectKind,
		SubjectID:   sig.SubjectID,
		Detail:      sig.Detail,
		SentAt:      s.now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := s.repo.CreateSentRecord(ctx, rec); err != nil {
		return fmt.Errorf("record sent: %w", err)
	}
	return nil
}

// WasSent reports whether a mail for this signal's dedup key was already
// dispatched.
func (s *Service) WasSent(ctx context.Context, sig *signal.Signal) (bool, error) {
	rec, err := s.repo.FindSentRecord(ctx, signal.SentRecordFilter{
		Types:       []signal.Type{sig.Type},
		TargetKind:  sig.TargetKind,
		TargetID:    sig.TargetID,
		SubjectKind: sig.SubjectKind,
		SubjectID:   sig.SubjectID,
		Detail:      sig.Detail,
	})
	if err != nil {
		return false, fmt.Errorf("find sent record: %w", err)
	}
	return rec != nil, nil
}

// RevokeSent deletes the sent records matching the filter, re-arming the
// mail for those keys. Reconciliation uses this when a due date moves back
// out of its warning window.
func (s *Service) RevokeSent(ctx context.Context, f signal.SentRecordFilter) (int64, error) {
	n, err := s.repo.DeleteSentRecords(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("revoke sent records: %w", err)
	}
	return n, nil
}
