package signalering

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/mail"
	"github.com/casewatch/casewatch/internal/signal"
	"github.com/casewatch/casewatch/internal/subject"
)

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	publisher *fakePublisher
	directory *fakeDirectory
	sources   *fakeSources
	mailer    *fakeMailer
}

func newFixture() *fixture {
	repo := &fakeRepo{}
	publisher := &fakePublisher{}
	directory := &fakeDirectory{contacts: map[string]*mail.Address{
		"adenorst":     {Name: "A. Denorst", Email: "adenorst@example.com"},
		"behandelaars": {Name: "Behandelaars", Email: "behandelaars@example.com"},
	}}
	sources := &fakeSources{sources: []subject.MergeSource{
		subject.Case{ID: "case-1", Identification: "CASE-2026-001", Description: "melding"},
	}}
	mailer := &fakeMailer{}

	svc := NewService(Config{
		Repository: repo,
		Events:     publisher,
		Mailer:     mailer,
		Templates:  mail.NewCatalogue(),
		Sources:    sources,
		Directory:  directory,
		From:       mail.Address{Name: "Casewatch", Email: "noreply@example.com"},
	}, zap.NewNop())

	return &fixture{
		svc:       svc,
		repo:      repo,
		publisher: publisher,
		directory: directory,
		sources:   sources,
		mailer:    mailer,
	}
}

func caseAssignedSignal(svc *Service, userID, caseID string) *signal.Signal {
	sig := svc.NewSignal(signal.TypeCaseAssigned)
	sig.SetTargetUser(userID)
	sig.SetSubject(caseID)
	return sig
}

func TestIsNecessary_GroupAlways(t *testing.T) {
	f := newFixture()
	sig := f.svc.NewSignal(signal.TypeCaseAssigned)
	sig.SetTargetGroup("behandelaars")
	sig.SetSubject("case-1")

	if !f.svc.IsNecessary(sig, "adenorst") {
		t.Error("group signals must always be necessary")
	}
}

func TestIsNecessary_UserSelfSuppressed(t *testing.T) {
	f := newFixture()
	sig := caseAssignedSignal(f.svc, "adenorst", "case-1")

	if f.svc.IsNecessary(sig, "adenorst") {
		t.Error("a user must not be notified about their own action")
	}
	if !f.svc.IsNecessary(sig, "jbakker") {
		t.Error("a user must be notified about someone else's action")
	}
}

func TestCreateSignal_StoresAndPublishes(t *testing.T) {
	f := newFixture()
	sig := caseAssignedSignal(f.svc, "adenorst", "case-1")

	if err := f.svc.CreateSignal(context.Background(), sig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.repo.signals) != 1 {
		t.Fatalf("expected 1 stored signal, got %d", len(f.repo.signals))
	}
	if len(f.publisher.events) != 1 {
		t.Fatalf("expected 1 screen event, got %d", len(f.publisher.events))
	}
	e := f.publisher.events[0]
	if e.Kind != "signals-updated" || e.TargetID != "adenorst" || e.Type != signal.TypeCaseAssigned {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestCreateSignal_InvalidRejected(t *testing.T) {
	f := newFixture()
	sig := f.svc.NewSignal(signal.TypeCaseDue)
	sig.SetTargetGroup("behandelaars") // CASE_DUE is user-only
	sig.SetSubject("case-1")

	if err := f.svc.CreateSignal(context.Background(), sig); err == nil {
		t.Fatal("expected validation error")
	}
	if len(f.repo.signals) != 0 {
		t.Error("invalid signal must not be stored")
	}
}

func TestCreateSignal_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("redis down")
	sig := caseAssignedSignal(f.svc, "adenorst", "case-1")

	if err := f.svc.CreateSignal(context.Background(), sig); err != nil {
		t.Fatalf("publish failure must not fail signal creation: %v", err)
	}
	if len(f.repo.signals) != 1 {
		t.Error("signal must still be stored")
	}
}

func TestCreateSignal_RepoFailurePropagates(t *testing.T) {
	f := newFixture()
	f.repo.failCreate = true
	sig := caseAssignedSignal(f.svc, "adenorst", "case-1")

	if err := f.svc.CreateSignal(context.Background(), sig); !errors.Is(err, errRepoDown) {
		t.Fatalf("expected repo error, got %v", err)
	}
	if len(f.publisher.events) != 0 {
		t.Error("no event may be published when storage fails")
	}
}

func TestDeleteSignals_CoalescesEventsPerTargetTypePair(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Five signals across two (target, type) pairs.
	for _, caseID := range []string{"case-1", "case-2", "case-3"} {
		if err := f.svc.CreateSignal(ctx, caseAssignedSignal(f.svc, "adenorst", caseID)); err != nil {
			t.Fatalf("seed signal: %v", err)
		}
	}
	for _, caseID := range []string{"case-1", "case-2"} {
		if err := f.svc.CreateSignal(ctx, caseAssignedSignal(f.svc, "jbakker", caseID)); err != nil {
			t.Fatalf("seed signal: %v", err)
		}
	}
	f.publisher.events = nil

	n, err := f.svc.DeleteSignals(ctx, signal.Filter{Types: []signal.Type{signal.TypeCaseAssigned}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 deleted signals, got %d", n)
	}
	if len(f.publisher.events) != 2 {
		t.Errorf("expected one coalesced event per pair, got %d", len(f.publisher.events))
	}
}

func TestDeleteSignals_NoMatchesNoEvents(t *testing.T) {
	f := newFixture()
	n, err := f.svc.DeleteSignals(context.Background(), signal.Filter{TargetID: "ghost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 || len(f.publisher.events) != 0 {
		t.Errorf("expected no deletions and no events, got n=%d events=%d", n, len(f.publisher.events))
	}
}

func TestDeleteOldSignals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	old := caseAssignedSignal(f.svc, "adenorst", "case-old")
	old.CreatedAt = time.Now().UTC().Add(-90 * 24 * time.Hour)
	if err := f.repo.CreateSignal(ctx, old); err != nil {
		t.Fatalf("seed signal: %v", err)
	}
	if err := f.svc.CreateSignal(ctx, caseAssignedSignal(f.svc, "adenorst", "case-new")); err != nil {
		t.Fatalf("seed signal: %v", err)
	}

	n, err := f.svc.DeleteOldSignals(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 old signal deleted, got %d", n)
	}
	if len(f.repo.signals) != 1 || f.repo.signals[0].SubjectID != "case-new" {
		t.Errorf("recent signal must survive, got %+v", f.repo.signals)
	}
}

func TestLatestSignalAt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	at, err := f.svc.LatestSignalAt(ctx, signal.Filter{TargetID: "adenorst"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if at != nil {
		t.Errorf("expected nil for no signals, got %v", at)
	}

	if err := f.svc.CreateSignal(ctx, caseAssignedSignal(f.svc, "adenorst", "case-1")); err != nil {
		t.Fatalf("seed signal: %v", err)
	}
	at, err = f.svc.LatestSignalAt(ctx, signal.Filter{TargetID: "adenorst"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if at == nil {
		t.Fatal("expected a timestamp")
	}
}

func TestSendMail_HappyPath(t *testing.T) {
	f := newFixture()
	sig := caseAssignedSignal(f.svc, "adenorst", "case-1")

	if err := f.svc.SendMail(context.Background(), sig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.mailer.messages) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(f.mailer.messages))
	}
	msg := f.mailer.messages[0]
	if msg.To.Email != "adenorst@example.com" {
		t.Errorf("unexpected recipient %s", msg.To.Email)
	}
	if msg.From.Email != "noreply@example.com" {
		t.Errorf("unexpected sender %s", msg.From.Email)
	}
	if want := "Case CASE-2026-001 has been assigned to you"; msg.Subject != want {
		t.Errorf("merge variables not rendered, got subject %q", msg.Subject)
	}
}

func TestSendMail_NoRecipientIsSkippedSilently(t *testing.T) {
	f := newFixture()
	sig := caseAssignedSignal(f.svc, "ghost", "case-1")

	if err := f.svc.SendMail(context.Background(), sig); err != nil {
		t.Fatalf("missing recipient must not be an error, got %v", err)
	}
	if len(f.mailer.messages) != 0 {
		t.Error("no mail may be dispatched without a recipient")
	}
}

func TestSendMail_DirectoryErrorPropagates(t *testing.T) {
	f := newFixture()
	f.directory.err = errors.New("directory down")
	sig := caseAssignedSignal(f.svc, "adenorst", "case-1")

	if err := f.svc.SendMail(context.Background(), sig); err == nil {
		t.Fatal("expected directory error")
	}
}

func TestSendMail_SourceFailureAborts(t *testing.T) {
	f := newFixture()
	f.sources.err = errors.New("case api down")
	sig := caseAssignedSignal(f.svc, "adenorst", "case-1")

	if err := f.svc.SendMail(context.Background(), sig); err == nil {
		t.Fatal("expected source resolution error")
	}
	if len(f.mailer.messages) != 0 {
		t.Error("mail must not go out with unresolved sources")
	}
}

func TestSendMail_TransportFailurePropagates(t *testing.T) {
	f := newFixture()
	f.mailer.err = errors.New("ses unavailable")
	sig := caseAssignedSignal(f.svc, "adenorst", "case-1")

	if err := f.svc.SendMail(context.Background(), sig); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestRecordSentAndWasSent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sig := f.svc.NewSignal(signal.TypeCaseDue)
	sig.SetTargetUser("adenorst")
	sig.SetSubject("case-1")
	sig.Detail = signal.DetailTargetDate

	sent, err := f.svc.WasSent(ctx, sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent {
		t.Fatal("nothing sent yet")
	}

	if err := f.svc.RecordSent(ctx, sig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent, err = f.svc.WasSent(ctx, sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sent {
		t.Fatal("expected sent record to be found")
	}

	// Same key again is idempotent, not a second record.
	if err := f.svc.RecordSent(ctx, sig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.repo.sentRecords) != 1 {
		t.Errorf("expected a single record per key, got %d", len(f.repo.sentRecords))
	}
}

func TestWasSent_DistinguishesDetail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	target := f.svc.NewSignal(signal.TypeCaseDue)
	target.SetTargetUser("adenorst")
	target.SetSubject("case-1")
	target.Detail = signal.DetailTargetDate
	if err := f.svc.RecordSent(ctx, target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fatal := f.svc.NewSignal(signal.TypeCaseDue)
	fatal.SetTargetUser("adenorst")
	fatal.SetSubject("case-1")
	fatal.Detail = signal.DetailFatalDate

	sent, err := f.svc.WasSent(ctx, fatal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent {
		t.Error("fatal-date key must not match target-date record")
	}
}

func TestRevokeSent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sig := f.svc.NewSignal(signal.TypeCaseDue)
	sig.SetTargetUser("adenorst")
	sig.SetSubject("case-1")
	sig.Detail = signal.DetailTargetDate
	if err := f.svc.RecordSent(ctx, sig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := f.svc.RevokeSent(ctx, signal.SentRecordFilter{
		Types:       []signal.Type{signal.TypeCaseDue},
		SubjectKind: signal.SubjectCase,
		SubjectID:   "case-1",
		Detail:      signal.DetailTargetDate,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 revoked record, got %d", n)
	}

	sent, _ := f.svc.WasSent(ctx, sig)
	if sent {
		t.Error("revoked key must be re-armed")
	}
}
