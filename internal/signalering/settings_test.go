package signalering

import (
	"context"
	"testing"

	"github.com/casewatch/casewatch/internal/signal"
)

func TestPutSettings_StoresOptIn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.svc.PutSettings(ctx, &signal.Settings{
		Type:      signal.TypeCaseAssigned,
		OwnerKind: signal.TargetUser,
		OwnerID:   "adenorst",
		Dashboard: true,
		Mail:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.repo.settings) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(f.repo.settings))
	}
}

func TestPutSettings_EmptyDeletesInsteadOfStoring(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	opt := &signal.Settings{
		Type:      signal.TypeCaseAssigned,
		OwnerKind: signal.TargetUser,
		OwnerID:   "adenorst",
		Dashboard: true,
	}
	if err := f.svc.PutSettings(ctx, opt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Turning both flags off removes the record entirely.
	off := &signal.Settings{
		Type:      signal.TypeCaseAssigned,
		OwnerKind: signal.TargetUser,
		OwnerID:   "adenorst",
	}
	if err := f.svc.PutSettings(ctx, off); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.repo.settings) != 0 {
		t.Errorf("expected empty settings to be deleted, got %d records", len(f.repo.settings))
	}
}

func TestPutSettings_EmptyForUnknownOwnerIsNoop(t *testing.T) {
	f := newFixture()
	err := f.svc.PutSettings(context.Background(), &signal.Settings{
		Type:      signal.TypeCaseAssigned,
		OwnerKind: signal.TargetUser,
		OwnerID:   "ghost",
	})
	if err != nil {
		t.Fatalf("deleting a record that does not exist must be a no-op, got %v", err)
	}
}

func TestPutSettings_InvalidRejected(t *testing.T) {
	f := newFixture()
	err := f.svc.PutSettings(context.Background(), &signal.Settings{
		Type:      signal.TypeCaseDue, // user-only type
		OwnerKind: signal.TargetGroup,
		OwnerID:   "behandelaars",
		Mail:      true,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestReadSettings_SynthesizesDefaultOff(t *testing.T) {
	f := newFixture()
	got, err := f.svc.ReadSettings(context.Background(), signal.TypeTaskDue, signal.TargetUser, "adenorst")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Dashboard || got.Mail {
		t.Errorf("synthesized record must be default-off, got %+v", got)
	}
	if got.Type != signal.TypeTaskDue || got.OwnerID != "adenorst" {
		t.Errorf("synthesized record has wrong identity: %+v", got)
	}
	if len(f.repo.settings) != 0 {
		t.Error("synthesized record must not be persisted")
	}
}

func TestReadSettings_ReturnsStoredRecord(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.PutSettings(ctx, &signal.Settings{
		Type:      signal.TypeTaskDue,
		OwnerKind: signal.TargetUser,
		OwnerID:   "adenorst",
		Mail:      true,
	}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	got, err := f.svc.ReadSettings(ctx, signal.TypeTaskDue, signal.TargetUser, "adenorst")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Mail || got.Dashboard {
		t.Errorf("expected stored mail-only record, got %+v", got)
	}
}

func TestListPossibleSettings_UserGetsAllTypesInOrder(t *testing.T) {
	f := newFixture()
	got, err := f.svc.ListPossibleSettings(context.Background(), signal.TargetUser, "adenorst")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(signal.Types()) {
		t.Fatalf("every type applies to users, expected %d records, got %d", len(signal.Types()), len(got))
	}
	for i, rec := range got {
		if rec.Type != signal.Types()[i] {
			t.Errorf("record %d out of catalogue order: got %s, want %s", i, rec.Type, signal.Types()[i])
		}
	}
}

func TestListPossibleSettings_GroupOmitsUserOnlyTypes(t *testing.T) {
	f := newFixture()
	got, err := f.svc.ListPossibleSettings(context.Background(), signal.TargetGroup, "behandelaars")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, rec := range got {
		if !rec.Type.AppliesTo(signal.TargetGroup) {
			t.Errorf("type %s does not apply to groups", rec.Type)
		}
	}
	if len(got) >= len(signal.Types()) {
		t.Errorf("user-only types must be omitted for groups, got %d records", len(got))
	}
}

func TestListPossibleSettings_MergesStoredRecords(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.PutSettings(ctx, &signal.Settings{
		Type:      signal.TypeCaseAssigned,
		OwnerKind: signal.TargetUser,
		OwnerID:   "adenorst",
		Dashboard: true,
	}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	got, err := f.svc.ListPossibleSettings(ctx, signal.TargetUser, "adenorst")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stored, synthesized int
	for _, rec := range got {
		if rec.Type == signal.TypeCaseAssigned {
			if !rec.Dashboard {
				t.Error("stored record must win over the synthesized default")
			}
			stored++
		} else if !rec.Dashboard && !rec.Mail {
			synthesized++
		}
	}
	if stored != 1 || synthesized != len(got)-1 {
		t.Errorf("expected 1 stored and %d synthesized records, got %d/%d", len(got)-1, stored, synthesized)
	}
}
