package signal

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func validSignal() *Signal {
	s := &Signal{
		ID:        uuid.New(),
		Type:      TypeCaseAssigned,
		CreatedAt: time.Now(),
	}
	s.SetTargetUser("adenorst")
	s.SetSubject("case-1")
	return s
}

func TestSignalValidate(t *testing.T) {
	if err := validSignal().Validate(); err != nil {
		t.Fatalf("valid signal rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Signal)
	}{
		{"unknown type", func(s *Signal) { s.Type = "CASE_EXPLODED" }},
		{"unknown target kind", func(s *Signal) { s.TargetKind = "ROBOT" }},
		{"illegal target kind for type", func(s *Signal) {
			s.Type = TypeCaseDue
			s.SubjectKind = SubjectCase
			s.TargetKind = TargetGroup
		}},
		{"missing target id", func(s *Signal) { s.TargetID = "" }},
		{"subject kind mismatch", func(s *Signal) { s.SubjectKind = SubjectTask }},
		{"missing subject id", func(s *Signal) { s.SubjectID = "" }},
		{"missing created at", func(s *Signal) { s.CreatedAt = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSignal()
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestSetSubjectTakesKindFromType(t *testing.T) {
	s := &Signal{Type: TypeTaskAssigned}
	s.SetSubject("task-9")

	if s.SubjectKind != SubjectTask {
		t.Errorf("expected subject kind TASK, got %s", s.SubjectKind)
	}
	if s.SubjectID != "task-9" {
		t.Errorf("expected subject id task-9, got %s", s.SubjectID)
	}
}

func TestGroupKey(t *testing.T) {
	s := validSignal()
	if got := s.GroupKey(); got != "USER:adenorst;CASE_ASSIGNED" {
		t.Errorf("unexpected group key %q", got)
	}

	other := validSignal()
	other.SetSubject("case-2")
	if s.GroupKey() != other.GroupKey() {
		t.Error("signals for the same target and type must share a group key")
	}

	group := validSignal()
	group.SetTargetGroup("backoffice")
	if s.GroupKey() == group.GroupKey() {
		t.Error("different targets must not share a group key")
	}
}

func TestTypeCatalogue(t *testing.T) {
	types := Types()
	if len(types) != 6 {
		t.Fatalf("expected 6 types, got %d", len(types))
	}
	if types[0] != TypeCaseAssigned || types[len(types)-1] != TypeDocumentAdded {
		t.Errorf("unexpected catalogue order: %v", types)
	}

	for i, typ := range types {
		if !typ.Valid() {
			t.Errorf("catalogue type %s reported invalid", typ)
		}
		if typ.Ordinal() != i {
			t.Errorf("type %s: ordinal %d, want %d", typ, typ.Ordinal(), i)
		}
	}
	if Type("NOPE").Valid() {
		t.Error("unknown type reported valid")
	}
	if Type("NOPE").Ordinal() != len(types) {
		t.Error("unknown type must sort last")
	}
}

func TestTypeAppliesTo(t *testing.T) {
	tests := []struct {
		typ   Type
		kind  TargetKind
		wants bool
	}{
		{TypeCaseAssigned, TargetUser, true},
		{TypeCaseAssigned, TargetGroup, true},
		{TypeCaseDue, TargetUser, true},
		{TypeCaseDue, TargetGroup, false},
		{TypeTaskAssigned, TargetGroup, false},
		{TypeTaskDue, TargetGroup, false},
		{TypeDocumentAdded, TargetGroup, true},
	}
	for _, tt := range tests {
		if got := tt.typ.AppliesTo(tt.kind); got != tt.wants {
			t.Errorf("%s applies to %s: got %v, want %v", tt.typ, tt.kind, got, tt.wants)
		}
	}
}

func TestTypeSubject(t *testing.T) {
	if TypeCaseDue.Subject() != SubjectCase {
		t.Error("CASE_DUE must be about a case")
	}
	if TypeTaskDue.Subject() != SubjectTask {
		t.Error("TASK_DUE must be about a task")
	}
	if TypeDocumentAdded.Subject() != SubjectDocument {
		t.Error("DOCUMENT_ADDED must be about a document")
	}
}

func TestSettingsIsEmpty(t *testing.T) {
	s := &Settings{Type: TypeCaseAssigned, OwnerKind: TargetUser, OwnerID: "adenorst"}
	if !s.IsEmpty() {
		t.Error("both flags off must be empty")
	}
	s.Dashboard = true
	if s.IsEmpty() {
		t.Error("dashboard on must not be empty")
	}
	s.Dashboard = false
	s.Mail = true
	if s.IsEmpty() {
		t.Error("mail on must not be empty")
	}
}

func TestSettingsValidate(t *testing.T) {
	ok := &Settings{Type: TypeCaseAssigned, OwnerKind: TargetGroup, OwnerID: "backoffice", Dashboard: true}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}

	bad := &Settings{Type: TypeTaskDue, OwnerKind: TargetGroup, OwnerID: "backoffice"}
	if err := bad.Validate(); err == nil {
		t.Error("TASK_DUE settings for a group must be rejected")
	}

	missing := &Settings{Type: TypeCaseAssigned, OwnerKind: TargetUser}
	if err := missing.Validate(); err == nil {
		t.Error("settings without owner id must be rejected")
	}
}

func TestSentRecordValidate(t *testing.T) {
	rec := &SentRecord{
		ID:          uuid.New(),
		Type:        TypeCaseDue,
		TargetKind:  TargetUser,
		TargetID:    "adenorst",
		SubjectKind: SubjectCase,
		SubjectID:   "case-1",
		Detail:      DetailTargetDate,
		SentAt:      time.Now(),
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("valid sent record rejected: %v", err)
	}

	rec.SubjectID = ""
	if err := rec.Validate(); err == nil {
		t.Error("sent record without subject id must be rejected")
	}
}
