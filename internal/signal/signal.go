package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Signal is a single notification occurrence shown on a dashboard and/or
// mailed. Signals are never updated in place; they are created and deleted.
type Signal struct {
	ID          uuid.UUID   `json:"id"`
	Type        Type        `json:"type"`
	TargetKind  TargetKind  `json:"target_kind"`
	TargetID    string      `json:"target_id"`
	SubjectKind SubjectKind `json:"subject_kind"`
	SubjectID   string      `json:"subject_id"`
	Detail      Detail      `json:"detail,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SetTargetUser addresses the signal to a single user.
func (s *Signal) SetTargetUser(userID string) {
	s.TargetKind = TargetUser
	s.TargetID = userID
}

// SetTargetGroup addresses the signal to a work group.
func (s *Signal) SetTargetGroup(groupID string) {
	s.TargetKind = TargetGroup
	s.TargetID = groupID
}

// SetSubject records the business object the signal is about. The subject
// kind is taken from the signal's type.
func (s *Signal) SetSubject(subjectID string) {
	s.SubjectKind = s.Type.Subject()
	s.SubjectID = subjectID
}

// Validate checks the signal against the type catalogue. A signal must carry
// a known type, a target kind legal for that type, and the subject kind the
// type declares.
func (s *Signal) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("signal: unknown type %q", s.Type)
	}
	if !s.TargetKind.Valid() {
		return fmt.Errorf("signal: unknown target kind %q", s.TargetKind)
	}
	if !s.Type.AppliesTo(s.TargetKind) {
		return fmt.Errorf("signal: type %s does not apply to target kind %s", s.Type, s.TargetKind)
	}
	if s.TargetID == "" {
		return fmt.Errorf("signal: target id is required")
	}
	if s.SubjectKind != s.Type.Subject() {
		return fmt.Errorf("signal: type %s requires subject kind %s, got %q", s.Type, s.Type.Subject(), s.SubjectKind)
	}
	if s.SubjectID == "" {
		return fmt.Errorf("signal: subject id is required")
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("signal: created at is required")
	}
	return nil
}

// GroupKey identifies the (target, type) pair a signal belongs to on a
// dashboard. Deletion events are coalesced on this key.
func (s *Signal) GroupKey() string {
	return string(s.TargetKind) + ":" + s.TargetID + ";" + string(s.Type)
}

// Settings is the per-owner, per-type opt-in record. A record with both flags
// off means "no preference" and must never be persisted; it is deleted
// instead.
type Settings struct {
	ID        uuid.UUID  `json:"id"`
	Type      Type       `json:"type"`
	OwnerKind TargetKind `json:"owner_kind"`
	OwnerID   string     `json:"owner_id"`
	Dashboard bool       `json:"dashboard"`
	Mail      bool       `json:"mail"`
}

// IsEmpty reports whether the record expresses no preference at all.
func (s *Settings) IsEmpty() bool {
	return !s.Dashboard && !s.Mail
}

// Validate checks the settings record against the type catalogue.
func (s *Settings) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("settings: unknown type %q", s.Type)
	}
	if !s.OwnerKind.Valid() {
		return fmt.Errorf("settings: unknown owner kind %q", s.OwnerKind)
	}
	if !s.Type.AppliesTo(s.OwnerKind) {
		return fmt.Errorf("settings: type %s does not apply to owner kind %s", s.Type, s.OwnerKind)
	}
	if s.OwnerID == "" {
		return fmt.Errorf("settings: owner id is required")
	}
	return nil
}

// SentRecord is the dedup fence: proof that a mail for the given
// (target, type, subject, detail) key was already dispatched. At most one
// record may exist per key at any time.
type SentRecord struct {
	ID          uuid.UUID   `json:"id"`
	Type        Type        `json:"type"`
	TargetKind  TargetKind  `json:"target_kind"`
	TargetID    string      `json:"target_id"`
	SubjectKind SubjectKind `json:"subject_kind"`
	SubjectID   string      `json:"subject_id"`
	Detail      Detail      `json:"detail,omitempty"`
	SentAt      time.Time   `json:"sent_at"`
}

// Validate checks the sent record's key fields.
func (r *SentRecord) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("sent record: unknown type %q", r.Type)
	}
	if !r.TargetKind.Valid() {
		return fmt.Errorf("sent record: unknown target kind %q", r.TargetKind)
	}
	if r.TargetID == "" {
		return fmt.Errorf("sent record: target id is required")
	}
	if !r.SubjectKind.Valid() {
		return fmt.Errorf("sent record: unknown subject kind %q", r.SubjectKind)
	}
	if r.SubjectID == "" {
		return fmt.Errorf("sent record: subject id is required")
	}
	if r.SentAt.IsZero() {
		return fmt.Errorf("sent record: sent at is required")
	}
	return nil
}
