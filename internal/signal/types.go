// Package signal defines the core signalering entities: the Signal itself,
// the per-owner NotificationSettings and the SentRecord dedup fence, together
// with the notification type catalogue and the search filters used by the
// repository.
package signal

// TargetKind identifies who a signal is addressed to.
type TargetKind string

const (
	TargetUser  TargetKind = "USER"
	TargetGroup TargetKind = "GROUP"
)

// Valid reports whether the target kind is a known value.
func (k TargetKind) Valid() bool {
	return k == TargetUser || k == TargetGroup
}

// SubjectKind identifies the kind of business object a signal is about.
type SubjectKind string

const (
	SubjectCase     SubjectKind = "CASE"
	SubjectTask     SubjectKind = "TASK"
	SubjectDocument SubjectKind = "DOCUMENT"
)

// Valid reports whether the subject kind is a known value.
func (k SubjectKind) Valid() bool {
	return k == SubjectCase || k == SubjectTask || k == SubjectDocument
}

// Detail is an optional free-form qualifier on a signal. For due-date signals
// it records which date field fired; for document signals it carries the
// document id.
type Detail string

const (
	DetailTargetDate Detail = "TARGET_DATE"
	DetailFatalDate  Detail = "FATAL_DATE"
)

// Type enumerates the notification kinds the engine knows about.
type Type string

const (
	TypeCaseAssigned      Type = "CASE_ASSIGNED"
	TypeCaseDocumentAdded Type = "CASE_DOCUMENT_ADDED"
	TypeCaseDue           Type = "CASE_DUE"
	TypeTaskAssigned      Type = "TASK_ASSIGNED"
	TypeTaskDue           Type = "TASK_DUE"
	TypeDocumentAdded     Type = "DOCUMENT_ADDED"
)

type typeInfo struct {
	subject SubjectKind
	targets []TargetKind
}

// typeCatalogue declares, per notification type, the subject kind it is about
// and the target kinds it may be addressed to. Declaration order here is the
// canonical presentation order for settings listings.
var typeCatalogue = map[Type]typeInfo{
	TypeCaseAssigned:      {subject: SubjectCase, targets: []TargetKind{TargetUser, TargetGroup}},
	TypeCaseDocumentAdded: {subject: SubjectCase, targets: []TargetKind{TargetUser, TargetGroup}},
	TypeCaseDue:           {subject: SubjectCase, targets: []TargetKind{TargetUser}},
	TypeTaskAssigned:      {subject: SubjectTask, targets: []TargetKind{TargetUser}},
	TypeTaskDue:           {subject: SubjectTask, targets: []TargetKind{TargetUser}},
	TypeDocumentAdded:     {subject: SubjectDocument, targets: []TargetKind{TargetUser, TargetGroup}},
}

// typeOrder fixes the catalogue iteration order (maps do not).
var typeOrder = []Type{
	TypeCaseAssigned,
	TypeCaseDocumentAdded,
	TypeCaseDue,
	TypeTaskAssigned,
	TypeTaskDue,
	TypeDocumentAdded,
}

// Types returns all known notification types in catalogue order.
func Types() []Type {
	out := make([]Type, len(typeOrder))
	copy(out, typeOrder)
	return out
}

// Valid reports whether the type is part of the catalogue.
func (t Type) Valid() bool {
	_, ok := typeCatalogue[t]
	return ok
}

// Subject returns the subject kind signals of this type are about.
func (t Type) Subject() SubjectKind {
	return typeCatalogue[t].subject
}

// AppliesTo reports whether signals of this type may be addressed to the
// given target kind.
func (t Type) AppliesTo(kind TargetKind) bool {
	for _, k := range typeCatalogue[t].targets {
		if k == kind {
			return true
		}
	}
	return false
}

// Ordinal returns the position of the type in the catalogue, for sorting.
// Unknown types sort last.
func (t Type) Ordinal() int {
	for i, o := range typeOrder {
		if o == t {
			return i
		}
	}
	return len(typeOrder)
}
