// Package subject holds the read models for the business objects signals are
// about. They are fetched from the external case/task/document APIs and used
// as mail-merge sources; this engine never mutates them.
package subject

import "time"

// Case is a case as served by the case read API.
type Case struct {
	ID             string     `json:"id"`
	Identification string     `json:"identification"`
	CaseTypeID     string     `json:"case_type_id"`
	Description    string     `json:"description"`
	AssigneeID     string     `json:"assignee_id"`
	GroupID        string     `json:"group_id"`
	TargetDate     *time.Time `json:"target_date,omitempty"`
	FatalDate      *time.Time `json:"fatal_date,omitempty"`
	Closed         bool       `json:"closed"`
}

// CaseType describes a case type and its due-date warning windows. A nil
// window means that date field is never scanned for this case type.
type CaseType struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	TargetDateWarningDays *int   `json:"target_date_warning_days,omitempty"`
	FatalDateWarningDays  *int   `json:"fatal_date_warning_days,omitempty"`
}

// Task is an open workflow task. Tasks carry a back-reference to the case
// they belong to.
type Task struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	AssigneeID string     `json:"assignee_id"`
	CaseID     string     `json:"case_id"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

// Document is a document attached to a case or routed to a work list.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MergeSource marks a read model as usable as a mail-merge source. The kind
// tells the template collaborator which variable namespace the object fills.
type MergeSource interface {
	MergeKind() string
}

func (Case) MergeKind() string     { return "case" }
func (Task) MergeKind() string     { return "task" }
func (Document) MergeKind() string { return "document" }
