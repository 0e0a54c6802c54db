package mail

import (
	"fmt"

	"github.com/casewatch/casewatch/internal/signal"
)

// Template is the subject and body text for a notification mail. Bodies may
// contain merge variables ({{case.identification}} and friends) that the
// transport collaborator substitutes from the merge sources.
type Template struct {
	Subject string
	Body    string
}

// TemplateResolver maps a (type, detail) pair to a mail template.
type TemplateResolver interface {
	Resolve(t signal.Type, detail signal.Detail) (Template, error)
}

type templateKey struct {
	typ    signal.Type
	detail signal.Detail
}

// Catalogue is the built-in template set. CASE_DUE is split on the detail
// because the two date fields warrant different wording; every other type
// resolves on type alone.
type Catalogue struct {
	templates map[templateKey]Template
}

// NewCatalogue returns the default template catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{
		templates: map[templateKey]Template{
			{typ: signal.TypeCaseAssigned}: {
				Subject: "Case {{case.identification}} has been assigned to you",
				Body:    "Case {{case.identification}} ({{case.description}}) has been assigned to you.",
			},
			{typ: signal.TypeCaseDocumentAdded}: {
				Subject: "A document was added to case {{case.identification}}",
				Body:    "Document {{document.title}} was added to case {{case.identification}}.",
			},
			{typ: signal.TypeCaseDue, detail: signal.DetailTargetDate}: {
				Subject: "Case {{case.identification}} is approaching its target date",
				Body:    "The target completion date of case {{case.identification}} is {{case.target_date}}.",
			},
			{typ: signal.TypeCaseDue, detail: signal.DetailFatalDate}: {
				Subject: "Case {{case.identification}} is approaching its statutory deadline",
				Body:    "The statutory deadline of case {{case.identification}} is {{case.fatal_date}}.",
			},
			{typ: signal.TypeTaskAssigned}: {
				Subject: "Task {{task.name}} has been assigned to you",
				Body:    "Task {{task.name}} on case {{case.identification}} has been assigned to you.",
			},
			{typ: signal.TypeTaskDue, detail: signal.DetailTargetDate}: {
				Subject: "Task {{task.name}} is due",
				Body:    "Task {{task.name}} on case {{case.identification}} is due on {{task.due_date}}.",
			},
			{typ: signal.TypeDocumentAdded}: {
				Subject: "Document {{document.title}} needs your attention",
				Body:    "Document {{document.title}} was added to your work list.",
			},
		},
	}
}

// Resolve returns the template for the (type, detail) pair. Types that are
// not split on detail fall back to the type-only entry.
func (c *Catalogue) Resolve(t signal.Type, detail signal.Detail) (Template, error) {
	if tpl, ok := c.templates[templateKey{typ: t, detail: detail}]; ok {
		return tpl, nil
	}
	if tpl, ok := c.templates[templateKey{typ: t}]; ok {
		return tpl, nil
	}
	return Template{}, fmt.Errorf("no mail template for type %s detail %q", t, detail)
}
