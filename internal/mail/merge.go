package mail

import (
	"strings"
	"time"

	"github.com/casewatch/casewatch/internal/subject"
)

const dateLayout = "02-01-2006"

// Render substitutes the template's merge variables from the sources and
// returns the final subject and body. Variables without a source value are
// replaced by an empty string so a missing optional date never leaks template
// syntax into a mail.
func Render(tpl Template, sources []subject.MergeSource) (string, string) {
	vars := mergeVars(sources)

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)

	return scrub(r.Replace(tpl.Subject)), scrub(r.Replace(tpl.Body))
}

func mergeVars(sources []subject.MergeSource) map[string]string {
	vars := make(map[string]string)
	for _, src := range sources {
		switch s := src.(type) {
		case subject.Case:
			vars["case.identification"] = s.Identification
			vars["case.description"] = s.Description
			vars["case.target_date"] = formatDate(s.TargetDate)
			vars["case.fatal_date"] = formatDate(s.FatalDate)
		case subject.Task:
			vars["task.name"] = s.Name
			vars["task.due_date"] = formatDate(s.DueDate)
		case subject.Document:
			vars["document.title"] = s.Title
		}
	}
	return vars
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// scrub drops variables no source filled in.
func scrub(s string) string {
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], "}}")
		if end < 0 {
			return s
		}
		s = s[:start] + s[start+end+2:]
	}
}
