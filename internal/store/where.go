package store

import (
	"fmt"
	"strings"

	"github.com/casewatch/casewatch/internal/signal"
)

// whereBuilder accumulates conjunctive equality predicates. It is the single
// source of truth for turning the three filter types into SQL, so the query
// and delete paths can never drift apart.
type whereBuilder struct {
	conds []string
	args  []any
}

func (b *whereBuilder) eq(column string, value any) {
	b.args = append(b.args, value)
	b.conds = append(b.conds, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *whereBuilder) in(column string, values []string) {
	b.args = append(b.args, values)
	b.conds = append(b.conds, fmt.Sprintf("%s = ANY($%d)", column, len(b.args)))
}

// clause renders the WHERE clause, or an empty string when no predicate was
// added.
func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func typeStrings(types []signal.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func signalWhere(f signal.Filter) *whereBuilder {
	b := &whereBuilder{}
	if len(f.Types) > 0 {
		b.in("type", typeStrings(f.Types))
	}
	if f.TargetKind != "" {
		b.eq("target_kind", string(f.TargetKind))
	}
	if f.TargetID != "" {
		b.eq("target_id", f.TargetID)
	}
	if f.SubjectKind != "" {
		b.eq("subject_kind", string(f.SubjectKind))
	}
	if f.SubjectID != "" {
		b.eq("subject_id", f.SubjectID)
	}
	if f.Detail != "" {
		b.eq("detail", string(f.Detail))
	}
	return b
}

func settingsWhere(f signal.SettingsFilter) *whereBuilder {
	b := &whereBuilder{}
	if len(f.Types) > 0 {
		b.in("type", typeStrings(f.Types))
	}
	if f.OwnerKind != "" {
		b.eq("owner_kind", string(f.OwnerKind))
	}
	if f.OwnerID != "" {
		b.eq("owner_id", f.OwnerID)
	}
	return b
}

func sentRecordWhere(f signal.SentRecordFilter) *whereBuilder {
	b := &whereBuilder{}
	if len(f.Types) > 0 {
		b.in("type", typeStrings(f.Types))
	}
	if f.TargetKind != "" {
		b.eq("target_kind", string(f.TargetKind))
	}
	if f.TargetID != "" {
		b.eq("target_id", f.TargetID)
	}
	if f.SubjectKind != "" {
		b.eq("subject_kind", string(f.SubjectKind))
	}
	if f.SubjectID != "" {
		b.eq("subject_id", f.SubjectID)
	}
	if f.Detail != "" {
		b.eq("detail", string(f.Detail))
	}
	return b
}
