package mail

import (
	"context"
	"fmt"

	"github.com/casewatch/casewatch/internal/signal"
	"github.com/casewatch/casewatch/internal/subject"
)

// CaseReader fetches cases from the external case API.
type CaseReader interface {
	ReadCase(ctx context.Context, id string) (*subject.Case, error)
}

// TaskReader fetches tasks from the external workflow API.
type TaskReader interface {
	ReadTask(ctx context.Context, id string) (*subject.Task, error)
}

// DocumentReader fetches documents from the external document API.
type DocumentReader interface {
	ReadDocument(ctx context.Context, id string) (*subject.Document, error)
}

type resolveFunc func(ctx context.Context, sig *signal.Signal) ([]subject.MergeSource, error)

// SourceResolver resolves the ordered merge sources for a signal's mail by
// dispatching on the subject kind. Any fetch failure aborts the whole
// resolution; a mail is sent with all of its sources or not at all.
type SourceResolver struct {
	cases     CaseReader
	tasks     TaskReader
	documents DocumentReader

	table map[signal.SubjectKind]resolveFunc
}

// NewSourceResolver builds the resolver and its dispatch table.
func NewSourceResolver(cases CaseReader, tasks TaskReader, documents DocumentReader) *SourceResolver {
	r := &SourceResolver{
		cases:     cases,
		tasks:     tasks,
		documents: documents,
	}
	r.table = map[signal.SubjectKind]resolveFunc{
		signal.SubjectCase:     r.resolveCase,
		signal.SubjectTask:     r.resolveTask,
		signal.SubjectDocument: r.resolveDocument,
	}
	return r
}

// Resolve returns the merge sources for the signal, in template order.
func (r *SourceResolver) Resolve(ctx context.Context, sig *signal.Signal) ([]subject.MergeSource, error) {
	fn, ok := r.table[sig.SubjectKind]
	if !ok {
		return nil, fmt.Errorf("no mail source resolver for subject kind %q", sig.SubjectKind)
	}
	return fn(ctx, sig)
}

func (r *SourceResolver) resolveCase(ctx context.Context, sig *signal.Signal) ([]subject.MergeSource, error) {
	c, err := r.cases.ReadCase(ctx, sig.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("read case %s: %w", sig.SubjectID, err)
	}
	sources := []subject.MergeSource{*c}

	// For document-added signals the detail carries the document id; the
	// template needs the document fields as well.
	if sig.Type == signal.TypeCaseDocumentAdded && sig.Detail != "" {
		d, err := r.documents.ReadDocument(ctx, string(sig.Detail))
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", sig.Detail, err)
		}
		sources = append(sources, *d)
	}
	return sources, nil
}

func (r *SourceResolver) resolveTask(ctx context.Context, sig *signal.Signal) ([]subject.MergeSource, error) {
	t, err := r.tasks.ReadTask(ctx, sig.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("read task %s: %w", sig.SubjectID, err)
	}
	// Task mail templates need case-level fields that the task object does
	// not carry, so the task's case is fetched and appended.
	c, err := r.cases.ReadCase(ctx, t.CaseID)
	if err != nil {
		return nil, fmt.Errorf("read case %s for task %s: %w", t.CaseID, t.ID, err)
	}
	return []subject.MergeSource{*t, *c}, nil
}

func (r *SourceResolver) resolveDocument(ctx context.Context, sig *signal.Signal) ([]subject.MergeSource, error) {
	d, err := r.documents.ReadDocument(ctx, sig.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", sig.SubjectID, err)
	}
	return []subject.MergeSource{*d}, nil
}
