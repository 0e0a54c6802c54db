package signalering

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/casewatch/casewatch/internal/events"
	"github.com/casewatch/casewatch/internal/mail"
	"github.com/casewatch/casewatch/internal/signal"
	"github.com/casewatch/casewatch/internal/subject"
)

// fakeRepo is an in-memory Repository for orchestrator tests.
type fakeRepo struct {
	mu          sync.Mutex
	signals     []*signal.Signal
	settings    []*signal.Settings
	sentRecords []*signal.SentRecord

	failCreate bool
}

var errRepoDown = errors.New("repository unavailable")

func (r *fakeRepo) CreateSignal(_ context.Context, s *signal.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errRepoDown
	}
	cp := *s
	r.signals = append(r.signals, &cp)
	return nil
}

func matchSignal(s *signal.Signal, f signal.Filter) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if s.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TargetKind != "" && s.TargetKind != f.TargetKind {
		return false
	}
	if f.TargetID != "" && s.TargetID != f.TargetID {
		return false
	}
	if f.SubjectKind != "" && s.SubjectKind != f.SubjectKind {
		return false
	}
	if f.SubjectID != "" && s.SubjectID != f.SubjectID {
		return false
	}
	if f.Detail != "" && s.Detail != f.Detail {
		return false
	}
	return true
}

func (r *fakeRepo) ListSignals(_ context.Context, f signal.Filter, page *signal.Page) ([]*signal.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*signal.Signal
	for _, s := range r.signals {
		if matchSignal(s, f) {
			out = append(out, s)
		}
	}
	if page != nil {
		if page.Offset >= len(out) {
			return nil, nil
		}
		out = out[page.Offset:]
		if page.Limit > 0 && page.Limit < len(out) {
			out = out[:page.Limit]
		}
	}
	return out, nil
}

func (r *fakeRepo) CountSignals(ctx context.Context, f signal.Filter) (int64, error) {
	out, err := r.ListSignals(ctx, f, nil)
	return int64(len(out)), err
}

func (r *fakeRepo) LatestSignalAt(ctx context.Context, f signal.Filter) (*time.Time, error) {
	out, err := r.ListSignals(ctx, f, nil)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	latest := out[0].CreatedAt
	for _, s := range out[1:] {
		if s.CreatedAt.After(latest) {
			latest = s.CreatedAt
		}
	}
	return &latest, nil
}

func (r *fakeRepo) DeleteSignals(_ context.Context, f signal.Filter) ([]*signal.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted, kept []*signal.Signal
	for _, s := range r.signals {
		if matchSignal(s, f) {
			deleted = append(deleted, s)
		} else {
			kept = append(kept, s)
		}
	}
	r.signals = kept
	return deleted, nil
}

func (r *fakeRepo) DeleteSignalsOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*signal.Signal
	var n int64
	for _, s := range r.signals {
		if s.CreatedAt.Before(cutoff) {
			n++
		} else {
			kept = append(kept, s)
		}
	}
	r.signals = kept
	return n, nil
}

func matchSettings(s *signal.Settings, f signal.SettingsFilter) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if s.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.OwnerKind != "" && s.OwnerKind != f.OwnerKind {
		return false
	}
	if f.OwnerID != "" && s.OwnerID != f.OwnerID {
		return false
	}
	return true
}

func (r *fakeRepo) UpsertSettings(_ context.Context, s *signal.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.settings {
		if existing.Type == s.Type && existing.OwnerKind == s.OwnerKind && existing.OwnerID == s.OwnerID {
			cp := *s
			cp.ID = existing.ID
			r.settings[i] = &cp
			return nil
		}
	}
	cp := *s
	r.settings = append(r.settings, &cp)
	return nil
}

func (r *fakeRepo) ListSettings(_ context.Context, f signal.SettingsFilter) ([]*signal.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*signal.Settings
	for _, s := range r.settings {
		if matchSettings(s, f) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteSettings(_ context.Context, f signal.SettingsFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*signal.Settings
	var n int64
	for _, s := range r.settings {
		if matchSettings(s, f) {
			n++
		} else {
			kept = append(kept, s)
		}
	}
	r.settings = kept
	return n, nil
}

func matchSentRecord(rec *signal.SentRecord, f signal.SentRecordFilter) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if rec.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TargetKind != "" && rec.TargetKind != f.TargetKind {
		return false
	}
	if f.TargetID != "" && rec.TargetID != f.TargetID {
		return false
	}
	if f.SubjectKind != "" && rec.SubjectKind != f.SubjectKind {
		return false
	}
	if f.SubjectID != "" && rec.SubjectID != f.SubjectID {
		return false
	}
	if f.Detail != "" && rec.Detail != f.Detail {
		return false
	}
	return true
}

func (r *fakeRepo) CreateSentRecord(_ context.Context, rec *signal.SentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.sentRecords {
		if existing.Type == rec.Type && existing.TargetKind == rec.TargetKind &&
			existing.TargetID == rec.TargetID && existing.SubjectKind == rec.SubjectKind &&
			existing.SubjectID == rec.SubjectID && existing.Detail == rec.Detail {
			cp := *rec
			cp.ID = existing.ID
			r.sentRecords[i] = &cp
			return nil
		}
	}
	cp := *rec
	r.sentRecords = append(r.sentRecords, &cp)
	return nil
}

func (r *fakeRepo) FindSentRecord(_ context.Context, f signal.SentRecordFilter) (*signal.SentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.sentRecords {
		if matchSentRecord(rec, f) {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) DeleteSentRecords(_ context.Context, f signal.SentRecordFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*signal.SentRecord
	var n int64
	for _, rec := range r.sentRecords {
		if matchSentRecord(rec, f) {
			n++
		} else {
			kept = append(kept, rec)
		}
	}
	r.sentRecords = kept
	return n, nil
}

// fakePublisher records screen events and can be made to fail.
type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

// fakeDirectory maps target ids to mail addresses. Unknown ids resolve to
// nil.
type fakeDirectory struct {
	contacts map[string]*mail.Address
	err      error
}

func (d *fakeDirectory) ResolveContact(_ context.Context, _ signal.TargetKind, id string) (*mail.Address, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.contacts[id], nil
}

// fakeSources returns a fixed merge source set.
type fakeSources struct {
	sources []subject.MergeSource
	err     error
}

func (f *fakeSources) Resolve(context.Context, *signal.Signal) ([]subject.MergeSource, error) {
	return f.sources, f.err
}

// fakeMailer records dispatched messages and can be made to fail.
type fakeMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message, _ []subject.MergeSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}
