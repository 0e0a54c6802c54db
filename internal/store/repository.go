package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/signal"
)

const signalColumns = "id, type, target_kind, target_id, subject_kind, subject_id, detail, created_at"
const settingsColumns = "id, type, owner_kind, owner_id, dashboard, mail"
const sentRecordColumns = "id, type, target_kind, target_id, subject_kind, subject_id, detail, sent_at"

// Repository handles database operations for the three signalering record
// kinds. It contains no business logic beyond predicate building.
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates a new signalering repository.
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateSignal inserts a new signal.
func (r *Repository) CreateSignal(ctx context.Context, s *signal.Signal) error {
	query := `
		INSERT INTO signals (
			id, type, target_kind, target_id, subject_kind, subject_id, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(
		ctx,
		query,
		s.ID,
		string(s.Type),
		string(s.TargetKind),
		s.TargetID,
		string(s.SubjectKind),
		s.SubjectID,
		string(s.Detail),
		s.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create signal",
			zap.Error(err),
			zap.String("signal_id", s.ID.String()),
		)
		return fmt.Errorf("insert signal: %w", err)
	}

	return nil
}

// ListSignals returns signals matching the filter, newest first. A nil page
// returns all matches.
func (r *Repository) ListSignals(ctx context.Context, f signal.Filter, page *signal.Page) ([]*signal.Signal, error) {
	b := signalWhere(f)
	query := "SELECT " + signalColumns + " FROM signals" + b.clause() + " ORDER BY created_at DESC"
	args := b.args
	if page != nil {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, page.Limit, page.Offset)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// CountSignals counts signals matching the filter.
func (r *Repository) CountSignals(ctx context.Context, f signal.Filter) (int64, error) {
	b := signalWhere(f)
	query := "SELECT COUNT(*) FROM signals" + b.clause()

	var count int64
	if err := r.db.Pool().QueryRow(ctx, query, b.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count signals: %w", err)
	}
	return count, nil
}

// LatestSignalAt returns the creation time of the newest signal matching the
// filter, or nil when none match.
func (r *Repository) LatestSignalAt(ctx context.Context, f signal.Filter) (*time.Time, error) {
	b := signalWhere(f)
	query := "SELECT created_at FROM signals" + b.clause() + " ORDER BY created_at DESC LIMIT 1"

	var at time.Time
	err := r.db.Pool().QueryRow(ctx, query, b.args...).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest signal: %w", err)
	}
	return &at, nil
}

// DeleteSignals deletes all signals matching the filter and returns the
// deleted rows so the caller can coalesce screen events.
func (r *Repository) DeleteSignals(ctx context.Context, f signal.Filter) ([]*signal.Signal, error) {
	b := signalWhere(f)
	query := "DELETE FROM signals" + b.clause() + " RETURNING " + signalColumns

	rows, err := r.db.Pool().Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("delete signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// DeleteSignalsOlderThan removes all signals created before the cutoff,
// regardless of type. Returns the number of deleted rows.
func (r *Repository) DeleteSignalsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool().Exec(ctx, "DELETE FROM signals WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old signals: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSignals(rows pgx.Rows) ([]*signal.Signal, error) {
	var signals []*signal.Signal
	for rows.Next() {
		var s signal.Signal
		var typ, targetKind, subjectKind, detail string
		err := rows.Scan(
			&s.ID,
			&typ,
			&targetKind,
			&s.TargetID,
			&subjectKind,
			&s.SubjectID,
			&detail,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		s.Type = signal.Type(typ)
		s.TargetKind = signal.TargetKind(targetKind)
		s.SubjectKind = signal.SubjectKind(subjectKind)
		s.Detail = signal.Detail(detail)
		signals = append(signals, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return signals, nil
}

// UpsertSettings inserts or updates a settings record, keyed by
// (type, owner_kind, owner_id).
func (r *Repository) UpsertSettings(ctx context.Context, s *signal.Settings) error {
	query := `
		INSERT INTO notification_settings (
			id, type, owner_kind, owner_id, dashboard, mail
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (type, owner_kind, owner_id)
		DO UPDATE SET dashboard = EXCLUDED.dashboard, mail = EXCLUDED.mail
		RETURNING id
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		s.ID,
		string(s.Type),
		string(s.OwnerKind),
		s.OwnerID,
		s.Dashboard,
		s.Mail,
	).Scan(&s.ID)
	if err != nil {
		r.logger.Error("failed to upsert settings",
			zap.Error(err),
			zap.String("type", string(s.Type)),
			zap.String("owner_id", s.OwnerID),
		)
		return fmt.Errorf("upsert settings: %w", err)
	}

	return nil
}

// ListSettings returns settings records matching the filter.
func (r *Repository) ListSettings(ctx context.Context, f signal.SettingsFilter) ([]*signal.Settings, error) {
	b := settingsWhere(f)
	query := "SELECT " + settingsColumns + " FROM notification_settings" + b.clause()

	rows, err := r.db.Pool().Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	var out []*signal.Settings
	for rows.Next() {
		var s signal.Settings
		var typ, ownerKind string
		if err := rows.Scan(&s.ID, &typ, &ownerKind, &s.OwnerID, &s.Dashboard, &s.Mail); err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		s.Type = signal.Type(typ)
		s.OwnerKind = signal.TargetKind(ownerKind)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// DeleteSettings deletes settings records matching the filter. Returns the
// number of deleted rows.
func (r *Repository) DeleteSettings(ctx context.Context, f signal.SettingsFilter) (int64, error) {
	b := settingsWhere(f)
	tag, err := r.db.Pool().Exec(ctx, "DELETE FROM notification_settings"+b.clause(), b.args...)
	if err != nil {
		return 0, fmt.Errorf("delete settings: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CreateSentRecord inserts a sent record. The unique index over the key
// fields makes this an upsert on the sent_at timestamp, so at most one record
// per (target, type, subject, detail) key can exist even under races.
func (r *Repository) CreateSentRecord(ctx context.Context, rec *signal.SentRecord) error {
	query := `
		INSERT INTO sent_records (
			id, type, target_kind, target_id, subject_kind, subject_id, detail, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (type, target_kind, target_id, subject_kind, subject_id, detail)
		DO UPDATE SET sent_at = EXCLUDED.sent_at
		RETURNING id
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		rec.ID,
		string(rec.Type),
		string(rec.TargetKind),
		rec.TargetID,
		string(rec.SubjectKind),
		rec.SubjectID,
		string(rec.Detail),
		rec.SentAt,
	).Scan(&rec.ID)
	if err != nil {
		r.logger.Error("failed to create sent record",
			zap.Error(err),
			zap.String("type", string(rec.Type)),
			zap.String("target_id", rec.TargetID),
			zap.String("subject_id", rec.SubjectID),
		)
		return fmt.Errorf("insert sent record: %w", err)
	}

	return nil
}

// FindSentRecord returns the first sent record matching the filter, or nil
// when none match. A missing record is the valid "nothing sent yet" state,
// not an error.
func (r *Repository) FindSentRecord(ctx context.Context, f signal.SentRecordFilter) (*signal.SentRecord, error) {
	b := sentRecordWhere(f)
	query := "SELECT " + sentRecordColumns + " FROM sent_records" + b.clause() + " LIMIT 1"

	var rec signal.SentRecord
	var typ, targetKind, subjectKind, detail string
	err := r.db.Pool().QueryRow(ctx, query, b.args...).Scan(
		&rec.ID,
		&typ,
		&targetKind,
		&rec.TargetID,
		&subjectKind,
		&rec.SubjectID,
		&detail,
		&rec.SentAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query sent record: %w", err)
	}
	rec.Type = signal.Type(typ)
	rec.TargetKind = signal.TargetKind(targetKind)
	rec.SubjectKind = signal.SubjectKind(subjectKind)
	rec.Detail = signal.Detail(detail)
	return &rec, nil
}

// DeleteSentRecords deletes sent records matching the filter. Returns the
// number of deleted rows (0 is not an error).
func (r *Repository) DeleteSentRecords(ctx context.Context, f signal.SentRecordFilter) (int64, error) {
	b := sentRecordWhere(f)
	tag, err := r.db.Pool().Exec(ctx, "DELETE FROM sent_records"+b.clause(), b.args...)
	if err != nil {
		return 0, fmt.Errorf("delete sent records: %w", err)
	}
	return tag.RowsAffected(), nil
}
