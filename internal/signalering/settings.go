package signalering

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/signal"
)

// PutSettings stores an owner's preference for one signal type. A record
// with both flags off expresses no preference and is deleted instead of
// stored, so the settings table only ever holds real opt-ins.
func (s *Service) PutSettings(ctx context.Context, settings *signal.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	if settings.IsEmpty() {
		_, err := s.repo.DeleteSettings(ctx, signal.SettingsFilter{
			Types:     []signal.Type{settings.Type},
			OwnerKind: settings.OwnerKind,
			OwnerID:   settings.OwnerID,
		})
		if err != nil {
			return fmt.Errorf("delete empty settings: %w", err)
		}
		return nil
	}

	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}
	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		return fmt.Errorf("store settings: %w", err)
	}

	s.logger.Debug("settings stored",
		zap.String("type", string(settings.Type)),
		zap.String("owner", settings.OwnerID),
		zap.Bool("dashboard", settings.Dashboard),
		zap.Bool("mail", settings.Mail),
	)
	return nil
}

// ReadSettings returns the owner's preference for one signal type. When no
// record exists a transient default-off record is synthesized; it is never
// persisted.
func (s *Service) ReadSettings(ctx context.Context, t signal.Type, ownerKind signal.TargetKind, ownerID string) (*signal.Settings, error) {
	found, err := s.repo.ListSettings(ctx, signal.SettingsFilter{
		Types:     []signal.Type{t},
		OwnerKind: ownerKind,
		OwnerID:   ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if len(found) == 1 {
		return found[0], nil
	}

	return &signal.Settings{
		Type:      t,
		OwnerKind: ownerKind,
		OwnerID:   ownerID,
	}, nil
}

// ListPossibleSettings returns one record per signal type that applies to
// the owner kind, in catalogue order. Types the owner never configured come
// back as transient default-off records, so a settings screen can render the
// full list in one call.
func (s *Service) ListPossibleSettings(ctx context.Context, ownerKind signal.TargetKind, ownerID string) ([]*signal.Settings, error) {
	stored, err := s.repo.ListSettings(ctx, signal.SettingsFilter{
		OwnerKind: ownerKind,
		OwnerID:   ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	byType := make(map[signal.Type]*signal.Settings, len(stored))
	for _, rec := range stored {
		byType[rec.Type] = rec
	}

	var out []*signal.Settings
	for _, t := range signal.Types() {
		if !t.AppliesTo(ownerKind) {
			continue
		}
		if rec, ok := byType[t]; ok {
			out = append(out, rec)
			continue
		}
		out = append(out, &signal.Settings{
			Type:      t,
			OwnerKind: ownerKind,
			OwnerID:   ownerID,
		})
	}
	return out, nil
}

// DeleteSettings removes all stored preferences matching the filter. Used
// when a user or group is deprovisioned.
func (s *Service) DeleteSettings(ctx context.Context, f signal.SettingsFilter) (int64, error) {
	return s.repo.DeleteSettings(ctx, f)
}
