package clients

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/mail"
	"github.com/casewatch/casewatch/internal/signal"
)

// DirectoryClient resolves signal targets (users and groups) to mail
// addresses via the identity directory API.
type DirectoryClient struct {
	baseClient
}

// NewDirectoryClient creates a client for the identity directory.
func NewDirectoryClient(cfg Config, logger *zap.Logger) (*DirectoryClient, error) {
	base, err := newBaseClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("directory client: %w", err)
	}
	return &DirectoryClient{baseClient: base}, nil
}

type directoryContact struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// ResolveContact looks up the mail address for a signal target. A target
// unknown to the directory, or one without a mail address, resolves to nil
// with no error; the caller decides what a missing recipient means.
func (c *DirectoryClient) ResolveContact(ctx context.Context, kind signal.TargetKind, id string) (*mail.Address, error) {
	var path string
	switch kind {
	case signal.TargetUser:
		path = "/v1/users/" + id
	case signal.TargetGroup:
		path = "/v1/groups/" + id
	default:
		return nil, fmt.Errorf("unknown target kind %q", kind)
	}

	var out directoryContact
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Debug("target not found in directory",
				zap.String("kind", string(kind)),
				zap.String("id", id),
			)
			return nil, nil
		}
		return nil, err
	}

	if out.Email == "" {
		return nil, nil
	}
	return &mail.Address{Name: out.DisplayName, Email: out.Email}, nil
}
