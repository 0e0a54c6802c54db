package clients

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/subject"
)

// CaseClient reads cases from the case API. It satisfies mail.CaseReader.
type CaseClient struct {
	baseClient
}

// NewCaseClient creates a client for the case read API.
func NewCaseClient(cfg Config, logger *zap.Logger) (*CaseClient, error) {
	base, err := newBaseClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("case client: %w", err)
	}
	return &CaseClient{baseClient: base}, nil
}

// ReadCase fetches a single case by id.
func (c *CaseClient) ReadCase(ctx context.Context, id string) (*subject.Case, error) {
	var out subject.Case
	if err := c.getJSON(ctx, "/v1/cases/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
