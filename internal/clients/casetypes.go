package clients

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/subject"
)

// CaseTypeClient reads the case-type catalogue, including the due-date
// warning windows the scanner needs.
type CaseTypeClient struct {
	baseClient
}

// NewCaseTypeClient creates a client for the case-type catalogue.
func NewCaseTypeClient(cfg Config, logger *zap.Logger) (*CaseTypeClient, error) {
	base, err := newBaseClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("case type client: %w", err)
	}
	return &CaseTypeClient{baseClient: base}, nil
}

// ListCaseTypes fetches all case types.
func (c *CaseTypeClient) ListCaseTypes(ctx context.Context) ([]subject.CaseType, error) {
	var out struct {
		CaseTypes []subject.CaseType `json:"case_types"`
	}
	if err := c.getJSON(ctx, "/v1/case-types", nil, &out); err != nil {
		return nil, err
	}
	return out.CaseTypes, nil
}
