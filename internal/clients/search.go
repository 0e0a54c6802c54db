package clients

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CaseDateQuery selects open, assigned cases of one case type whose given
// date field falls inside the inclusive [From, To] range. Either bound may be
// nil for an open-ended range. Closed and unassigned cases never match.
type CaseDateQuery struct {
	CaseTypeID string     `json:"case_type_id"`
	DateField  string     `json:"date_field"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// CaseHit is a search result row. The scanner only needs the case id and the
// assignee it would notify.
type CaseHit struct {
	CaseID     string `json:"case_id"`
	AssigneeID string `json:"assignee_id"`
}

// SearchClient queries the search index for cases by date range.
type SearchClient struct {
	baseClient
}

// NewSearchClient creates a client for the search index.
func NewSearchClient(cfg Config, logger *zap.Logger) (*SearchClient, error) {
	base, err := newBaseClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("search client: %w", err)
	}
	return &SearchClient{baseClient: base}, nil
}

// FindCases runs a date-range query against the index and returns the hits.
func (c *SearchClient) FindCases(ctx context.Context, q CaseDateQuery) ([]CaseHit, error) {
	if q.CaseTypeID == "" {
		return nil, fmt.Errorf("case type id is required")
	}
	if q.DateField == "" {
		return nil, fmt.Errorf("date field is required")
	}

	var out struct {
		Hits []CaseHit `json:"hits"`
	}
	if err := c.postJSON(ctx, "/v1/search/cases", q, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("case date query",
		zap.String("case_type_id", q.CaseTypeID),
		zap.String("date_field", q.DateField),
		zap.Int("hits", len(out.Hits)),
	)
	return out.Hits, nil
}
