package clients

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/subject"
)

// DocumentClient reads documents from the document API. It satisfies
// mail.DocumentReader.
type DocumentClient struct {
	baseClient
}

// NewDocumentClient creates a client for the document read API.
func NewDocumentClient(cfg Config, logger *zap.Logger) (*DocumentClient, error) {
	base, err := newBaseClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("document client: %w", err)
	}
	return &DocumentClient{baseClient: base}, nil
}

// ReadDocument fetches a single document by id.
func (c *DocumentClient) ReadDocument(ctx context.Context, id string) (*subject.Document, error) {
	var out subject.Document
	if err := c.getJSON(ctx, "/v1/documents/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
