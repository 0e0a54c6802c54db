package clients

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/subject"
)

// TaskClient reads open tasks from the workflow API. It satisfies
// mail.TaskReader and the due-date scanner's task lister.
type TaskClient struct {
	baseClient
}

// NewTaskClient creates a client for the workflow API.
func NewTaskClient(cfg Config, logger *zap.Logger) (*TaskClient, error) {
	base, err := newBaseClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("task client: %w", err)
	}
	return &TaskClient{baseClient: base}, nil
}

// ReadTask fetches a single task by id.
func (c *TaskClient) ReadTask(ctx context.Context, id string) (*subject.Task, error) {
	var out subject.Task
	if err := c.getJSON(ctx, "/v1/tasks/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOpenTasksDueNow returns the open assigned tasks whose due date is on or
// before the reference day.
func (c *TaskClient) ListOpenTasksDueNow(ctx context.Context, reference time.Time) ([]subject.Task, error) {
	return c.listOpenTasks(ctx, "now", reference)
}

// ListOpenTasksDueLater returns the open assigned tasks whose due date is
// after the reference day.
func (c *TaskClient) ListOpenTasksDueLater(ctx context.Context, reference time.Time) ([]subject.Task, error) {
	return c.listOpenTasks(ctx, "later", reference)
}

func (c *TaskClient) listOpenTasks(ctx context.Context, due string, reference time.Time) ([]subject.Task, error) {
	query := url.Values{
		"due":       {due},
		"reference": {reference.Format("2006-01-02")},
	}

	var out struct {
		Tasks []subject.Task `json:"tasks"`
	}
	if err := c.getJSON(ctx, "/v1/tasks/open", query, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}
