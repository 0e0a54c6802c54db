package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/events"
)

// DefaultScreenEventChannel is the pub/sub channel dashboard sessions
// subscribe to.
const DefaultScreenEventChannel = "casewatch:screen-events"

// ScreenEventPublisher pushes screen events over Redis pub/sub. It implements
// events.Publisher.
type ScreenEventPublisher struct {
	client  *Client
	channel string
	logger  *zap.Logger
}

// NewScreenEventPublisher creates a publisher on the given channel; an empty
// channel name selects DefaultScreenEventChannel.
func NewScreenEventPublisher(client *Client, channel string, logger *zap.Logger) *ScreenEventPublisher {
	if channel == "" {
		channel = DefaultScreenEventChannel
	}
	return &ScreenEventPublisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Publish sends the event as JSON on the pub/sub channel. Subscribers that
// are not connected at publish time simply miss the event; dashboards
// recover by polling the latest-signal timestamp.
func (p *ScreenEventPublisher) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal screen event: %w", err)
	}

	if err := p.client.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}

	p.logger.Debug("screen event published",
		zap.String("kind", event.Kind),
		zap.String("target_id", event.TargetID),
		zap.String("type", string(event.Type)),
	)

	return nil
}
