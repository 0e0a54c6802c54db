// Package sns fans screen events out to an SNS topic so consumers outside
// the dashboard (mobile push gateways, audit sinks) can follow signal
// changes.
package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/casewatch/casewatch/internal/events"
)

// Publisher pushes screen events to an SNS topic. It implements
// events.Publisher.
type Publisher struct {
	client   *sns.Client
	topicARN string
}

// NewPublisher creates an SNS publisher for the given topic.
func NewPublisher(ctx context.Context, topicARN, region string) (*Publisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Publisher{
		client:   sns.NewFromConfig(cfg),
		topicARN: topicARN,
	}, nil
}

// NewPublisherWithEndpoint creates a publisher with a custom endpoint (for
// LocalStack).
func NewPublisherWithEndpoint(ctx context.Context, topicARN, endpoint, region string) (*Publisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sns.NewFromConfig(cfg, func(o *sns.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &Publisher{
		client:   client,
		topicARN: topicARN,
	}, nil
}

// Publish sends the event to the topic. Message attributes carry the event
// kind and notification type so subscriptions can filter without parsing the
// body.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.Kind),
			},
			"type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Type)),
			},
			"target_kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.TargetKind)),
			},
		},
	}

	if _, err := p.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	return nil
}
