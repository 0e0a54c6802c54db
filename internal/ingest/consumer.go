package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/metrics"
)

// Config holds the SQS consumer configuration.
type Config struct {
	Region   string
	QueueURL string
}

// Consumer long-polls the business event queue and feeds the handler. A
// handled or unprocessable message is deleted; a transient failure leaves
// the message for redelivery after its visibility timeout.
type Consumer struct {
	client   *sqs.Client
	queueURL string
	handler  *Handler
	logger   *zap.Logger
}

// NewConsumer creates the SQS consumer.
func NewConsumer(ctx context.Context, cfg Config, handler *Handler, logger *zap.Logger) (*Consumer, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("sqs consumer initialized",
		zap.String("queue_url", cfg.QueueURL),
	)

	return &Consumer{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: cfg.QueueURL,
		handler:  handler,
		logger:   logger,
	}, nil
}

// Start blocks until the context is cancelled, processing one message at a
// time.
func (c *Consumer) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("sqs consumer stopping")
			return
		default:
		}

		if err := c.poll(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("sqs poll failed", zap.Error(err))
		}
	}
}

func (c *Consumer) poll(ctx context.Context) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return fmt.Errorf("sqs receive failed: %w", err)
	}
	if len(result.Messages) == 0 {
		return nil
	}

	msg := result.Messages[0]
	metrics.SetSQSMessagesInFlight(1)
	defer metrics.SetSQSMessagesInFlight(0)

	var ev BusinessEvent
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &ev); err != nil {
		c.logger.Error("dropping malformed event", zap.Error(err))
		return c.delete(ctx, msg.ReceiptHandle)
	}

	if err := c.handler.Handle(ctx, &ev); err != nil {
		if errors.Is(err, ErrUnprocessable) {
			c.logger.Warn("dropping unprocessable event",
				zap.String("event_type", ev.EventType),
				zap.Error(err),
			)
			return c.delete(ctx, msg.ReceiptHandle)
		}
		// Leave the message; it becomes visible again after the
		// visibility timeout.
		c.logger.Error("event handling failed, leaving for redelivery",
			zap.String("event_type", ev.EventType),
			zap.Error(err),
		)
		return nil
	}

	return c.delete(ctx, msg.ReceiptHandle)
}

func (c *Consumer) delete(ctx context.Context, receiptHandle *string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		return fmt.Errorf("sqs delete failed: %w", err)
	}
	return nil
}
