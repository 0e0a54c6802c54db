package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/subject"
)

// SESMailer dispatches mail through AWS SES.
type SESMailer struct {
	client *ses.Client
	logger *zap.Logger
}

// SESConfig holds the SES region.
type SESConfig struct {
	Region string
}

// NewSESMailer creates a mailer backed by AWS SES.
func NewSESMailer(ctx context.Context, cfg SESConfig, logger *zap.Logger) (*SESMailer, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load default AWS config: %w", err)
	}
	return &SESMailer{
		client: ses.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

// Send dispatches the message. Merge-source substitution happens in the
// template pipeline upstream of the transport, so sources are only logged
// here.
func (m *SESMailer) Send(ctx context.Context, msg Message, sources []subject.MergeSource) error {
	if msg.To.Email == "" {
		return fmt.Errorf("mail message missing recipient address")
	}
	if msg.Subject == "" {
		return fmt.Errorf("mail message missing subject")
	}

	input := &ses.SendEmailInput{
		Source: aws.String(formatAddress(msg.From)),
		Destination: &types.Destination{
			ToAddresses: []string{formatAddress(msg.To)},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(msg.Body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}

	m.logger.Info("mail sent via SES",
		zap.String("to", msg.To.Email),
		zap.String("subject", msg.Subject),
		zap.Int("sources", len(sources)),
		zap.String("message_id", aws.ToString(result.MessageId)),
	)

	return nil
}

func formatAddress(a Address) string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// LogMailer logs instead of sending. Used in development and tests.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message, sources []subject.MergeSource) error {
	kinds := make([]string, len(sources))
	for i, s := range sources {
		kinds[i] = s.MergeKind()
	}
	m.logger.Info("mail dispatched (log only)",
		zap.String("to", msg.To.Email),
		zap.String("subject", msg.Subject),
		zap.Strings("source_kinds", kinds),
	)
	return nil
}
