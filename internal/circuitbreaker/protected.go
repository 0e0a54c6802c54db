package circuitbreaker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/mail"
	"github.com/casewatch/casewatch/internal/subject"
)

// ProtectedMailer wraps a mail.Mailer with a CircuitBreaker so a broken mail
// transport fails fast instead of stalling every candidate of a batch scan.
type ProtectedMailer struct {
	mailer  mail.Mailer
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// NewProtectedMailer wraps a mailer with circuit breaker protection.
func NewProtectedMailer(mailer mail.Mailer, breaker *CircuitBreaker, logger *zap.Logger) *ProtectedMailer {
	return &ProtectedMailer{
		mailer:  mailer,
		breaker: breaker,
		logger:  logger,
	}
}

// Send attempts the dispatch through the circuit breaker. When the circuit is
// open it returns ErrCircuitOpen immediately.
func (p *ProtectedMailer) Send(ctx context.Context, msg mail.Message, sources []subject.MergeSource) error {
	if !p.breaker.Allow() {
		p.logger.Warn("circuit breaker rejected mail dispatch",
			zap.String("breaker", p.breaker.config.Name),
			zap.String("to", msg.To.Email),
			zap.String("state", p.breaker.GetState().String()),
		)
		return fmt.Errorf("%w: %s transport unavailable", ErrCircuitOpen, p.breaker.config.Name)
	}

	if err := p.mailer.Send(ctx, msg, sources); err != nil {
		p.breaker.RecordFailure()
		return err
	}

	p.breaker.RecordSuccess()
	return nil
}

// Breaker returns the underlying circuit breaker for monitoring.
func (p *ProtectedMailer) Breaker() *CircuitBreaker {
	return p.breaker
}
