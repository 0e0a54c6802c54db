// Package circuitbreaker protects the mail transport from cascade failures:
// when SES starts failing, the circuit opens and dispatch attempts fail fast
// instead of piling up inside a batch scan.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents the current state of the circuit breaker.
//
// State transitions:
//
//	Closed -> Open:      When failure count >= threshold
//	Open -> HalfOpen:    After recovery timeout expires
//	HalfOpen -> Closed:  When a probe request succeeds
//	HalfOpen -> Open:    When a probe request fails
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open and requests
// are being rejected to protect the downstream service.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds the configuration for a CircuitBreaker.
type Config struct {
	// Name identifies this circuit breaker in logs (e.g. "ses").
	Name string

	// MaxFailures is the number of consecutive failures before the circuit
	// opens.
	MaxFailures int

	// RecoveryTimeout is how long to wait in Open state before probing.
	RecoveryTimeout time.Duration
}

// DefaultConfig returns the defaults used for the mail transport.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		MaxFailures:     5,
		RecoveryTimeout: 30 * time.Second,
	}
}

// CircuitBreaker tracks consecutive failures and trips after the configured
// threshold. A single probe request is allowed through after the recovery
// timeout.
type CircuitBreaker struct {
	mu     sync.Mutex
	config Config
	logger *zap.Logger

	state           State
	failureCount    int
	lastFailureTime time.Time
	probing         bool
}

// New creates a new CircuitBreaker with the given configuration.
func New(cfg Config, logger *zap.Logger) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}

	return &CircuitBreaker{
		config: cfg,
		logger: logger,
		state:  StateClosed,
	}
}

// Allow reports whether a request may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(cb.lastFailureTime) >= cb.config.RecoveryTimeout {
			cb.setState(StateHalfOpen)
			cb.probing = true
			cb.logger.Info("circuit breaker allowing probe request",
				zap.String("name", cb.config.Name),
			)
			return true
		}
		return false

	case StateHalfOpen:
		// One probe at a time.
		if !cb.probing {
			cb.probing = true
			return true
		}
		return false

	default:
		return false
	}
}

// RecordSuccess records a successful request. In HalfOpen state this closes
// the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.probing = false

	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
		cb.logger.Info("circuit breaker closed, service recovered",
			zap.String("name", cb.config.Name),
		)
	}
}

// RecordFailure records a failed request. In Closed state the circuit opens
// after MaxFailures consecutive failures; in HalfOpen state it re-opens
// immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = time.Now()
	cb.probing = false

	switch cb.state {
	case StateClosed:
		if cb.failureCount >= cb.config.MaxFailures {
			cb.setState(StateOpen)
			cb.logger.Warn("circuit breaker opened",
				zap.String("name", cb.config.Name),
				zap.Int("failures", cb.failureCount),
			)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
		cb.logger.Warn("circuit breaker re-opened, probe failed",
			zap.String("name", cb.config.Name),
		)
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setState(s State) {
	cb.state = s
}
