// Package circuitbreaker wraps Sony's gobreaker around admin panel calls so
// a down backend sheds load fast instead of stacking timeouts.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"

	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
)

// Config holds circuit breaker tuning
type Config struct {
	// Name identifies the breaker in logs
	Name string
	// MaxRequests allowed through while half-open
	MaxRequests uint32
	// Interval over which failure counts are evaluated
	Interval time.Duration
	// Timeout before an open breaker probes again
	Timeout time.Duration
	// FailureThreshold is the consecutive-failure count that trips the breaker
	FailureThreshold uint32
}

// DefaultConfig returns breaker defaults suitable for the admin panel
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Breaker wraps gobreaker to return our error taxonomy
type Breaker struct {
	breaker *gobreaker.CircuitBreaker
	logger  logging.Logger
}

// New creates a circuit breaker from config
func New(config Config, logger logging.Logger) *Breaker {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
	}

	return &Breaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Execute runs fn through the breaker. An open breaker returns a connection
// error without invoking fn.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.breaker.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.ConnectionError("circuit breaker is open", err)
	}
	return result, err
}

// IsOpen reports whether the breaker is currently rejecting calls
func (b *Breaker) IsOpen() bool {
	return b.breaker.State() == gobreaker.StateOpen
}
