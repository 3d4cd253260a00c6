// Package resilience wraps calls to external services (LLM, embedding,
// transcription) in circuit breakers and bounded exponential retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrCircuitOpen is returned without calling the service while the breaker is open.
	ErrCircuitOpen = gobreaker.ErrOpenState
	// ErrTooManyRequests is returned when the half-open probe budget is spent.
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
	// ErrTimeout marks an operation that hit its deadline.
	ErrTimeout = errors.New("operation timed out")
)

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe.
	OpenTimeout time.Duration
	// CallTimeout bounds a call whose context has no deadline.
	CallTimeout   time.Duration
	HalfOpenLimit uint32
}

// Breaker guards one external dependency.
type Breaker struct {
	name        string
	callTimeout time.Duration
	cb          *gobreaker.CircuitBreaker
}

// NewBreaker creates a Breaker, filling zero fields with defaults.
func NewBreaker(cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 2 * time.Minute
	}
	if cfg.HalfOpenLimit == 0 {
		cfg.HalfOpenLimit = 1
	}
	log := logger.With("component", "circuit_breaker", "breaker", cfg.Name)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenLimit,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// Caller cancellation says nothing about the dependency's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return &Breaker{
		name:        cfg.Name,
		callTimeout: cfg.CallTimeout,
		cb:          gobreaker.NewCircuitBreaker(settings),
	}
}

// Execute runs operation through the breaker.
func (b *Breaker) Execute(ctx context.Context, operation func(context.Context) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.callTimeout)
		defer cancel()
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		if err := operation(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		return err
	}
	return nil
}

// State reports the breaker state as text ("closed", "half-open", "open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}
