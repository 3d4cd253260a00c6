package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/afina/internal/resilience"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := resilience.NewBreaker(resilience.BreakerConfig{Name: "llm", MaxFailures: 2, OpenTimeout: time.Minute}, nil)
	failure := errors.New("upstream 503")

	calls := 0
	op := func(context.Context) error {
		calls++
		return failure
	}

	require.ErrorIs(t, b.Execute(context.Background(), op), failure)
	require.ErrorIs(t, b.Execute(context.Background(), op), failure)
	assert.Equal(t, "open", b.State())

	err := b.Execute(context.Background(), op)
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	t.Parallel()

	b := resilience.NewBreaker(resilience.BreakerConfig{Name: "stt", MaxFailures: 1}, nil)
	err := b.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "closed", b.State())
}

func TestRetry(t *testing.T) {
	t.Parallel()

	permanent := errors.New("bad request")
	transient := errors.New("try again")

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{name: "first try", errs: []error{nil}, wantCalls: 1},
		{name: "recovers", errs: []error{transient, nil}, wantCalls: 2},
		{name: "exhausted", errs: []error{transient, transient, transient}, wantCalls: 3, wantErr: resilience.ErrExhaustedRetries},
		{name: "not retryable", errs: []error{permanent}, wantCalls: 1, wantErr: permanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			cfg := resilience.RetryConfig{
				MaxAttempts:     3,
				InitialInterval: time.Millisecond,
				Multiplier:      2,
				Retryable:       func(err error) bool { return !errors.Is(err, permanent) },
			}
			err := resilience.Retry(context.Background(), cfg, func(context.Context) error {
				err := tt.errs[calls]
				calls++
				return err
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
