package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-trip",
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, nil)

	fail := func(ctx context.Context) (interface{}, error) { return nil, errTransient }

	_, err := breaker.Execute(context.Background(), fail)
	assert.ErrorIs(t, err, errTransient)
	_, err = breaker.Execute(context.Background(), fail)
	assert.ErrorIs(t, err, errTransient)

	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	calls := 0
	_, err = breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls, "open breaker must not invoke the operation")
}

func TestCircuitBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "test-permanent", FailureThreshold: 1, Timeout: time.Minute}, nil)

	_, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, Permanent(errNonRetryable)
	})

	assert.ErrorIs(t, err, errNonRetryable)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestCircuitBreaker_ShortCircuitFallback(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "test-short-circuit", FailureThreshold: 1, Timeout: time.Minute}, ShortCircuit("credit_check"))

	_, _ = breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, errTransient
	})

	calls := 0
	result, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return "live", nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Nil(t, result)
	assert.Zero(t, calls)
}

func TestRetryWithBreaker(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-retry-breaker",
		Interval:         100 * time.Millisecond,
		Timeout:          time.Second,
		FailureThreshold: 2,
	}, NoopFallback)

	calls := 0
	result, err := RetryWithBreaker(context.Background(), fastConfig(3), breaker, func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 2 {
			return nil, errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestBuildSettings(t *testing.T) {
	tests := []struct {
		name             string
		interval         time.Duration
		openTimeout      time.Duration
		failureThreshold int
		successThreshold int
		want             Settings
	}{
		{
			name: "defaults",
			want: Settings{Name: "integration_kyc_screening", Interval: time.Minute, Timeout: 30 * time.Second, FailureThreshold: 5, SuccessThreshold: 1},
		},
		{
			name:             "negative values fall back",
			interval:         -time.Second,
			openTimeout:      -time.Second,
			failureThreshold: -1,
			successThreshold: -1,
			want:             Settings{Name: "integration_kyc_screening", Interval: time.Minute, Timeout: 30 * time.Second, FailureThreshold: 5, SuccessThreshold: 1},
		},
		{
			name:             "explicit",
			interval:         10 * time.Second,
			openTimeout:      time.Minute,
			failureThreshold: 3,
			successThreshold: 2,
			want:             Settings{Name: "integration_kyc_screening", Interval: 10 * time.Second, Timeout: time.Minute, FailureThreshold: 3, SuccessThreshold: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSettings("integration_kyc_screening", tt.interval, tt.openTimeout, tt.failureThreshold, tt.successThreshold)
			assert.Equal(t, tt.want, got)
		})
	}
}
