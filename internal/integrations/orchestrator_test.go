package integrations

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/account-onboarding/pkg/resilience"
)

func fastPolicy() Policy {
	return Policy{
		Timeout:        time.Second,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func okClient(payload map[string]interface{}) ClientFunc {
	return func(ctx context.Context, req Request) (map[string]interface{}, error) {
		return payload, nil
	}
}

func countingClient(calls *int32, err error) ClientFunc {
	return func(ctx context.Context, req Request) (map[string]interface{}, error) {
		atomic.AddInt32(calls, 1)
		return nil, err
	}
}

func blockingClient(release <-chan struct{}) ClientFunc {
	return func(ctx context.Context, req Request) (map[string]interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return map[string]interface{}{}, nil
		}
	}
}

func TestRun_TimeoutAndSuccessSettleIndependently(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	reg := NewRegistry(fastPolicy())
	slow := fastPolicy()
	slow.Timeout = 20 * time.Millisecond
	reg.Register("a", blockingClient(release), WithPolicy(slow))
	reg.Register("b", okClient(map[string]interface{}{"status": "clear"}))

	outcomes, err := NewOrchestrator(reg, time.Second).Run(context.Background(), Subject{ApplicationID: "app-1"}, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "a", outcomes[0].IntegrationID)
	assert.Equal(t, StatusTimeout, outcomes[0].Status)
	assert.Equal(t, 1, outcomes[0].Attempts)
	assert.Nil(t, outcomes[0].Payload)

	assert.Equal(t, "b", outcomes[1].IntegrationID)
	assert.Equal(t, StatusSuccess, outcomes[1].Status)
	assert.Equal(t, "clear", outcomes[1].Payload["status"])
	assert.NotEmpty(t, outcomes[1].RequestID)
	assert.NotEqual(t, outcomes[0].RequestID, outcomes[1].RequestID)
}

func TestRun_DiscardsResultsArrivingAfterTimeout(t *testing.T) {
	reg := NewRegistry(fastPolicy())
	p := fastPolicy()
	p.Timeout = 20 * time.Millisecond
	reg.Register("stubborn", ClientFunc(func(ctx context.Context, req Request) (map[string]interface{}, error) {
		time.Sleep(200 * time.Millisecond)
		return map[string]interface{}{"late": true}, nil
	}), WithPolicy(p))

	start := time.Now()
	outcomes, err := NewOrchestrator(reg, time.Second).Run(context.Background(), Subject{}, []string{"stubborn"})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, StatusTimeout, outcomes[0].Status)
	assert.Nil(t, outcomes[0].Payload)
}

func TestRun_RetriesTransientFailures(t *testing.T) {
	var calls int32
	reg := NewRegistry(fastPolicy())
	reg.Register(IDKYCScreening, countingClient(&calls, errors.New("service unavailable")))

	outcomes, err := NewOrchestrator(reg, time.Second).Run(context.Background(), Subject{}, []string{IDKYCScreening})
	require.NoError(t, err)

	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, StatusFailure, outcomes[0].Status)
	assert.Equal(t, 4, outcomes[0].Attempts)
	assert.Equal(t, "service unavailable", outcomes[0].Error)
}

func TestRun_RecoversWithinRetryBudget(t *testing.T) {
	var calls int32
	reg := NewRegistry(fastPolicy())
	reg.Register("flaky", ClientFunc(func(ctx context.Context, req Request) (map[string]interface{}, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errors.New("connection reset")
		}
		return map[string]interface{}{"ok": true}, nil
	}))

	outcomes, err := NewOrchestrator(reg, time.Second).Run(context.Background(), Subject{}, []string{"flaky"})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, outcomes[0].Status)
	assert.Equal(t, 3, outcomes[0].Attempts)
	assert.Equal(t, true, outcomes[0].Payload["ok"])
}

func TestRun_PermanentErrorsAreNotRetried(t *testing.T) {
	var calls int32
	reg := NewRegistry(fastPolicy())
	reg.Register("strict", countingClient(&calls, Permanent(errors.New("invalid subject"))))

	outcomes, err := NewOrchestrator(reg, time.Second).Run(context.Background(), Subject{}, []string{"strict"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, StatusFailure, outcomes[0].Status)
	assert.Equal(t, 1, outcomes[0].Attempts)
}

func TestRun_PreservesRequestedOrder(t *testing.T) {
	delayed := func(d time.Duration, id string) ClientFunc {
		return func(ctx context.Context, req Request) (map[string]interface{}, error) {
			time.Sleep(d)
			return map[string]interface{}{"id": id}, nil
		}
	}
	reg := NewRegistry(fastPolicy())
	reg.Register("first", delayed(30*time.Millisecond, "first"))
	reg.Register("second", delayed(10*time.Millisecond, "second"))
	reg.Register("third", delayed(0, "third"))

	outcomes, err := NewOrchestrator(reg, time.Second).Run(context.Background(), Subject{}, []string{"first", "second", "third"})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	for i, id := range []string{"first", "second", "third"} {
		assert.Equal(t, id, outcomes[i].IntegrationID)
		assert.Equal(t, id, outcomes[i].Payload["id"])
	}
}

func TestRun_RunsCallsConcurrently(t *testing.T) {
	sleepy := ClientFunc(func(ctx context.Context, req Request) (map[string]interface{}, error) {
		time.Sleep(50 * time.Millisecond)
		return map[string]interface{}{}, nil
	})
	reg := NewRegistry(fastPolicy())
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		reg.Register(id, sleepy)
	}

	start := time.Now()
	_, err := NewOrchestrator(reg, time.Second).Run(context.Background(), Subject{}, ids)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestRun_DeduplicatesIDs(t *testing.T) {
	var calls int32
	reg := NewRegistry(fastPolicy())
	reg.Register("a", ClientFunc(func(ctx context.Context, req Request) (map[string]interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]interface{}{}, nil
	}))
	reg.Register("b", okClient(nil))

	outcomes, err := NewOrchestrator(reg, time.Second).Run(context.Background(), Subject{}, []string{"a", "b", "a"})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.Equal(t, "a", outcomes[0].IntegrationID)
	assert.Equal(t, "b", outcomes[1].IntegrationID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.NotNil(t, outcomes[1].Payload)
}

func TestRun_UnknownIntegrationIsConfigurationError(t *testing.T) {
	var calls int32
	reg := NewRegistry(fastPolicy())
	reg.Register("a", countingClient(&calls, nil))

	outcomes, err := NewOrchestrator(reg, time.Second).Run(context.Background(), Subject{}, []string{"a", "nope", "gone"})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"nope", "gone"}, cfgErr.Missing)
	assert.Nil(t, outcomes)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestRun_EmptyBatch(t *testing.T) {
	outcomes, err := NewOrchestrator(NewRegistry(fastPolicy()), time.Second).Run(context.Background(), Subject{}, nil)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestRun_BatchDeadlineMarksPendingAsTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	reg := NewRegistry(fastPolicy())
	reg.Register("stuck", blockingClient(release))
	reg.Register("quick", okClient(map[string]interface{}{}))

	start := time.Now()
	outcomes, err := NewOrchestrator(reg, 30*time.Millisecond).Run(context.Background(), Subject{}, []string{"stuck", "quick"})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, StatusTimeout, outcomes[0].Status)
	assert.Equal(t, StatusSuccess, outcomes[1].Status)
}

func TestRun_CallerCancellationReturnsNoOutcomes(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	reg := NewRegistry(fastPolicy())
	reg.Register("stuck", blockingClient(release))
	reg.Register("quick", okClient(map[string]interface{}{}))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	outcomes, err := NewOrchestrator(reg, 5*time.Second).Run(ctx, Subject{}, []string{"stuck", "quick"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, outcomes)
}

func TestRun_OpenBreakerShortCircuits(t *testing.T) {
	var calls int32
	p := fastPolicy()
	p.MaxRetries = 0
	reg := NewRegistry(p)
	reg.Register("down", countingClient(&calls, errors.New("boom")),
		WithBreaker(resilience.BuildSettings("", time.Minute, time.Minute, 2, 1)))

	orch := NewOrchestrator(reg, time.Second)
	for i := 0; i < 2; i++ {
		_, err := orch.Run(context.Background(), Subject{}, []string{"down"})
		require.NoError(t, err)
	}

	outcomes, err := orch.Run(context.Background(), Subject{}, []string{"down"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, StatusFailure, outcomes[0].Status)
	assert.Equal(t, resilience.ErrCircuitOpen.Error(), outcomes[0].Error)
	assert.Equal(t, 0, outcomes[0].Attempts)
}

func TestRegistry_IDs(t *testing.T) {
	reg := NewRegistry(DefaultPolicy())
	for id, c := range MockClients(0) {
		reg.Register(id, c)
	}

	assert.Equal(t, []string{
		IDCreditCheck,
		IDDocumentVerification,
		IDEmploymentVerification,
		IDFraudDatabase,
		IDIdentityVerification,
		IDKYCScreening,
	}, reg.IDs())
	assert.True(t, reg.Has(IDCreditCheck))
	assert.False(t, reg.Has("unknown"))
}
