package integrations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/account-onboarding/pkg/logger"
	"github.com/richxcame/account-onboarding/pkg/resilience"
	"github.com/richxcame/account-onboarding/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const defaultBatchDeadline = 60 * time.Second

// Orchestrator dispatches a batch of integration calls concurrently and
// settles each one exactly once.
type Orchestrator struct {
	registry      *Registry
	batchDeadline time.Duration
}

// NewOrchestrator creates an orchestrator over registry. A non-positive
// batchDeadline falls back to 60s.
func NewOrchestrator(registry *Registry, batchDeadline time.Duration) *Orchestrator {
	if batchDeadline <= 0 {
		batchDeadline = defaultBatchDeadline
	}
	return &Orchestrator{registry: registry, batchDeadline: batchDeadline}
}

// Registry returns the underlying registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

type settled struct {
	index   int
	outcome Outcome
}

// Run calls every integration in ids for subject and returns one Outcome per
// distinct id, in the order the ids were first requested. Unknown ids fail the
// whole batch with a *ConfigurationError before anything is dispatched. Calls
// still pending when the batch deadline passes are reported as timeouts. If ctx
// itself ends first, Run returns its error and no outcomes.
func (o *Orchestrator) Run(ctx context.Context, subject Subject, ids []string) ([]Outcome, error) {
	ids = dedupe(ids)

	regs := make([]*registration, len(ids))
	var missing []string
	for i, id := range ids {
		reg, ok := o.registry.lookup(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		regs[i] = reg
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}

	outcomes := make([]Outcome, len(ids))
	if len(ids) == 0 {
		return outcomes, nil
	}

	batchCtx, cancel := context.WithTimeout(ctx, o.batchDeadline)
	defer cancel()

	results := make(chan settled, len(ids))
	requestIDs := make([]string, len(ids))
	start := time.Now()
	for i, reg := range regs {
		requestIDs[i] = uuid.NewString()
		go func(i int, reg *registration, requestID string) {
			results <- settled{index: i, outcome: o.call(batchCtx, reg, subject, requestID)}
		}(i, reg, requestIDs[i])
	}

	done := make([]bool, len(ids))
	for remaining := len(ids); remaining > 0; remaining-- {
		select {
		case r := <-results:
			outcomes[r.index] = r.outcome
			done[r.index] = true
		case <-batchCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for i, reg := range regs {
				if done[i] {
					continue
				}
				outcomes[i] = Outcome{
					IntegrationID: reg.id,
					Status:        StatusTimeout,
					Latency:       time.Since(start),
					RequestID:     requestIDs[i],
					Error:         "batch deadline exceeded",
				}
				callsTotal.WithLabelValues(reg.id, string(StatusTimeout)).Inc()
			}
			logger.WithContext(ctx).Warn("integration batch deadline exceeded",
				zap.Int("pending", remaining),
				zap.Duration("deadline", o.batchDeadline),
			)
			return outcomes, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// call settles one integration: retries with backoff through the breaker,
// each attempt bounded by the policy timeout.
func (o *Orchestrator) call(ctx context.Context, reg *registration, subject Subject, requestID string) Outcome {
	ctx, span := tracing.StartSpan(ctx, "integration."+reg.id,
		attribute.String("integration.id", reg.id),
		attribute.String("application.id", subject.ApplicationID),
	)
	defer span.End()

	start := time.Now()
	attempts := 0
	cfg := resilience.RetryConfig{
		MaxAttempts:       reg.policy.MaxRetries + 1,
		InitialBackoff:    reg.policy.InitialBackoff,
		MaxBackoff:        reg.policy.MaxBackoff,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
		RetryableChecker: func(err error) bool {
			return !errors.Is(err, ErrCallTimeout) && !errors.Is(err, context.DeadlineExceeded)
		},
		OnRetry: func(int, error) {
			retriesTotal.WithLabelValues(reg.id).Inc()
		},
	}

	result, err := resilience.RetryWithBreaker(ctx, cfg, reg.breaker, func(ctx context.Context) (interface{}, error) {
		attempts++
		return o.attempt(ctx, reg, Request{
			RequestID:     requestID,
			IntegrationID: reg.id,
			Attempt:       attempts,
			Subject:       subject,
		})
	})

	out := Outcome{
		IntegrationID: reg.id,
		Latency:       time.Since(start),
		RequestID:     requestID,
		Attempts:      attempts,
	}
	switch {
	case err == nil:
		out.Status = StatusSuccess
		out.Payload, _ = result.(map[string]interface{})
		if out.Payload == nil {
			out.Payload = map[string]interface{}{}
		}
	case errors.Is(err, ErrCallTimeout), errors.Is(err, context.DeadlineExceeded):
		out.Status = StatusTimeout
		out.Error = err.Error()
	default:
		out.Status = StatusFailure
		out.Error = err.Error()
	}

	callsTotal.WithLabelValues(reg.id, string(out.Status)).Inc()
	callDuration.WithLabelValues(reg.id).Observe(out.Latency.Seconds())
	span.SetAttributes(
		attribute.String("integration.status", string(out.Status)),
		attribute.Int("integration.attempts", attempts),
	)

	log := logger.WithContext(ctx).With(
		zap.String("integration", reg.id),
		zap.String("request_id", requestID),
		zap.Int("attempts", attempts),
		zap.Duration("latency", out.Latency),
	)
	if out.OK() {
		log.Debug("integration call succeeded")
	} else {
		span.SetStatus(codes.Error, out.Error)
		log.Warn("integration call did not succeed",
			zap.String("status", string(out.Status)),
			zap.String("error", out.Error),
		)
	}
	return out
}

type attemptResult struct {
	payload map[string]interface{}
	err     error
}

// attempt runs a single client call. A call that outlives the policy timeout
// yields ErrCallTimeout and whatever it returns later is dropped.
func (o *Orchestrator) attempt(ctx context.Context, reg *registration, req Request) (interface{}, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, reg.policy.Timeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		payload, err := reg.client.Call(attemptCtx, req)
		done <- attemptResult{payload: payload, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrCallTimeout
		}
		if r.err != nil {
			return nil, r.err
		}
		return r.payload, nil
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrCallTimeout
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
