package applications

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/richxcame/account-onboarding/internal/integrations"
	"github.com/richxcame/account-onboarding/pkg/logger"
)

// Processor is what the dispatcher's workers call
type Processor interface {
	Process(ctx context.Context, id string) (*Application, error)
}

// Dispatcher processes submitted applications on a fixed pool of workers
type Dispatcher struct {
	processor Processor
	queue     chan string
	workers   int
	wg        sync.WaitGroup
	stopOnce  sync.Once
	cancel    context.CancelFunc
}

// NewDispatcher creates a dispatcher with a bounded queue
func NewDispatcher(processor Processor, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Dispatcher{
		processor: processor,
		queue:     make(chan string, queueSize),
		workers:   workers,
	}
}

// Start launches the workers. They exit when ctx is done or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	logger.Info("application dispatcher started", zap.Int("workers", d.workers))
}

// Enqueue schedules id for processing. It reports false when the queue is
// full; the application stays submitted and can be processed explicitly.
func (d *Dispatcher) Enqueue(id string) bool {
	select {
	case d.queue <- id:
		queueDepth.Inc()
		return true
	default:
		logger.Warn("dispatch queue full", zap.String("application_id", id))
		return false
	}
}

// Stop cancels the workers and waits for in-flight passes to return. Queued
// ids are dropped; those applications stay submitted.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()
		logger.Info("application dispatcher stopped", zap.Int("dropped", d.drain()))
	})
}

func (d *Dispatcher) drain() int {
	dropped := 0
	for {
		select {
		case <-d.queue:
			queueDepth.Dec()
			dropped++
		default:
			return dropped
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context, n int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-d.queue:
			queueDepth.Dec()
			d.process(ctx, id, n)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, id string, worker int) {
	ctx = logger.ContextWithApplicationID(ctx, id)
	log := logger.WithContext(ctx).With(zap.Int("worker", worker))

	app, err := d.processor.Process(ctx, id)
	var cfgErr *integrations.ConfigurationError
	switch {
	case err == nil:
		log.Debug("dispatched application processed", zap.String("status", string(app.Status)))
	case errors.Is(err, ErrConcurrencyConflict):
		log.Debug("application already being processed")
	case errors.As(err, &cfgErr):
		log.Warn("application sent to review by configuration error", zap.Error(err))
	default:
		log.Error("failed to process dispatched application", zap.Error(err))
	}
}
