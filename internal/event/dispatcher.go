package event

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/study-plan-api/pkg/jobs"
)

// DispatcherConfig sizes the background delivery pool.
type DispatcherConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Dispatcher hands events to a worker queue so callers never wait on the broker.
// Delivery failures are retried by the queue and otherwise only logged.
type Dispatcher struct {
	sink    Publisher
	queue   *jobs.Queue
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher wraps sink with an asynchronous queue. Call Start before Publish.
func NewDispatcher(sink Publisher, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	d := &Dispatcher{sink: sink, timeout: cfg.Timeout, logger: logger}
	d.queue = jobs.NewQueue("events", d.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return d
}

// Start launches delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Publish enqueues ev. The request context is not carried into delivery.
func (d *Dispatcher) Publish(_ context.Context, ev Event) error {
	if err := d.queue.Enqueue(jobs.Job{ID: ev.ID, Type: string(ev.Type), Payload: ev}); err != nil {
		return fmt.Errorf("enqueue event %s: %w", ev.Type, err)
	}
	return nil
}

// Close drains queued events then closes the sink.
func (d *Dispatcher) Close() error {
	d.queue.Stop()
	return d.sink.Close()
}

func (d *Dispatcher) deliver(ctx context.Context, job jobs.Job) error {
	ev, ok := job.Payload.(Event)
	if !ok {
		d.logger.Error("dropping job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.sink.Publish(ctx, ev)
}
