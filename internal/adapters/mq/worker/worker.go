// Package worker runs sync jobs against the backend with bounded concurrency.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/mq/queue"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/metrics"
)

const (
	defaultWorkerCount  = 5
	poolShutdownTimeout = 30 * time.Second
)

// Trigger issues refresh requests to the backend.
type Trigger interface {
	Scrape(ctx context.Context, id string) error
	ScrapeAll(ctx context.Context) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue closes or it is shut down.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	trigger    Trigger
	name       string
	jobTimeout time.Duration
	active     *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, trigger Trigger, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		trigger:  trigger,
		name:     "worker",
		active:   &atomic.Int64{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop. Jobs are executed with ctx so that a trigger
// outlives the request that caused it.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) { //nolint:gocritic // Job travels by value over the channel
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() { metrics.UpdateWorkerActiveCount(int(w.active.Add(-1))) }()

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	switch job.Scope {
	case queue.ScopeAll:
		err = w.trigger.ScrapeAll(jobCtx)
	case queue.ScopeSingle:
		err = w.trigger.Scrape(jobCtx, job.ParticipantID)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownScope, job.Scope)
	}
	elapsed := float64(time.Since(start).Milliseconds())

	if err != nil {
		metrics.RecordSyncTrigger(string(job.Scope), "error", elapsed)
		metrics.RecordErrorByComponent("worker", "trigger_failed")
		w.logger.Warn(ctx, "sync trigger failed",
			logger.String("ticket", job.TicketID),
			logger.String("participant", job.ParticipantID),
			logger.String("scope", string(job.Scope)),
			logger.Error(err),
		)
	} else {
		metrics.RecordSyncTrigger(string(job.Scope), "ok", elapsed)
		w.logger.Debug(ctx, "sync trigger accepted",
			logger.String("ticket", job.TicketID),
			logger.String("participant", job.ParticipantID),
			logger.Duration("queued", start.Sub(job.EnqueuedAt)),
		)
	}

	if job.Report != nil {
		job.Report(err)
	}
}

// Pool manages multiple workers reading one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
	started atomic.Bool
}

// NewPool creates a pool of workerCount workers. Options apply to every worker.
func NewPool(workerCount int, q Queue, trigger Trigger, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	active := &atomic.Int64{}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, trigger, workerOpts...)
		w.active = active
		pool.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers. Calling it twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
			}
		}
	}
	return firstErr
}
