// Package worker appends queued engagement events to the competition event
// log.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/stagepay/internal/adapters/repository"
	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/pkg/logger"
	"github.com/okian/stagepay/pkg/metrics"
)

const defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()

// Event is what workers read off the queue.
type Event = model.EngagementEvent

// Appender writes one event to the log of its competition.
type Appender interface {
	AppendEvent(ctx context.Context, e model.EngagementEvent) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue() <-chan Event
}

// InMemoryWorker drains a queue into an Appender.
type InMemoryWorker struct {
	queue    Queue
	appender Appender
	name     string
	observe  func(e Event, err error)

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, appender Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		appender: appender,
		name:     "worker",
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes events until the queue channel is closed and drained, or
// ctx is cancelled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			err := w.processEvent(ctx, event)
			if w.observe != nil {
				w.observe(event, err)
			}
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	appendStart := time.Now()
	err := w.appender.AppendEvent(ctx, event)
	metrics.RecordStoreAppendLatency(float64(time.Since(appendStart).Microseconds()) / 1000)

	switch {
	case err == nil:
		metrics.RecordEventIngested(string(event.Kind))
		return nil
	case errors.Is(err, repository.ErrExists):
		metrics.RecordEventDuplicate()
		w.logger.Debug(ctx, "event already logged",
			logger.String("competition_id", event.CompetitionID),
			logger.String("event_id", event.EventID),
		)
	case errors.Is(err, repository.ErrCompleted), errors.Is(err, repository.ErrNotFound):
		// The competition was finalized (or never existed) between submit
		// and ingestion.
		metrics.RecordEventRejected("competition_closed")
		w.logger.Warn(ctx, "event dropped",
			logger.String("competition_id", event.CompetitionID),
			logger.String("event_id", event.EventID),
			logger.Error(err),
		)
	default:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "append_error")
		metrics.RecordErrorByType("append_error", "high")
		w.logger.Error(ctx, "append failed for event",
			logger.String("competition_id", event.CompetitionID),
			logger.String("event_id", event.EventID),
			logger.Error(err),
		)
	}
	return fmt.Errorf("append event %s: %w", event.EventID, err)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker

	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses a multiple of
// the CPU count.
func NewPool(workerCount int, q Queue, appender Appender, l logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	if l == nil {
		l = logger.Get()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  l.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		name := "worker-" + strconv.Itoa(i)
		p.workers[i] = NewInMemoryWorker(q, appender,
			WithName(name),
			WithLogger(l.Named(name)),
			WithObserver(p.record),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

func (p *Pool) record(_ Event, err error) { //nolint:gocritic // hugeParam: matches the observer signature
	if err != nil {
		p.failed.Add(1)
		return
	}
	p.processed.Add(1)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many events were appended.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns how many events could not be appended.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Wait blocks until every worker has returned or ctx expires. Workers
// return once their queue is closed and drained.
func (p *Pool) Wait(ctx context.Context) error {
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
