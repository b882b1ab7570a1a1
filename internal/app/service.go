// Package service wires the competition store, the ingestion pipeline and
// the scoring and royalty engines into the operations served over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/stagepay/internal/adapters/mq/queue"
	workerpool "github.com/okian/stagepay/internal/adapters/mq/worker"
	"github.com/okian/stagepay/internal/adapters/repository"
	"github.com/okian/stagepay/internal/domain/competition"
	"github.com/okian/stagepay/internal/domain/dedupe"
	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/royalty"
	"github.com/okian/stagepay/pkg/logger"
	"github.com/okian/stagepay/pkg/metrics"
)

// Service implements the API dependencies for the competition engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	scorer     *competition.Scorer
	engine     *royalty.Engine

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	now         func() time.Time

	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100000,
		dedupeSize:  500000,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the ingestion pipeline and starts the workers. Components
// not supplied through options get their defaults here.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting competition service...")

	if s.scorer == nil {
		sc, err := competition.NewScorer()
		if err != nil {
			return fmt.Errorf("default scorer: %w", err)
		}
		s.scorer = sc
	}
	if s.engine == nil {
		e, err := royalty.NewEngine(royalty.WithClock(s.now))
		if err != nil {
			return fmt.Errorf("default royalty engine: %w", err)
		}
		s.engine = e
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
		dedupe.WithEvictHook(metrics.RecordDedupeEviction),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, &releasingAppender{store: s.store, deduper: s.deduper}, s.logger)

	// Workers stop when the queue is closed and drained, not when the
	// caller's context ends.
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "competition service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue, waits for every accepted event to be appended and
// closes the store. Events still queued when ctx expires are lost.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping competition service...")

	_ = s.eventQueue.Close()
	waitErr := s.workerPool.Wait(ctx)
	if waitErr != nil {
		s.logger.Error(ctx, "ingestion did not drain", logger.Int("queued", s.eventQueue.Len()), logger.Error(waitErr))
	}

	closeErr := s.store.Close()
	if closeErr != nil {
		s.logger.Error(ctx, "failed to close store", logger.Error(closeErr))
	}

	s.started = false
	s.logger.Info(ctx, "competition service stopped",
		logger.Int64("processed", s.workerPool.Processed()),
		logger.Int64("failed", s.workerPool.Failed()),
	)

	if waitErr != nil {
		return waitErr
	}
	return closeErr
}

// Engine returns the royalty engine used by the service.
func (s *Service) Engine() *royalty.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.workerPool != nil {
		stats["workerCount"] = s.workerPool.Size()
		stats["eventsProcessed"] = s.workerPool.Processed()
		stats["eventsFailed"] = s.workerPool.Failed()
	}

	if s.started {
		queueLen := s.eventQueue.Len()
		dedupeEntries := s.deduper.Size()

		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = dedupeEntries

		if comps, err := s.store.ListCompetitions(context.Background()); err == nil {
			stats["competitions"] = len(comps)
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateDedupeSize(dedupeEntries)
	}

	return stats
}

func dedupeKey(competitionID, eventID string) string {
	return competitionID + "/" + eventID
}

// releasingAppender forgets the dedupe key of an event the store failed to
// append, so a resubmission is ingested instead of reported as a duplicate.
// Events the store refused as already logged or closed keep their key.
type releasingAppender struct {
	store   repository.Store
	deduper dedupe.Deduper
}

func (a *releasingAppender) AppendEvent(ctx context.Context, e model.EngagementEvent) error { //nolint:gocritic // hugeParam: matches the Store signature
	err := a.store.AppendEvent(ctx, e)
	if err != nil &&
		!errors.Is(err, repository.ErrExists) &&
		!errors.Is(err, repository.ErrCompleted) &&
		!errors.Is(err, repository.ErrNotFound) {
		a.deduper.Unrecord(ctx, dedupeKey(e.CompetitionID, e.EventID))
	}
	return err
}
