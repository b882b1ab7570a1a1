package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/stagepay/internal/adapters/mq/queue"
	"github.com/okian/stagepay/internal/adapters/mq/worker"
	"github.com/okian/stagepay/internal/adapters/repository"
	"github.com/okian/stagepay/internal/domain/model"
	logging "github.com/okian/stagepay/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockAppender struct {
	mu     sync.Mutex
	events []model.EngagementEvent
	errors map[string]error
}

func newMockAppender() *mockAppender {
	return &mockAppender{errors: make(map[string]error)}
}

func (m *mockAppender) AppendEvent(_ context.Context, e model.EngagementEvent) error { //nolint:gocritic // hugeParam: matches the Appender signature
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errors[e.EventID]; ok {
		return err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockAppender) setError(eventID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[eventID] = err
}

func (m *mockAppender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func event(id string) queue.Event {
	return queue.Event{
		EventID:       id,
		CompetitionID: "comp-1",
		ParticipantID: "p1",
		Kind:          model.KindVote,
		TS:            time.Now(),
	}
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a queue, an appender and a single worker", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		app := newMockAppender()

		var mu sync.Mutex
		var outcomes []error
		w := worker.NewInMemoryWorker(q, app,
			worker.WithName("test-worker"),
			worker.WithLogger(logging.Discard()),
			worker.WithObserver(func(_ queue.Event, err error) {
				mu.Lock()
				outcomes = append(outcomes, err)
				mu.Unlock()
			}),
		)

		convey.Convey("When events are queued and the queue is closed", func() {
			ctx := context.Background()
			convey.So(q.Enqueue(ctx, event("e1")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, event("e2")), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			w.Run(ctx)

			convey.Convey("Then every buffered event is appended before the worker returns", func() {
				convey.So(app.count(), convey.ShouldEqual, 2)
				convey.So(outcomes, convey.ShouldHaveLength, 2)
				convey.So(outcomes[0], convey.ShouldBeNil)
				convey.So(outcomes[1], convey.ShouldBeNil)

				select {
				case <-w.Done():
				default:
					convey.So("worker not done", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When the appender rejects events", func() {
			ctx := context.Background()
			app.setError("closed", fmt.Errorf("competition %q: %w", "comp-1", repository.ErrCompleted))
			app.setError("dup", repository.ErrExists)
			app.setError("broken", errors.New("disk full"))

			for _, id := range []string{"closed", "dup", "broken", "ok"} {
				convey.So(q.Enqueue(ctx, event(id)), convey.ShouldBeNil)
			}
			convey.So(q.Close(), convey.ShouldBeNil)
			w.Run(ctx)

			convey.Convey("Then failures are reported with their cause and processing continues", func() {
				convey.So(outcomes, convey.ShouldHaveLength, 4)
				convey.So(errors.Is(outcomes[0], repository.ErrCompleted), convey.ShouldBeTrue)
				convey.So(errors.Is(outcomes[1], repository.ErrExists), convey.ShouldBeTrue)
				convey.So(outcomes[2], convey.ShouldNotBeNil)
				convey.So(outcomes[3], convey.ShouldBeNil)
				convey.So(app.count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			convey.Convey("Then the worker returns without the queue being closed", func() {
				w.Run(ctx)
				_, open := <-w.Done()
				convey.So(open, convey.ShouldBeFalse)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		app := newMockAppender()
		app.setError("bad", errors.New("boom"))
		p := worker.NewPool(4, q, app, logging.Discard())

		convey.So(p.Size(), convey.ShouldEqual, 4)

		convey.Convey("When events are submitted and the queue closed", func() {
			ctx := context.Background()
			p.Start(ctx)

			for i := 0; i < 500; i++ {
				convey.So(q.Enqueue(ctx, event(fmt.Sprintf("e%d", i))), convey.ShouldBeNil)
			}
			convey.So(q.Enqueue(ctx, event("bad")), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err := p.Wait(waitCtx)

			convey.Convey("Then everything is drained and counted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(app.count(), convey.ShouldEqual, 500)
				convey.So(p.Processed(), convey.ShouldEqual, 500)
				convey.So(p.Failed(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When waiting without closing the queue", func() {
			ctx, stop := context.WithCancel(context.Background())
			defer stop()
			p.Start(ctx)

			waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			convey.Convey("Then Wait gives up when its context expires", func() {
				err := p.Wait(waitCtx)
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		p := worker.NewPool(0, queue.NewInMemoryQueue(), newMockAppender(), logging.Discard())
		convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
	})
}
