package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/mq/queue"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/mq/worker"
	logging "github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

type mockTrigger struct {
	mu       sync.Mutex
	scraped  []string
	bulk     int
	errs     map[string]error
	inFlight atomic.Int64
	peak     atomic.Int64
	delay    time.Duration
}

func newMockTrigger() *mockTrigger {
	return &mockTrigger{errs: make(map[string]error)}
}

func (m *mockTrigger) enter() func() {
	n := m.inFlight.Add(1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return func() { m.inFlight.Add(-1) }
}

func (m *mockTrigger) Scrape(_ context.Context, id string) error {
	defer m.enter()()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scraped = append(m.scraped, id)
	return m.errs[id]
}

func (m *mockTrigger) ScrapeAll(_ context.Context) error {
	defer m.enter()()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulk++
	return nil
}

type outcome struct {
	ticket string
	err    error
}

func collect(results chan outcome, n int) map[string]error {
	got := make(map[string]error, n)
	for i := 0; i < n; i++ {
		select {
		case r := <-results:
			got[r.ticket] = r.err
		case <-time.After(2 * time.Second):
			return got
		}
	}
	return got
}

func job(ticket string, scope queue.Scope, id string, results chan outcome) queue.Job {
	return queue.Job{
		TicketID:      ticket,
		Scope:         scope,
		ParticipantID: id,
		Report:        func(err error) { results <- outcome{ticket: ticket, err: err} },
	}
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of two workers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		trigger := newMockTrigger()
		trigger.errs["bad"] = errors.New("backend said no")
		pool := worker.NewPool(2, q, trigger, worker.WithJobTimeout(time.Second))
		pool.Start(ctx)
		pool.Start(ctx)

		results := make(chan outcome, 16)

		convey.Convey("When single and bulk jobs are queued", func() {
			convey.So(q.Enqueue(ctx, job("t1", queue.ScopeSingle, "R1", results)), convey.ShouldBeTrue)
			convey.So(q.Enqueue(ctx, job("t2", queue.ScopeSingle, "bad", results)), convey.ShouldBeTrue)
			convey.So(q.Enqueue(ctx, job("t3", queue.ScopeAll, "", results)), convey.ShouldBeTrue)

			got := collect(results, 3)

			convey.Convey("Then every job reports its trigger outcome", func() {
				convey.So(len(got), convey.ShouldEqual, 3)
				convey.So(got["t1"], convey.ShouldBeNil)
				convey.So(got["t2"], convey.ShouldNotBeNil)
				convey.So(got["t2"].Error(), convey.ShouldContainSubstring, "backend said no")
				convey.So(got["t3"], convey.ShouldBeNil)
				convey.So(trigger.bulk, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a job has an unknown scope", func() {
			convey.So(q.Enqueue(ctx, job("t9", queue.Scope("weird"), "", results)), convey.ShouldBeTrue)
			got := collect(results, 1)

			convey.Convey("Then it fails without calling the backend", func() {
				convey.So(errors.Is(got["t9"], worker.ErrUnknownScope), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the pool shuts down", func() {
			err := pool.Shutdown(context.Background())

			convey.Convey("Then the queue is closed and workers exit", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(q.Enqueue(ctx, job("late", queue.ScopeSingle, "R1", results)), convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given more jobs than workers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		trigger := newMockTrigger()
		trigger.delay = 20 * time.Millisecond
		pool := worker.NewPool(3, q, trigger)
		pool.Start(ctx)
		defer func() { _ = pool.Shutdown(context.Background()) }()

		results := make(chan outcome, 32)
		for i := 0; i < 12; i++ {
			q.Enqueue(ctx, job("t"+string(rune('a'+i)), queue.ScopeSingle, "R", results))
		}
		got := collect(results, 12)

		convey.Convey("Then concurrency never exceeds the pool size", func() {
			convey.So(len(got), convey.ShouldEqual, 12)
			convey.So(trigger.peak.Load(), convey.ShouldBeLessThanOrEqualTo, 3)
			convey.So(pool.Size(), convey.ShouldEqual, 3)
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a single worker", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, newMockTrigger(), worker.WithName("solo"))
		go w.Run(context.Background())

		convey.Convey("Then shutdown returns once the loop exits", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}
