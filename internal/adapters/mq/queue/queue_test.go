package queue_test

import (
	"context"
	"testing"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity two", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When jobs are enqueued up to capacity", func() {
			So(q.Enqueue(ctx, queue.Job{TicketID: "t1", Scope: queue.ScopeSingle, ParticipantID: "R1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{TicketID: "t2", Scope: queue.ScopeAll}), ShouldBeTrue)

			Convey("Then a third job is rejected", func() {
				So(q.Enqueue(ctx, queue.Job{TicketID: "t3"}), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
				So(q.Capacity(), ShouldEqual, 2)
			})

			Convey("Then jobs come out in order with an enqueue time", func() {
				ch := q.Dequeue(ctx)
				first := <-ch
				second := <-ch
				So(first.TicketID, ShouldEqual, "t1")
				So(first.EnqueuedAt.IsZero(), ShouldBeFalse)
				So(second.Scope, ShouldEqual, queue.ScopeAll)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(q.Enqueue(cctx, queue.Job{TicketID: "t1"}), ShouldBeFalse)
			So(q.Len(ctx), ShouldEqual, 0)
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, queue.Job{TicketID: "t1"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new jobs are rejected but queued ones drain", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, queue.Job{TicketID: "t2"}), ShouldBeFalse)

				var drained []string
				for j := range q.Dequeue(ctx) {
					drained = append(drained, j.TicketID)
				}
				So(drained, ShouldResemble, []string{"t1"})
			})
		})
	})
}
