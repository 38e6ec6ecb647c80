package service_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/backend"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/fallback"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/repository"
	service "github.com/DhanushPadarthi/trailhead-leaderboard/internal/app"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/ranking"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/fakebackend"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_AgainstFakeBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	Convey("Given the service wired to a fake backend over HTTP", t, func() {
		seed := []participant.Record{
			{ID: "A", DisplayName: "Asha", Score: 500, BadgeCount: 12, Tiers: participant.TierSet(0).With(participant.Champion)},
			{ID: "B", DisplayName: "Ben", Score: 900, BadgeCount: 9},
			{ID: "C", DisplayName: "Chen", Score: 300, BadgeCount: 15, Tiers: participant.TierSet(0).With(participant.Innovator)},
		}
		srv := fakebackend.New(0, fakebackend.WithRecords(seed))
		ts := httptest.NewServer(srv.Handler())
		defer ts.Close()

		client, err := backend.NewClient(backend.DefaultClientConfig(ts.URL))
		So(err, ShouldBeNil)

		snapshotPath := filepath.Join(t.TempDir(), "static-data.json")
		So(fallback.NewFilePublisher(snapshotPath).Publish(ctx, seed[:1]), ShouldBeNil)

		svc := service.New(client,
			service.WithFallback(fallback.NewFileSource(snapshotPath)),
			service.WithSyncDwell(20*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the live ranking is C, A, B", func() {
			view := svc.View(ctx, ranking.Criteria{})
			So(view.Source, ShouldEqual, repository.SourceLive)
			So(view.Entries, ShouldHaveLength, 3)
			So(view.Entries[0].Record.ID, ShouldEqual, "C")
			So(view.Entries[1].Record.ID, ShouldEqual, "A")
			So(view.Entries[2].Record.ID, ShouldEqual, "B")
			So(view.Summary.Complete, ShouldEqual, 2)
		})

		Convey("Then a sync round-trips and clears after the dwell floor", func() {
			ticket, err := svc.RequestSync(ctx, "B")
			So(err, ShouldBeNil)
			So(ticket.Wait(ctx), ShouldBeNil)
			So(eventually(func() bool { return len(svc.SyncStatus().Pending) == 0 }), ShouldBeTrue)
			So(eventually(func() bool {
				e, err := svc.Entry(ctx, "B")
				return err == nil && e.Record.LastUpdated.After(time.Time{})
			}), ShouldBeTrue)
		})

		Convey("Then a trigger the backend rejects reaches the ticket", func() {
			srv.SetScrapeFailing(true)
			ticket, err := svc.RequestSync(ctx, "A")
			So(err, ShouldBeNil)
			So(errors.Is(ticket.Wait(ctx), backend.ErrUnexpectedStatus), ShouldBeTrue)
		})

		Convey("When the backend database goes down", func() {
			srv.SetStudentsFailing(true)
			report, err := svc.Refresh(ctx)

			Convey("Then the last live snapshot stays with a warning", func() {
				So(err, ShouldBeNil)
				So(report.Kept, ShouldBeTrue)
				So(svc.View(ctx, ranking.Criteria{}).Entries, ShouldHaveLength, 3)
			})
		})
	})

	Convey("Given the backend is down from the start", t, func() {
		srv := fakebackend.New(5)
		srv.SetStudentsFailing(true)
		ts := httptest.NewServer(srv.Handler())
		defer ts.Close()

		client, err := backend.NewClient(backend.DefaultClientConfig(ts.URL))
		So(err, ShouldBeNil)

		snapshotPath := filepath.Join(t.TempDir(), "static-data.json")
		So(fallback.NewFilePublisher(snapshotPath).Publish(ctx, []participant.Record{{ID: "S1", Score: 7}}), ShouldBeNil)

		svc := service.New(client, service.WithFallback(fallback.NewFileSource(snapshotPath)))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the static snapshot is served with the fallback warning", func() {
			view := svc.View(ctx, ranking.Criteria{})
			So(view.Source, ShouldEqual, repository.SourceFallback)
			So(view.Warning, ShouldEqual, service.WarningFallback)
			So(view.Entries, ShouldHaveLength, 1)
			So(view.Entries[0].Record.ID, ShouldEqual, "S1")
		})
	})
}
