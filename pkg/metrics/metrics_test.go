package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("test"),
				WithSubsystem("board"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
			)

			Convey("Then its collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.syncRequests.WithLabelValues("single", "accepted").Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_board_sync_requests_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When sync admissions are recorded", func() {
			before := testutil.ToFloat64(globalManager.syncRequests.WithLabelValues("single", "in_flight"))
			RecordSyncRequest("single", "in_flight")
			after := testutil.ToFloat64(globalManager.syncRequests.WithLabelValues("single", "in_flight"))

			Convey("Then the counter grows by one", func() {
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When a fallback snapshot is published", func() {
			UpdateSnapshot(12, 1, 1700000000, false)

			Convey("Then the gauges reflect it", func() {
				So(testutil.ToFloat64(globalManager.snapshotParticipants), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.snapshotDuplicates), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.fallbackActive), ShouldEqual, 1)
			})

			Convey("And live data clears the fallback flag", func() {
				SetFallbackActive(false)
				So(testutil.ToFloat64(globalManager.fallbackActive), ShouldEqual, 0)
			})
		})

		Convey("When pending counts change", func() {
			UpdateSyncPending(3, true)
			So(testutil.ToFloat64(globalManager.syncPending), ShouldEqual, 3)
			So(testutil.ToFloat64(globalManager.syncBulkPending), ShouldEqual, 1)
			UpdateSyncPending(0, false)
			So(testutil.ToFloat64(globalManager.syncBulkPending), ShouldEqual, 0)
		})

		Convey("When the remaining recorders are called", func() {
			So(func() {
				RecordSnapshotLoad("live", "ok", 12)
				RecordViewCompute(40, 10)
				RecordSyncTrigger("bulk", "ok", 120)
				RecordSyncLateFailure()
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueEnqueueError()
				UpdateWorkerActiveCount(1)
				UpdateWorkerCount(5)
				RecordBackendRequest("students", "200", 8)
				RecordHTTPRequest("/leaderboard", "GET", "200")
				RecordHTTPRequestDuration("/leaderboard", "GET", "200", 2)
				RecordErrorByComponent("api", "timeout")
			}, ShouldNotPanic)
		})
	})
}

func TestRegistryExposition(t *testing.T) {
	Convey("Given recorded metrics", t, func() {
		RecordHTTPRequest("/summary", "GET", "200")

		Convey("Then the custom registry exposes them", func() {
			count, err := testutil.GatherAndCount(GetRegistry(), "trailblaze_leaderboard_http_requests_total")
			So(err, ShouldBeNil)
			So(count, ShouldBeGreaterThan, 0)

			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "trailblaze_leaderboard_"), ShouldBeTrue)
			}
		})
	})
}
