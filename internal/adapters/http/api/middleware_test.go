package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func TestMiddleware(t *testing.T) {
	Convey("Given a handler wrapped with request id and metrics middleware", t, func() {
		var seen string
		h := RequestIDMiddleware(MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			seen = r.Header.Get(RequestIDHeader)
			w.WriteHeader(http.StatusConflict)
			w.WriteHeader(http.StatusOK)
		}, "test"))

		Convey("When the caller sends no request id", func() {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			Convey("Then one is assigned and echoed", func() {
				So(seen, ShouldNotBeEmpty)
				So(rec.Header().Get(RequestIDHeader), ShouldEqual, seen)
			})
		})

		Convey("When the caller sends a request id", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, "abc")
			h(rec, req)

			So(rec.Header().Get(RequestIDHeader), ShouldEqual, "abc")
			So(seen, ShouldEqual, "abc")
		})
	})

	Convey("Given error statuses", t, func() {
		So(errorClass(http.StatusConflict), ShouldEqual, "in_flight")
		So(errorClass(http.StatusTooManyRequests), ShouldEqual, "backpressure")
		So(errorClass(http.StatusPreconditionRequired), ShouldEqual, "confirmation_required")
		So(errorClass(http.StatusBadGateway), ShouldEqual, "bad_gateway")
		So(errorClass(http.StatusInternalServerError), ShouldEqual, "server_error")
		So(errorClass(http.StatusBadRequest), ShouldEqual, "client_error")
	})
}
