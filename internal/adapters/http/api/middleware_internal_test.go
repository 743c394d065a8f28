package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped by the metrics middleware", t, func() {
		status := http.StatusTeapot
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			w.WriteHeader(http.StatusOK)
		}, "mw_test")

		Convey("When the handler writes a status", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			Convey("Then the first status is passed through and counted", func() {
				So(w.Code, ShouldEqual, http.StatusTeapot)
				n, err := testutil.GatherAndCount(metrics.GetRegistry(), "vigil_monitor_http_requests_total")
				So(err, ShouldBeNil)
				So(n, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the handler only writes a body", func() {
			h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			}, "mw_test_body")
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			Convey("Then it is recorded as 200", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, "ok")
			})
		})
	})
}

func TestErrorClass(t *testing.T) {
	Convey("Given response status codes", t, func() {
		Convey("Then each maps to its error class", func() {
			So(errorClass(http.StatusBadRequest), ShouldEqual, "invalid_request")
			So(errorClass(http.StatusNotFound), ShouldEqual, "session_not_found")
			So(errorClass(http.StatusConflict), ShouldEqual, "session_closed")
			So(errorClass(http.StatusRequestEntityTooLarge), ShouldEqual, "batch_too_large")
			So(errorClass(http.StatusTooManyRequests), ShouldEqual, "backpressure")
			So(errorClass(http.StatusServiceUnavailable), ShouldEqual, "server_error")
		})
	})
}
