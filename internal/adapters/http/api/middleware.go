package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// MetricsMiddleware wraps a handler to record request count, latency and
// error class under endpoint. Server errors are also logged.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		took := time.Since(start)
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(took.Microseconds())/1000)

		if rec.status < http.StatusBadRequest {
			return
		}
		metrics.RecordErrorByEndpoint(endpoint, r.Method, errorClass(rec.status))
		if rec.status >= http.StatusInternalServerError {
			logger.Get().Named("api").Error(r.Context(), "request failed",
				logger.String("endpoint", endpoint),
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", rec.status),
				logger.Duration("took", took),
			)
		}
	}
}

// errorClass buckets a status code into the error_type label.
func errorClass(status int) string {
	switch status {
	case http.StatusNotFound:
		return "session_not_found"
	case http.StatusConflict:
		return "session_closed"
	case http.StatusRequestEntityTooLarge:
		return "batch_too_large"
	case http.StatusTooManyRequests:
		return "backpressure"
	}
	if status >= http.StatusInternalServerError {
		return "server_error"
	}
	return "invalid_request"
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.wroteHeader {
		rec.status = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.wroteHeader = true
	return rec.ResponseWriter.Write(b) //nolint:wrapcheck // transparent passthrough
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rec *statusRecorder) Unwrap() http.ResponseWriter { return rec.ResponseWriter }
