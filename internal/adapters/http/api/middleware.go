package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/stagepay/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class for one
// named route.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		durationMs := float64(time.Since(start).Microseconds()) / 1000
		code := strconv.Itoa(status)

		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, durationMs)

		if status < http.StatusBadRequest {
			return
		}
		errorType, severity := errorClass(status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
		metrics.RecordErrorByType(errorType, severity)
		metrics.RecordErrorLatency("http", errorType, durationMs)
	}
}

// errorClass maps an error status to the metric error type and severity.
func errorClass(status int) (errorType, severity string) {
	switch {
	case status == http.StatusServiceUnavailable:
		return "unavailable", "high"
	case status >= http.StatusInternalServerError:
		return "server_error", "high"
	case status == http.StatusTooManyRequests:
		// Sustained 429s mean ingestion is not keeping up.
		return "backpressure", "medium"
	case status == http.StatusConflict:
		return "conflict", "low"
	case status == http.StatusNotFound:
		return "not_found", "low"
	default:
		return "client_error", "low"
	}
}
