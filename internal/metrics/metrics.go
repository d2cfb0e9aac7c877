// Package metrics provides Prometheus instrumentation for the sizing engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QuotesTotal counts provider cost quotes, partitioned by currency basis.
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsizer_quotes_total",
		Help: "Total number of provider cost quotes computed",
	}, []string{"basis"})

	// SizingsTotal counts investment sizing calculations.
	SizingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsizer_sizings_total",
		Help: "Total number of investment sizing calculations",
	})

	// DifferencesTotal counts difference calculations, partitioned by mode.
	DifferencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsizer_differences_total",
		Help: "Total number of difference calculations",
	}, []string{"mode"})

	// RateLookupsTotal counts exchange-rate lookups by outcome
	// (fresh, cached, stale, error).
	RateLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsizer_rate_lookups_total",
		Help: "Total exchange-rate lookups by outcome",
	}, []string{"outcome"})

	// ValidationFailuresTotal counts rejected provider/settings saves.
	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsizer_validation_failures_total",
		Help: "Saves rejected by validation",
	}, []string{"entity"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsizer_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finsizer_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "finsizer_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small
		// enough that cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
