// Package metrics provides Prometheus instrumentation for the pricing engine.
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
	// ModelsBuilt counts lattice models built successfully.
	ModelsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optx_models_built_total",
		Help: "Total number of lattice models built",
	})

	// ModelRejections counts model builds rejected at validation,
	// partitioned by reason (invalid_parameter, degenerate).
	ModelRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optx_model_rejections_total",
		Help: "Model builds rejected at validation",
	}, []string{"reason"})

	// QuotesTotal counts quotes priced, partitioned by option style.
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optx_quotes_total",
		Help: "Total number of quotes priced",
	}, []string{"style"})

	// PricingLatency tracks backward induction latency per style.
	PricingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optx_pricing_latency_seconds",
		Help:    "Backward induction latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"style"})

	// ParityViolations counts priced call/put pairs failing the parity check.
	ParityViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optx_parity_violations_total",
		Help: "Priced pairs failing the put-call parity check",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optx_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optx_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optx_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
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

		// Use the route pattern for path label to avoid high cardinality.
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
