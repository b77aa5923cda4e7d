package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Tracking metrics
	PageViewsTotal      prometheus.Counter
	TrackedErrorsTotal  *prometheus.CounterVec
	SessionsActive      prometheus.Gauge
	SessionsTotal       prometheus.Gauge
	SessionsCleanedTotal prometheus.Counter

	// Persistence metrics
	PersistTotal    *prometheus.CounterVec
	PersistDuration prometheus.Histogram
	RestoreTotal    *prometheus.CounterVec

	// Stream metrics
	StreamClientsActive       prometheus.Gauge
	StreamEventsTotal         *prometheus.CounterVec
	StreamDroppedClientsTotal prometheus.Counter

	// Referrer cache metrics
	ReferrerCacheHitsTotal   prometheus.Counter
	ReferrerCacheMissesTotal prometheus.Counter

	// Rate limit metrics
	RateLimitedTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beacon_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beacon_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beacon_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Tracking metrics
		PageViewsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_page_views_total",
				Help: "Total number of tracked page views",
			},
		),
		TrackedErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_tracked_errors_total",
				Help: "Total number of tracked client errors",
			},
			[]string{"error_type"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "beacon_sessions_active",
				Help: "Number of sessions active within the last 30 minutes",
			},
		),
		SessionsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "beacon_sessions_total",
				Help: "Total number of tracked sessions",
			},
		),
		SessionsCleanedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_sessions_cleaned_total",
				Help: "Total number of stale sessions removed by cleanup",
			},
		),

		// Persistence metrics
		PersistTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_persist_total",
				Help: "Total number of persistence runs",
			},
			[]string{"status"},
		),
		PersistDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "beacon_persist_duration_seconds",
				Help:    "Persistence run duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		RestoreTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_restore_total",
				Help: "Total number of state restore attempts",
			},
			[]string{"status"},
		),

		// Stream metrics
		StreamClientsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "beacon_stream_clients_active",
				Help: "Number of connected event stream clients",
			},
		),
		StreamEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_stream_events_total",
				Help: "Total number of broadcast events by type",
			},
			[]string{"type"},
		),
		StreamDroppedClientsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_stream_dropped_clients_total",
				Help: "Total number of stream clients dropped after failed delivery",
			},
		),

		// Referrer cache metrics
		ReferrerCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_referrer_cache_hits_total",
				Help: "Total number of referrer classification cache hits",
			},
		),
		ReferrerCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_referrer_cache_misses_total",
				Help: "Total number of referrer classification cache misses",
			},
		),

		// Rate limit metrics
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_rate_limited_total",
				Help: "Total number of requests rejected by rate limiting",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.PageViewsTotal,
		m.TrackedErrorsTotal,
		m.SessionsActive,
		m.SessionsTotal,
		m.SessionsCleanedTotal,
		m.PersistTotal,
		m.PersistDuration,
		m.RestoreTotal,
		m.StreamClientsActive,
		m.StreamEventsTotal,
		m.StreamDroppedClientsTotal,
		m.ReferrerCacheHitsTotal,
		m.ReferrerCacheMissesTotal,
		m.RateLimitedTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Flush forwards flushes to the underlying writer so streaming responses
// stay instrumented.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status and size
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			// Record request size
			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			// Serve the request
			next.ServeHTTP(rw, r)

			// Record metrics
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
