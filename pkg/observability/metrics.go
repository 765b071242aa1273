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

	// Policy metrics
	PolicyDecisionsTotal *prometheus.CounterVec

	// Query metrics
	ListingQueriesTotal *prometheus.CounterVec
	SearchQueriesTotal  *prometheus.CounterVec
	SearchQueryDuration *prometheus.HistogramVec

	// Bulk action metrics
	BulkActionsTotal      *prometheus.CounterVec
	BulkItemOutcomesTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive       prometheus.Gauge
	DBConnectionsIdle         prometheus.Gauge
	DBConnectionsWaitCount    prometheus.Gauge
	DBConnectionsWaitDuration prometheus.Gauge

	// Redis metrics
	RedisConnectionsActive prometheus.Gauge

	// Business metrics
	MediaTotal       prometheus.Gauge
	ListableTotal    prometheus.Gauge
	PlaylistsTotal   prometheus.Gauge
	ActiveUsersTotal prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacms_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediacms_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediacms_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediacms_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Policy metrics
		PolicyDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacms_policy_decisions_total",
				Help: "Total number of visibility policy decisions",
			},
			[]string{"check", "outcome"},
		),

		// Query metrics
		ListingQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacms_listing_queries_total",
				Help: "Total number of listing queries",
			},
			[]string{"scope"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacms_search_queries_total",
				Help: "Total number of search queries",
			},
			[]string{"strategy"},
		),
		SearchQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediacms_search_query_duration_seconds",
				Help:    "Search query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),

		// Bulk action metrics
		BulkActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacms_bulk_actions_total",
				Help: "Total number of bulk action requests",
			},
			[]string{"action"},
		),
		BulkItemOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacms_bulk_item_outcomes_total",
				Help: "Per-item outcomes of bulk actions",
			},
			[]string{"action", "outcome"},
		),

		// Cache metrics
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacms_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacms_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediacms_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediacms_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediacms_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
		DBConnectionsWaitDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediacms_db_connections_wait_duration_seconds",
				Help: "Total time spent waiting for connections",
			},
		),

		// Redis metrics
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediacms_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),

		// Business metrics
		MediaTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediacms_media_total",
				Help: "Total number of media objects",
			},
		),
		ListableTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediacms_media_listable_total",
				Help: "Number of publicly discoverable media objects",
			},
		),
		PlaylistsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediacms_playlists_total",
				Help: "Total number of playlists",
			},
		),
		ActiveUsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediacms_active_users_total",
				Help: "Number of users with a live session",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.PolicyDecisionsTotal,
		m.ListingQueriesTotal,
		m.SearchQueriesTotal,
		m.SearchQueryDuration,
		m.BulkActionsTotal,
		m.BulkItemOutcomesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.DBConnectionsWaitDuration,
		m.RedisConnectionsActive,
		m.MediaTotal,
		m.ListableTotal,
		m.PlaylistsTotal,
		m.ActiveUsersTotal,
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

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			next.ServeHTTP(rw, r)

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
