package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection for the HTTP
// surface, the feed-collection pipeline, and persistence.
type MetricsCollector struct {
	logger *zap.Logger

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Feed collection metrics
	feedCollectionsTotal    *prometheus.CounterVec
	feedCollectionDuration  *prometheus.HistogramVec
	threatsIngestedTotal    *prometheus.CounterVec
	associationsTotal       prometheus.Counter
	notificationsSentTotal  *prometheus.CounterVec

	// System metrics
	dbConnectionsActive prometheus.Gauge
	dbConnectionsIdle   prometheus.Gauge
	dbQueryDuration     *prometheus.HistogramVec
	cacheHitRatio       *prometheus.GaugeVec
	cacheOperations     *prometheus.CounterVec

	errorRateTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		logger: logger,

		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		httpResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path", "status_code"},
		),

		feedCollectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_collections_total",
				Help: "Total number of feed collection cycles",
			},
			[]string{"feed", "status"},
		),
		feedCollectionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feed_collection_duration_seconds",
				Help:    "Duration of a feed collection cycle in seconds",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"feed"},
		),
		threatsIngestedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threats_ingested_total",
				Help: "Total number of threats ingested, by feed",
			},
			[]string{"feed"},
		),
		associationsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "threat_asset_associations_total",
				Help: "Total number of threat-asset associations created",
			},
		),
		notificationsSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Total number of notifications dispatched, by channel and outcome",
			},
			[]string{"channel", "status"},
		),

		dbConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_active",
				Help: "Number of active database connections",
			},
		),
		dbConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		dbQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		cacheHitRatio: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cache_hit_ratio",
				Help: "Cache hit ratio",
			},
			[]string{"cache_type"},
		),
		cacheOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_operations_total",
				Help: "Total number of cache operations",
			},
			[]string{"operation", "cache_type", "status"},
		),

		errorRateTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "error_rate_total",
				Help: "Total error rate",
			},
			[]string{"service", "error_type"},
		),
	}
}

// HTTPMiddleware returns a chi-compatible middleware that records HTTP
// metrics for every request.
func (m *MetricsCollector) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			routePattern := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				routePattern = rctx.RoutePattern()
			}
			statusCode := strconv.Itoa(ww.status)

			m.httpRequestsTotal.WithLabelValues(r.Method, routePattern, statusCode).Inc()
			m.httpRequestDuration.WithLabelValues(r.Method, routePattern, statusCode).Observe(duration)
			m.httpResponseSize.WithLabelValues(r.Method, routePattern, statusCode).Observe(float64(ww.size))

			if ww.status >= 400 {
				errorType := "client_error"
				if ww.status >= 500 {
					errorType = "server_error"
				}
				m.errorRateTotal.WithLabelValues("http", errorType).Inc()
			}
		})
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// FeedCollectionCompleted records the outcome of a feed collection cycle.
func (m *MetricsCollector) FeedCollectionCompleted(feedName, status string, duration time.Duration, threatsIngested int) {
	m.feedCollectionsTotal.WithLabelValues(feedName, status).Inc()
	m.feedCollectionDuration.WithLabelValues(feedName).Observe(duration.Seconds())
	if threatsIngested > 0 {
		m.threatsIngestedTotal.WithLabelValues(feedName).Add(float64(threatsIngested))
	}
}

// AssociationCreated records a new threat-asset association.
func (m *MetricsCollector) AssociationCreated() {
	m.associationsTotal.Inc()
}

// NotificationSent records a notification dispatch outcome.
func (m *MetricsCollector) NotificationSent(channel, status string) {
	m.notificationsSentTotal.WithLabelValues(channel, status).Inc()
}

// UpdateDBConnections updates database connection pool gauges.
func (m *MetricsCollector) UpdateDBConnections(active, idle int) {
	m.dbConnectionsActive.Set(float64(active))
	m.dbConnectionsIdle.Set(float64(idle))
}

// DBQuery records a database query duration.
func (m *MetricsCollector) DBQuery(operation, table string, duration time.Duration) {
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// CacheOperation records a cache operation outcome.
func (m *MetricsCollector) CacheOperation(operation, cacheType, status string) {
	m.cacheOperations.WithLabelValues(operation, cacheType, status).Inc()
}

// UpdateCacheHitRatio sets the observed cache hit ratio for a cache type.
func (m *MetricsCollector) UpdateCacheHitRatio(cacheType string, ratio float64) {
	m.cacheHitRatio.WithLabelValues(cacheType).Set(ratio)
}

// RecordError increments the generic error counter for a service.
func (m *MetricsCollector) RecordError(service, errorType string) {
	m.errorRateTotal.WithLabelValues(service, errorType).Inc()
}

// StartUptimeCounter is retained as a lifecycle no-op hook so callers
// can select on ctx.Done() without special-casing metrics startup.
func (m *MetricsCollector) StartUptimeCounter(ctx context.Context) {
	<-ctx.Done()
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}
