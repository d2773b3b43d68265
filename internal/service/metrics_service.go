package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for the health endpoint.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	backendDuration  *prometheus.HistogramVec
	normalizeResults *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	sessionsActive   prometheus.Gauge
	submissions      *prometheus.CounterVec
	dbQueryDuration  *prometheus.HistogramVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	backendCount         uint64
	fallbackCount        uint64
	sessionCount         int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Duration of calls to the SchoolSnap backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	normalizeResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_responses_normalized_total",
		Help: "Normalised backend responses by query, data source and fallback reason",
	}, []string{"query", "source", "reason"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "attendance_sessions_active",
		Help: "Attendance sessions currently open on this instance",
	})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_submissions_total",
		Help: "Attendance batch submissions by outcome",
	}, []string{"outcome"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, backendDuration, normalizeResults, cacheLatency, cacheWrite,
		cacheHitRatio, cacheHits, cacheMisses, sessionsActive, submissions, dbQueryDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		backendDuration:  backendDuration,
		normalizeResults: normalizeResults,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		sessionsActive:   sessionsActive,
		submissions:      submissions,
		dbQueryDuration:  dbQueryDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveBackendRequest records one call to the backend. Status 0 means the
// request never got an answer.
func (m *MetricsService) ObserveBackendRequest(endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(endpoint, fmt.Sprintf("%d", statusCode)).Observe(duration.Seconds())
	atomic.AddUint64(&m.backendCount, 1)
}

// ObserveNormalized counts how each backend answer was classified.
func (m *MetricsService) ObserveNormalized(query string, source models.DataSource, reason normalize.Reason) {
	if m == nil {
		return
	}
	label := string(reason)
	if label == "" {
		label = "none"
	}
	m.normalizeResults.WithLabelValues(query, string(source), label).Inc()
	if source == models.SourceFallback {
		atomic.AddUint64(&m.fallbackCount, 1)
	}
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// SessionOpened and SessionClosed keep the active session gauge current.
func (m *MetricsService) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(atomic.AddInt64(&m.sessionCount, 1)))
}

func (m *MetricsService) SessionClosed() {
	if m == nil {
		return
	}
	n := atomic.AddInt64(&m.sessionCount, -1)
	if n < 0 {
		atomic.StoreInt64(&m.sessionCount, 0)
		n = 0
	}
	m.sessionsActive.Set(float64(n))
}

// RecordSubmission counts a batch submission outcome.
func (m *MetricsService) RecordSubmission(outcome models.SubmissionOutcome) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(outcome)).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics for the health endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		BackendRequests:          atomic.LoadUint64(&m.backendCount),
		FallbackResponses:        atomic.LoadUint64(&m.fallbackCount),
		ActiveSessions:           atomic.LoadInt64(&m.sessionCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
