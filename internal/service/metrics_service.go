package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/grievance-api/internal/models"
)

// Grievance actions recorded by ObserveGrievanceAction.
const (
	ActionSubmit       = "submit"
	ActionUpdateStatus = "update_status"
	ActionForward      = "forward"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	storeDuration   *prometheus.HistogramVec
	actions         *prometheus.CounterVec
	events          *prometheus.CounterVec

	cacheHitCount      uint64
	cacheMissCount     uint64
	requestCount       uint64
	requestDurationSum uint64
	storeCallCount     uint64
	storeDurationSum   uint64
	eventsPublished    uint64
	eventsFailed       uint64

	actionMu     sync.Mutex
	actionCounts map[string]int64
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

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_call_duration_seconds",
		Help:    "Duration of data store calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_actions_total",
		Help: "Grievance lifecycle actions by acting role and outcome",
	}, []string{"action", "role", "outcome"})

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_events_total",
		Help: "Grievance events by type and delivery outcome",
	}, []string{"type", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, storeDuration, actions, events, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		storeDuration:   storeDuration,
		actions:         actions,
		events:          events,
		actionCounts:    make(map[string]int64),
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
	atomic.AddUint64(&m.requestDurationSum, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveStoreCall records the latency of one data store call.
func (m *MetricsService) ObserveStoreCall(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
	atomic.AddUint64(&m.storeCallCount, 1)
	atomic.AddUint64(&m.storeDurationSum, uint64(duration.Nanoseconds()))
}

// ObserveGrievanceAction counts a lifecycle action. err decides the outcome label.
func (m *MetricsService) ObserveGrievanceAction(action string, role models.UserRole, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.actions.WithLabelValues(action, string(role), outcome).Inc()
	m.actionMu.Lock()
	m.actionCounts[action+":"+outcome]++
	m.actionMu.Unlock()
}

// ObserveEvent counts a delivered or failed event publication.
func (m *MetricsService) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.events.WithLabelValues(eventType, "failed").Inc()
		atomic.AddUint64(&m.eventsFailed, 1)
		return
	}
	m.events.WithLabelValues(eventType, "published").Inc()
	atomic.AddUint64(&m.eventsPublished, 1)
}

// Snapshot returns aggregated metrics for the system metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationSum)
	storeCalls := atomic.LoadUint64(&m.storeCallCount)
	storeDuration := atomic.LoadUint64(&m.storeDurationSum)

	var cacheRatio float64
	if hits+misses > 0 {
		cacheRatio = float64(hits) / float64(hits+misses)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var avgStoreMs float64
	if storeCalls > 0 {
		avgStoreMs = float64(storeDuration) / float64(storeCalls) / float64(time.Millisecond)
	}

	m.actionMu.Lock()
	actions := make(map[string]int64, len(m.actionCounts))
	for k, v := range m.actionCounts {
		actions[k] = v
	}
	m.actionMu.Unlock()

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		StoreCalls:               storeCalls,
		AverageStoreDurationMs:   avgStoreMs,
		GrievanceActions:         actions,
		EventsPublished:          atomic.LoadUint64(&m.eventsPublished),
		EventsFailed:             atomic.LoadUint64(&m.eventsFailed),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
