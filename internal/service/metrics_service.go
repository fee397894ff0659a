package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
)

const metricsNamespace = "dakpad"

// MetricsService owns a private Prometheus registry. Every recording method is
// a no-op on a nil receiver so services can run without instrumentation.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheLatency  prometheus.Histogram
	cacheWrite    prometheus.Histogram
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheHitRatio prometheus.Gauge
	hitCount      atomic.Uint64
	lookupCount   atomic.Uint64

	transitions     *prometheus.CounterVec
	lifecycleErrors *prometheus.CounterVec
	auditDropped    prometheus.Counter
}

// NewMetricsService registers the API's collectors plus Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(registry)
	httpLabels := []string{"method", "route", "status"}

	return &MetricsService{
		registry: registry,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by matched route.",
			Buckets:   prometheus.DefBuckets,
		}, httpLabels),
		requestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by matched route and status.",
		}, httpLabels),

		cacheLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "read_seconds",
			Help:      "Redis read latency for tracking and dashboard lookups.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		cacheWrite: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "write_seconds",
			Help:      "Redis write latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache lookups served from Redis.",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache lookups that fell through to Postgres.",
		}),
		cacheHitRatio: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "hit_ratio",
			Help:      "Hits over lookups since start.",
		}),

		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "application",
			Name:      "transitions_total",
			Help:      "Lifecycle operations committed, by operation and resulting status.",
		}, []string{"operation", "status"}),
		lifecycleErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "application",
			Name:      "operation_errors_total",
			Help:      "Lifecycle operations rejected, by operation and error code.",
		}, []string{"operation", "code"}),
		auditDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "audit",
			Name:      "entries_dropped_total",
			Help:      "Audit entries that could not be queued or persisted.",
		}),
	}
}

// Registry returns the private registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format; a nil service answers 503.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one finished request against its route template.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, code).Inc()
}

// RecordCacheOperation records a read and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	hits := m.hitCount.Load()
	if hit {
		m.cacheHits.Inc()
		hits = m.hitCount.Add(1)
	} else {
		m.cacheMisses.Inc()
	}
	lookups := m.lookupCount.Add(1)
	m.cacheHitRatio.Set(float64(hits) / float64(lookups))
}

// ObserveCacheWrite records a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordTransition counts a committed lifecycle operation.
func (m *MetricsService) RecordTransition(operation string, status models.ApplicationStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, string(status)).Inc()
}

// RecordLifecycleError counts a rejected lifecycle operation.
func (m *MetricsService) RecordLifecycleError(operation, code string) {
	if m == nil {
		return
	}
	m.lifecycleErrors.WithLabelValues(operation, code).Inc()
}

// RecordAuditDropped counts an audit entry that was lost.
func (m *MetricsService) RecordAuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}
