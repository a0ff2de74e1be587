package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each collector
// owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Command and query metrics
	Dispatches       *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	// History metrics
	HistoryOperations *prometheus.CounterVec
	HistoryEvictions  prometheus.Counter
	HistoryTruncated  prometheus.Counter
	OpenSessions      prometheus.Gauge

	// Business metrics
	MapsSaved   prometheus.Counter
	MapsDeleted prometheus.Counter

	// Repository metrics
	DBOperations *prometheus.CounterVec
	DBDuration   *prometheus.HistogramVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a collector whose metrics live under namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Total number of commands and queries dispatched",
			},
			[]string{"kind", "type", "status"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Command and query handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind", "type"},
		),
		HistoryOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_operations_total",
				Help:      "Total number of history operations by kind and outcome",
			},
			[]string{"operation", "outcome"},
		),
		HistoryEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_evictions_total",
				Help:      "Total number of snapshots evicted at capacity",
			},
		),
		HistoryTruncated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_truncated_entries_total",
				Help:      "Total number of redo snapshots discarded by new edits",
			},
		),
		OpenSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_sessions",
				Help:      "Number of open editor sessions",
			},
		),
		MapsSaved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maps_saved_total",
				Help:      "Total number of mind map saves",
			},
		),
		MapsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maps_deleted_total",
				Help:      "Total number of mind maps deleted",
			},
		),
		DBOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_operations_total",
				Help:      "Total number of database operations",
			},
			[]string{"operation", "backend", "status"},
		),
		DBDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_operation_duration_seconds",
				Help:      "Database operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Dispatches,
		c.DispatchDuration,
		c.HistoryOperations,
		c.HistoryEvictions,
		c.HistoryTruncated,
		c.OpenSessions,
		c.MapsSaved,
		c.MapsDeleted,
		c.DBOperations,
		c.DBDuration,
		c.CacheHits,
		c.CacheMisses,
	)

	return c
}

// RecordDB records one repository call
func (c *Collector) RecordDB(operation, backend string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.DBOperations.WithLabelValues(operation, backend, statusLabel(err)).Inc()
	c.DBDuration.WithLabelValues(operation, backend).Observe(elapsed.Seconds())
}

// RecordDispatch records one command or query
func (c *Collector) RecordDispatch(kind, typeName string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Dispatches.WithLabelValues(kind, typeName, statusLabel(err)).Inc()
	c.DispatchDuration.WithLabelValues(kind, typeName).Observe(elapsed.Seconds())
}

// RecordHistory records an append, undo or redo and its outcome
func (c *Collector) RecordHistory(operation, outcome string) {
	if c == nil {
		return
	}
	c.HistoryOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordCache records a cache lookup
func (c *Collector) RecordCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.CacheHits.Inc()
	} else {
		c.CacheMisses.Inc()
	}
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
