// Package metrics provides Prometheus metrics for the roster assignment service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Engine
	assignmentsGenerated *prometheus.CounterVec
	optimalFallbacks     prometheus.Counter
	matcherLatency       prometheus.Histogram
	poolSize             prometheus.Histogram
	slotsAssigned        prometheus.Histogram

	// Cache
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheEntries prometheus.Gauge

	// Rosters and publication
	rosterUploads        prometheus.Counter
	rostersTotal         prometheus.Gauge
	snapshotsPublished   prometheus.Counter
	snapshotsSuppressed  prometheus.Counter
	publishErrors        prometheus.Counter
	refreshesSkipped     prometheus.Counter
	refreshesStale       prometheus.Counter
	dedupeTrackedRosters prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "roster",
		subsystem:        "assignment",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	m.enabled.Store(true)
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place to declare every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels, Buckets: buckets,
		})
	}

	m.assignmentsGenerated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("generated_total"),
		Help:        "Assignments generated by the strategy that produced them",
		ConstLabels: labels,
	}, []string{"strategy"})
	m.optimalFallbacks = counter("optimal_fallback_total", "Optimal runs that fell back to rank order")
	m.matcherLatency = histogram("matcher_latency_milliseconds", "Time spent in cost reduction and matching", m.histogramBuckets)
	m.poolSize = histogram("pool_size", "Normalized candidate pool size per generation", []float64{5, 10, 15, 20, 30, 40, 50, 75, 100})
	m.slotsAssigned = histogram("slots_assigned", "Slots assigned per generation", []float64{1, 5, 10, 15, 20, 25, 30, 40, 50})

	m.cacheHits = counter("cache_hits_total", "Result cache hits")
	m.cacheMisses = counter("cache_misses_total", "Result cache misses")
	m.cacheEntries = gauge("cache_entries", "Entries currently held by the result cache")

	m.rosterUploads = counter("roster_uploads_total", "Roster uploads accepted")
	m.rostersTotal = gauge("rosters_total", "Rosters held by the store")
	m.snapshotsPublished = counter("snapshots_published_total", "Assignment snapshots published")
	m.snapshotsSuppressed = counter("snapshots_suppressed_total", "Snapshots suppressed because nothing changed")
	m.publishErrors = counter("publish_errors_total", "Snapshot publication failures")
	m.refreshesSkipped = counter("refreshes_skipped_total", "Roster refresh jobs dropped on a full queue")
	m.refreshesStale = counter("refreshes_stale_total", "Roster refresh jobs skipped because the roster was deleted")
	m.dedupeTrackedRosters = gauge("dedupe_tracked_rosters", "Rosters with a remembered snapshot signature")

	m.queueSize = gauge("queue_size", "Current number of queued refresh jobs")
	m.queueCapacity = gauge("queue_capacity", "Maximum number of queued refresh jobs")
	m.queueEnqueueTotal = counter("queue_enqueue_total", "Refresh jobs enqueued")
	m.queueDequeueTotal = counter("queue_dequeue_total", "Refresh jobs dequeued")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Refresh jobs rejected by the queue")

	m.workerCount = gauge("worker_count", "Refresh workers running")
	m.workerProcessingLatency = histogram("worker_processing_latency_milliseconds", "Refresh job processing latency", m.histogramBuckets)
	m.workerErrors = counter("worker_errors_total", "Refresh jobs that failed")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: labels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})
	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by endpoint, method and type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
}

// RecordAssignment counts one generation under the strategy that produced it.
func RecordAssignment(strategy string, poolSize, slots int) {
	if !Enabled() {
		return
	}
	globalManager.assignmentsGenerated.WithLabelValues(strategy).Inc()
	globalManager.poolSize.Observe(float64(poolSize))
	globalManager.slotsAssigned.Observe(float64(slots))
}

// RecordOptimalFallback counts an optimal run that fell back to rank order.
func RecordOptimalFallback() {
	if !Enabled() {
		return
	}
	globalManager.optimalFallbacks.Inc()
}

// RecordMatcherLatency records matcher latency in milliseconds.
func RecordMatcherLatency(latencyMs float64) {
	if !Enabled() {
		return
	}
	globalManager.matcherLatency.Observe(latencyMs)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	if !Enabled() {
		return
	}
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	if !Enabled() {
		return
	}
	globalManager.cacheMisses.Inc()
}

// UpdateCacheEntries sets the current cache size.
func UpdateCacheEntries(n int) {
	if !Enabled() {
		return
	}
	globalManager.cacheEntries.Set(float64(n))
}

// RecordRosterUpload increments the roster upload counter.
func RecordRosterUpload() {
	if !Enabled() {
		return
	}
	globalManager.rosterUploads.Inc()
}

// UpdateRostersTotal sets the number of stored rosters.
func UpdateRostersTotal(n int) {
	if !Enabled() {
		return
	}
	globalManager.rostersTotal.Set(float64(n))
}

// RecordSnapshotPublished increments the published snapshot counter.
func RecordSnapshotPublished() {
	if !Enabled() {
		return
	}
	globalManager.snapshotsPublished.Inc()
}

// RecordSnapshotSuppressed increments the suppressed snapshot counter.
func RecordSnapshotSuppressed() {
	if !Enabled() {
		return
	}
	globalManager.snapshotsSuppressed.Inc()
}

// RecordPublishError increments the publication error counter.
func RecordPublishError() {
	if !Enabled() {
		return
	}
	globalManager.publishErrors.Inc()
}

// RecordRefreshStale counts a refresh job dropped because its roster no
// longer exists.
func RecordRefreshStale() {
	if !Enabled() {
		return
	}
	globalManager.refreshesStale.Inc()
}

// RecordRefreshSkipped counts a refresh job that could not be queued.
func RecordRefreshSkipped() {
	if !Enabled() {
		return
	}
	globalManager.refreshesSkipped.Inc()
}

// UpdateDedupeTracked sets the number of rosters with a remembered signature.
func UpdateDedupeTracked(n int64) {
	if !Enabled() {
		return
	}
	globalManager.dedupeTrackedRosters.Set(float64(n))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !Enabled() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !Enabled() {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !Enabled() {
		return
	}
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !Enabled() {
		return
	}
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if !Enabled() {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	if !Enabled() {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records refresh job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !Enabled() {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if !Enabled() {
		return
	}
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !Enabled() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !Enabled() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !Enabled() {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !Enabled() {
		return
	}
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !Enabled() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !Enabled() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// Enabled reports whether the package-level recorders update collectors.
func Enabled() bool {
	return globalManager.enabled.Load()
}

// SetEnabled turns the package-level recorders on or off.
func SetEnabled(enabled bool) {
	globalManager.enabled.Store(enabled)
}

// GetRegistry returns the registry the service metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
