// Package metrics provides Prometheus metrics for the leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Snapshot acquisition
	snapshotLoads        *prometheus.CounterVec
	snapshotParticipants prometheus.Gauge
	snapshotDuplicates   prometheus.Gauge
	snapshotLastUnix     prometheus.Gauge
	snapshotLoadDuration prometheus.Histogram
	fallbackActive       prometheus.Gauge

	// Ranking
	viewComputeLatency prometheus.Histogram
	viewResultSize     prometheus.Histogram

	// Sync orchestration
	syncRequests     *prometheus.CounterVec
	syncTriggers     *prometheus.CounterVec
	syncLateFailures prometheus.Counter
	syncPending      prometheus.Gauge
	syncBulkPending  prometheus.Gauge
	syncTriggerTime  *prometheus.HistogramVec

	// Dispatch queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerActive       prometheus.Gauge
	workerCount        prometheus.Gauge

	// Backend collaborator
	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// Process
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trailblaze",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.snapshotLoads = auto.NewCounterVec(
		m.counterOpts("snapshot_loads_total", "Snapshot acquisitions by source and outcome"),
		[]string{"source", "outcome"},
	)
	m.snapshotParticipants = auto.NewGauge(m.gaugeOpts("snapshot_participants", "Participants in the published snapshot"))
	m.snapshotDuplicates = auto.NewGauge(m.gaugeOpts("snapshot_duplicate_ids", "Duplicate participant ids dropped from the last snapshot"))
	m.snapshotLastUnix = auto.NewGauge(m.gaugeOpts("snapshot_last_unix", "Unix timestamp of the last snapshot publish"))
	m.snapshotLoadDuration = auto.NewHistogram(m.histogramOpts("snapshot_load_duration_milliseconds", "Snapshot acquisition duration in milliseconds"))
	m.fallbackActive = auto.NewGauge(m.gaugeOpts("fallback_active", "1 while the published snapshot is not live data"))

	m.viewComputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "view_compute_latency_microseconds",
		Help:    "Filter and sort latency in microseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 50000},
	})
	m.viewResultSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "view_result_size",
		Help:    "Number of rows returned by a view",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	m.syncRequests = auto.NewCounterVec(
		m.counterOpts("sync_requests_total", "Sync requests by scope and admission outcome"),
		[]string{"scope", "outcome"},
	)
	m.syncTriggers = auto.NewCounterVec(
		m.counterOpts("sync_triggers_total", "Sync trigger results by scope"),
		[]string{"scope", "result"},
	)
	m.syncLateFailures = auto.NewCounter(m.counterOpts("sync_late_failures_total", "Trigger failures resolved after the dwell floor"))
	m.syncPending = auto.NewGauge(m.gaugeOpts("sync_pending", "Participants currently pending a refresh"))
	m.syncBulkPending = auto.NewGauge(m.gaugeOpts("sync_bulk_pending", "1 while a bulk refresh is pending"))
	m.syncTriggerTime = auto.NewHistogramVec(
		m.histogramOpts("sync_trigger_duration_milliseconds", "Backend trigger round trip in milliseconds"),
		[]string{"scope"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Sync jobs waiting for a worker"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum sync queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Sync jobs enqueued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Sync jobs rejected by a full or closed queue"))
	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently running a trigger"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Workers in the sync pool"))

	m.backendRequests = auto.NewCounterVec(
		m.counterOpts("backend_requests_total", "Requests to the backend collaborator"),
		[]string{"operation", "status_code"},
	)
	m.backendDuration = auto.NewHistogramVec(
		m.histogramOpts("backend_request_duration_milliseconds", "Backend request duration in milliseconds"),
		[]string{"operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	m.systemMemory = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutines = auto.NewGauge(m.gaugeOpts("system_goroutines", "Live goroutines"))
	m.systemGCPause = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "system_gc_pause_milliseconds",
		Help:    "Average GC pause in milliseconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
	})
}

// RecordSnapshotLoad counts one acquisition attempt.
func RecordSnapshotLoad(source, outcome string, durationMs float64) {
	globalManager.snapshotLoads.WithLabelValues(source, outcome).Inc()
	globalManager.snapshotLoadDuration.Observe(durationMs)
}

// UpdateSnapshot publishes gauges for a freshly stored snapshot.
func UpdateSnapshot(participants, duplicates int, publishedUnix int64, live bool) {
	globalManager.snapshotParticipants.Set(float64(participants))
	globalManager.snapshotDuplicates.Set(float64(duplicates))
	globalManager.snapshotLastUnix.Set(float64(publishedUnix))
	if live {
		globalManager.fallbackActive.Set(0)
	} else {
		globalManager.fallbackActive.Set(1)
	}
}

// SetFallbackActive flags degraded data without a new publish.
func SetFallbackActive(active bool) {
	if active {
		globalManager.fallbackActive.Set(1)
		return
	}
	globalManager.fallbackActive.Set(0)
}

// RecordViewCompute observes one filter-and-sort pass.
func RecordViewCompute(latencyMicros float64, rows int) {
	globalManager.viewComputeLatency.Observe(latencyMicros)
	globalManager.viewResultSize.Observe(float64(rows))
}

// RecordSyncRequest counts an admission decision ("accepted", "in_flight", "backpressure", ...).
func RecordSyncRequest(scope, outcome string) {
	globalManager.syncRequests.WithLabelValues(scope, outcome).Inc()
}

// RecordSyncTrigger counts a resolved trigger and its round trip.
func RecordSyncTrigger(scope, result string, durationMs float64) {
	globalManager.syncTriggers.WithLabelValues(scope, result).Inc()
	globalManager.syncTriggerTime.WithLabelValues(scope).Observe(durationMs)
}

// RecordSyncLateFailure counts a failure that arrived after its pending flag cleared.
func RecordSyncLateFailure() {
	globalManager.syncLateFailures.Inc()
}

// UpdateSyncPending sets the pending gauges.
func UpdateSyncPending(perID int, bulk bool) {
	globalManager.syncPending.Set(float64(perID))
	if bulk {
		globalManager.syncBulkPending.Set(1)
	} else {
		globalManager.syncBulkPending.Set(0)
	}
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueEnqueueError increments the rejected-enqueue counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordBackendRequest records one call to the backend collaborator.
func RecordBackendRequest(operation, statusCode string, durationMs float64) {
	globalManager.backendRequests.WithLabelValues(operation, statusCode).Inc()
	globalManager.backendDuration.WithLabelValues(operation).Observe(durationMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemory.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutines.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPause.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
