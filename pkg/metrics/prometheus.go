// Package metrics provides Prometheus metrics for the stagepay engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingestion
	eventsIngested *prometheus.CounterVec
	eventsDup      prometheus.Counter
	eventsRejected *prometheus.CounterVec
	dedupeSize     prometheus.Gauge
	dedupeEvicted  prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers and store
	workerCount        prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter
	storeAppendLatency prometheus.Histogram

	// Competitions
	competitionsCreated   prometheus.Counter
	competitionsFinalized prometheus.Counter
	standingsLatency      prometheus.Histogram
	prizeDistributed      prometheus.Counter
	prizeForfeited        prometheus.Counter

	// Royalties
	royaltyCalculations *prometheus.CounterVec
	validationFailures  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton behind the package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared with the /metrics handler

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stagepay",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.eventsIngested = m.counterVec("events_ingested_total", "Engagement events appended to a competition log", "kind")
	m.eventsDup = m.counter("events_duplicate_total", "Submissions dropped because the event ID was already seen")
	m.eventsRejected = m.counterVec("events_rejected_total", "Submissions rejected before ingestion", "reason")
	m.dedupeSize = m.gauge("dedupe_size", "Event IDs currently held by the deduper")
	m.dedupeEvicted = m.counter("dedupe_evictions_total", "Event IDs evicted from the deduper for capacity")

	m.queueSize = m.gauge("queue_size", "Current size of the ingestion queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the ingestion queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Ingestion queue utilization (0.0 to 1.0)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Events accepted by the ingestion queue")
	m.queueDequeued = m.counter("queue_dequeue_total", "Events handed to workers")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Events refused by the ingestion queue")

	m.workerCount = m.gauge("worker_count", "Ingestion workers running")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one event", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Events a worker failed to append")
	m.storeAppendLatency = m.histogram("store_append_latency_milliseconds", "Latency of appending one event to the store", m.histogramBuckets)

	m.competitionsCreated = m.counter("competitions_created_total", "Competitions created")
	m.competitionsFinalized = m.counter("competitions_finalized_total", "Competitions finalized")
	m.standingsLatency = m.histogram("standings_latency_milliseconds", "Time to compute the standings of one competition", m.histogramBuckets)
	m.prizeDistributed = m.counter("prize_money_distributed_total", "Prize money allocated to winners (exact amounts)")
	m.prizeForfeited = m.counter("prize_money_forfeited_total", "Prize money forfeited because the roster was short")

	m.royaltyCalculations = m.counterVec("royalty_calculations_total", "Royalty calculations by operation", "operation")
	m.validationFailures = m.counterVec("validation_failures_total", "Inputs rejected by domain validation", "component")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordEventIngested counts one event of kind appended to a log.
func RecordEventIngested(kind string) {
	globalManager.eventsIngested.WithLabelValues(kind).Inc()
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDup.Inc()
}

// RecordEventRejected counts a submission refused for reason.
func RecordEventRejected(reason string) {
	globalManager.eventsRejected.WithLabelValues(reason).Inc()
}

// UpdateDedupeSize sets the number of IDs held by the deduper.
func UpdateDedupeSize(size int64) {
	globalManager.dedupeSize.Set(float64(size))
}

// RecordDedupeEviction increments the dedupe eviction counter.
func RecordDedupeEviction() {
	globalManager.dedupeEvicted.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordStoreAppendLatency records the latency of one event append.
func RecordStoreAppendLatency(latencyMs float64) {
	globalManager.storeAppendLatency.Observe(latencyMs)
}

// RecordCompetitionCreated increments the competitions created counter.
func RecordCompetitionCreated() {
	globalManager.competitionsCreated.Inc()
}

// RecordCompetitionFinalized counts a finalized competition and the money it
// distributed and forfeited.
func RecordCompetitionFinalized(distributed, forfeited float64) {
	globalManager.competitionsFinalized.Inc()
	globalManager.prizeDistributed.Add(distributed)
	globalManager.prizeForfeited.Add(forfeited)
}

// RecordStandingsLatency records how long a standings computation took.
func RecordStandingsLatency(latencyMs float64) {
	globalManager.standingsLatency.Observe(latencyMs)
}

// RecordRoyaltyCalculation counts one royalty operation.
func RecordRoyaltyCalculation(operation string) {
	globalManager.royaltyCalculations.WithLabelValues(operation).Inc()
}

// RecordValidationFailure counts an input rejected by component.
func RecordValidationFailure(component string) {
	globalManager.validationFailures.WithLabelValues(component).Inc()
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
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
