// Package metrics provides Prometheus metrics for the vigil monitoring service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

var (
	defaultScoreBuckets   = []float64{0, 5, 10, 15, 20, 25, 30, 40, 50, 75, 100}
	defaultPERCLOSBuckets = []float64{0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.5, 0.75, 1}
	gcBuckets             = []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// Manager manages all Prometheus metrics for the vigil service.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	scoreBuckets    []float64
	perclosBuckets  []float64
	refreshInterval time.Duration
	registry        prometheus.Registerer

	// Frame pipeline
	framesReceived    prometheus.Counter
	framesProcessed   prometheus.Counter
	framesDuplicate   prometheus.Counter
	framesRejected    *prometheus.CounterVec
	processingLatency prometheus.Histogram

	// Decisions
	decisions     *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	alarmsRaised  prometheus.Counter
	alarmsCleared prometheus.Counter
	fusionScore   prometheus.Histogram
	perclos       prometheus.Histogram

	// Sessions
	sessionsActive  prometheus.Gauge
	sessionsStarted prometheus.Counter
	sessionsEnded   *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueWait          prometheus.Histogram

	// Workers
	workerCount   prometheus.Gauge
	workerActive  prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// Stream
	streamClients prometheus.Gauge
	streamDropped prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "vigil",
		subsystem:       "monitor",
		latencyBuckets:  prometheus.DefBuckets,
		scoreBuckets:    defaultScoreBuckets,
		perclosBuckets:  defaultPERCLOSBuckets,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval returns how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.framesReceived = m.counter("frames_received_total", "Total number of frames accepted by the API")
	m.framesProcessed = m.counter("frames_processed_total", "Total number of frames turned into decisions")
	m.framesDuplicate = m.counter("frames_duplicate_total", "Total number of resubmitted frames skipped")
	m.framesRejected = m.counterVec("frames_rejected_total", "Frames refused by reason", "reason")
	m.processingLatency = m.histogram("frame_processing_latency_milliseconds",
		"Time spent running the detectors on one frame", m.latencyBuckets)

	m.decisions = m.counterVec("decisions_total", "Decisions emitted by action", "action")
	m.alerts = m.counterVec("alerts_total", "Alerts started by type and level", "type", "level")
	m.alarmsRaised = m.counter("alarms_raised_total", "Times a session entered the alarm state")
	m.alarmsCleared = m.counter("alarms_cleared_total", "Times a session left the alarm state")
	m.fusionScore = m.histogram("fusion_score", "Distribution of per-frame fusion scores", m.scoreBuckets)
	m.perclos = m.histogram("perclos", "Distribution of per-frame PERCLOS values", m.perclosBuckets)

	m.sessionsActive = m.gauge("sessions_active", "Number of open monitoring sessions")
	m.sessionsStarted = m.counter("sessions_started_total", "Total number of sessions opened")
	m.sessionsEnded = m.counterVec("sessions_ended_total", "Sessions closed by reason", "reason")

	m.queueSize = m.gauge("queue_size", "Frames waiting across all partitions")
	m.queueCapacity = m.gauge("queue_capacity", "Total frame queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue fill ratio (0-1)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Frames enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Frames dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Frames refused by a full or closed partition")
	m.queueWait = m.histogram("queue_wait_milliseconds", "Time frames spend queued", m.latencyBuckets)

	m.workerCount = m.gauge("worker_count", "Number of partition workers")
	m.workerActive = m.gauge("worker_active_count", "Workers currently processing a frame")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker time per frame including sinks", m.latencyBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Frames a worker failed to deliver")

	m.repositoryLatency = m.histogramVec("repository_latency_milliseconds",
		"SQLite operation latency", m.latencyBuckets, "operation")

	m.streamClients = m.gauge("stream_clients", "Connected WebSocket clients")
	m.streamDropped = m.counter("stream_dropped_total", "Decisions dropped for slow stream clients")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.latencyBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds", gcBuckets)
}

// RecordFrameReceived increments the received frames counter.
func RecordFrameReceived() { globalManager.framesReceived.Inc() }

// RecordFrameProcessed increments the processed frames counter.
func RecordFrameProcessed() { globalManager.framesProcessed.Inc() }

// RecordFrameDuplicate increments the duplicate frames counter.
func RecordFrameDuplicate() { globalManager.framesDuplicate.Inc() }

// RecordFrameRejected counts a refused frame.
func RecordFrameRejected(reason string) { globalManager.framesRejected.WithLabelValues(reason).Inc() }

// RecordProcessingLatency records detector time for one frame in milliseconds.
func RecordProcessingLatency(latencyMs float64) { globalManager.processingLatency.Observe(latencyMs) }

// RecordDecision records the action, score and PERCLOS of a decision.
func RecordDecision(action string, score int, perclos float64) {
	globalManager.decisions.WithLabelValues(action).Inc()
	globalManager.fusionScore.Observe(float64(score))
	globalManager.perclos.Observe(perclos)
}

// RecordAlert counts an alert start.
func RecordAlert(alertType, level string) {
	globalManager.alerts.WithLabelValues(alertType, level).Inc()
}

// RecordAlarmRaised counts a transition into the alarm state.
func RecordAlarmRaised() { globalManager.alarmsRaised.Inc() }

// RecordAlarmCleared counts a transition out of the alarm state.
func RecordAlarmCleared() { globalManager.alarmsCleared.Inc() }

// UpdateSessionsActive sets the open session count.
func UpdateSessionsActive(count int) { globalManager.sessionsActive.Set(float64(count)) }

// RecordSessionStarted counts a new session.
func RecordSessionStarted() { globalManager.sessionsStarted.Inc() }

// RecordSessionEnded counts a closed session.
func RecordSessionEnded(reason string) { globalManager.sessionsEnded.WithLabelValues(reason).Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueWait records how long a frame sat in the queue.
func RecordQueueWait(latencyMs float64) { globalManager.queueWait.Observe(latencyMs) }

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// AddWorkerActive adjusts the busy worker gauge.
func AddWorkerActive(delta int) { globalManager.workerActive.Add(float64(delta)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) { globalManager.workerLatency.Observe(latencyMs) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordRepositoryLatency records a SQLite operation latency.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateStreamClients sets the connected stream client count.
func UpdateStreamClients(count int) { globalManager.streamClients.Set(float64(count)) }

// RecordStreamDropped counts a decision dropped for a slow client.
func RecordStreamDropped() { globalManager.streamDropped.Inc() }

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

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// RefreshInterval returns the refresh interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
