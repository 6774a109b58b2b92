// Package metrics provides Prometheus metrics for the match scouting service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Manager manages all Prometheus metrics for the scouting service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Match engine metrics
	commands          *prometheus.CounterVec
	commandsDuplicate prometheus.Counter
	eventsAppended    prometheus.Counter
	derivationLatency prometheus.Histogram
	derivationErrors  prometheus.Counter
	activeMatches     prometheus.Gauge
	runningMatches    prometheus.Gauge

	// Frame pipeline metrics
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError prometheus.Counter
	framesBroadcast   prometheus.Counter
	framesDropped     prometheus.Counter
	broadcastLatency  prometheus.Histogram
	wsClients         prometheus.Gauge

	// Persistence and ranking metrics
	snapshotSaves    *prometheus.CounterVec
	snapshotRestores *prometheus.CounterVec
	storeLatency     *prometheus.HistogramVec
	rankingUpdates   prometheus.Counter
	rankedTeams      prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
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
		namespace:        "scout",
		subsystem:        "match",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.commands = auto.NewCounterVec(m.counter("commands_total",
		"Robot and match commands by kind and result"), []string{"kind", "result"})
	m.commandsDuplicate = auto.NewCounter(m.counter("commands_duplicate_total",
		"Commands skipped because their command id was already applied"))
	m.eventsAppended = auto.NewCounter(m.counter("events_appended_total",
		"Events appended to match logs"))
	m.derivationLatency = auto.NewHistogram(m.histogram("derivation_latency_milliseconds",
		"Time to fold a match log into grid and score"))
	m.derivationErrors = auto.NewCounter(m.counter("derivation_errors_total",
		"Folds that hit an invariant violation"))
	m.activeMatches = auto.NewGauge(m.gauge("active_matches",
		"Matches hosted by the service"))
	m.runningMatches = auto.NewGauge(m.gauge("running_matches",
		"Matches whose clock is running"))

	m.queueSize = auto.NewGauge(m.gauge("frame_queue_size",
		"Frames waiting to be broadcast"))
	m.queueCapacity = auto.NewGauge(m.gauge("frame_queue_capacity",
		"Maximum frame queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counter("frame_queue_enqueue_total",
		"Frames enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("frame_queue_dequeue_total",
		"Frames dequeued"))
	m.queueEnqueueError = auto.NewCounter(m.counter("frame_queue_enqueue_errors_total",
		"Frames rejected by the queue"))
	m.framesBroadcast = auto.NewCounter(m.counter("frames_broadcast_total",
		"Frames delivered to display clients"))
	m.framesDropped = auto.NewCounter(m.counter("frames_dropped_total",
		"Frames dropped because the queue or a client was full"))
	m.broadcastLatency = auto.NewHistogram(m.histogram("broadcast_latency_milliseconds",
		"Time to fan one frame out to every subscriber"))
	m.wsClients = auto.NewGauge(m.gauge("ws_clients",
		"Connected display clients"))

	m.snapshotSaves = auto.NewCounterVec(m.counter("snapshot_saves_total",
		"Snapshot saves by result"), []string{"result"})
	m.snapshotRestores = auto.NewCounterVec(m.counter("snapshot_restores_total",
		"Snapshot imports by result"), []string{"result"})
	m.storeLatency = auto.NewHistogramVec(m.histogram("store_latency_milliseconds",
		"Snapshot store operation latency"), []string{"op"})
	m.rankingUpdates = auto.NewCounter(m.counter("ranking_updates_total",
		"Team ranking updates that changed a best score"))
	m.rankedTeams = auto.NewGauge(m.gauge("ranked_teams",
		"Teams present in the ranking"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_by_component_total",
		"Total number of errors by component"), []string{"component", "error_type"})
}

// RecordCommand counts a command by kind and result.
func RecordCommand(kind, result string) {
	globalManager.commands.WithLabelValues(kind, result).Inc()
}

// RecordCommandDuplicate increments the duplicate command counter.
func RecordCommandDuplicate() {
	globalManager.commandsDuplicate.Inc()
}

// RecordEventAppended increments the appended events counter.
func RecordEventAppended() {
	globalManager.eventsAppended.Inc()
}

// RecordDerivationLatency records fold latency in milliseconds.
func RecordDerivationLatency(latencyMs float64) {
	globalManager.derivationLatency.Observe(latencyMs)
}

// RecordDerivationError increments the derivation error counter.
func RecordDerivationError() {
	globalManager.derivationErrors.Inc()
}

// UpdateActiveMatches sets the hosted match count.
func UpdateActiveMatches(count int) {
	globalManager.activeMatches.Set(float64(count))
}

// UpdateRunningMatches sets the running match count.
func UpdateRunningMatches(count int) {
	globalManager.runningMatches.Set(float64(count))
}

// UpdateQueueSize sets the current frame queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum frame queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
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
	globalManager.queueEnqueueError.Inc()
}

// RecordFrameBroadcast increments the broadcast frame counter.
func RecordFrameBroadcast() {
	globalManager.framesBroadcast.Inc()
}

// RecordFrameDropped increments the dropped frame counter.
func RecordFrameDropped() {
	globalManager.framesDropped.Inc()
}

// RecordBroadcastLatency records fan-out latency in milliseconds.
func RecordBroadcastLatency(latencyMs float64) {
	globalManager.broadcastLatency.Observe(latencyMs)
}

// UpdateWSClients sets the connected display client count.
func UpdateWSClients(count int) {
	globalManager.wsClients.Set(float64(count))
}

// RecordSnapshotSave counts a snapshot save by result.
func RecordSnapshotSave(result string) {
	globalManager.snapshotSaves.WithLabelValues(result).Inc()
}

// RecordSnapshotRestore counts a snapshot import by result.
func RecordSnapshotRestore(result string) {
	globalManager.snapshotRestores.WithLabelValues(result).Inc()
}

// RecordStoreLatency records a snapshot store operation latency.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordRankingUpdate increments the ranking update counter.
func RecordRankingUpdate() {
	globalManager.rankingUpdates.Inc()
}

// UpdateRankedTeams sets the number of ranked teams.
func UpdateRankedTeams(count int) {
	globalManager.rankedTeams.Set(float64(count))
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
