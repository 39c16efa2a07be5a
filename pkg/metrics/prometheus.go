// Package metrics provides Prometheus metrics for the leaderboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes.
const (
	RefreshPublished = "published"
	RefreshAborted   = "aborted"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Refresh pipeline
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	refreshJoined   prometheus.Counter
	entityFailures  *prometheus.CounterVec
	entitiesFetched prometheus.Counter

	// Snapshot
	snapshotEntities    prometheus.Gauge
	snapshotPeriod      prometheus.Gauge
	snapshotLastPublish prometheus.Gauge
	snapshotPublished   prometheus.Counter

	// Upstream source
	sourceRequests     *prometheus.CounterVec
	sourceLatency      *prometheus.HistogramVec
	rateLimitWait      prometheus.Histogram
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec

	// Scheduler
	schedulerState    prometheus.Gauge
	schedulerDayFlag  prometheus.Gauge
	schedulerTriggers *prometheus.CounterVec
	dailyChecks       prometheus.Counter

	// Front-ends
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	botCommands         *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before serving /metrics.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fantasyboard",
		subsystem:        "leaderboard",
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
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.refreshTotal = auto.NewCounterVec(m.counter("refresh_total", "Refresh attempts by outcome"), []string{"outcome"})
	m.refreshDuration = auto.NewHistogram(m.histogram("refresh_duration_seconds", "Wall time of a refresh from period lookup to publish", []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}))
	m.refreshJoined = auto.NewCounter(m.counter("refresh_joined_total", "Refresh requests that joined an in-flight refresh"))
	m.entityFailures = auto.NewCounterVec(m.counter("entity_failures_total", "Entities dropped from a refresh by failure kind"), []string{"kind"})
	m.entitiesFetched = auto.NewCounter(m.counter("entities_fetched_total", "Entities successfully fetched and derived"))

	m.snapshotEntities = auto.NewGauge(m.gauge("snapshot_entities", "Rows in the published snapshot"))
	m.snapshotPeriod = auto.NewGauge(m.gauge("snapshot_period", "Period id of the published snapshot"))
	m.snapshotLastPublish = auto.NewGauge(m.gauge("snapshot_last_publish_unix", "Unix time of the last snapshot publish"))
	m.snapshotPublished = auto.NewCounter(m.counter("snapshot_published_total", "Snapshots published"))

	m.sourceRequests = auto.NewCounterVec(m.counter("source_requests_total", "Upstream source calls by operation and outcome"), []string{"operation", "outcome"})
	m.sourceLatency = auto.NewHistogramVec(m.histogram("source_latency_seconds", "Upstream source call latency", nil), []string{"operation"})
	m.rateLimitWait = auto.NewHistogram(m.histogram("source_rate_limit_wait_seconds", "Time spent waiting on the outbound rate limiter", []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5}))
	m.breakerState = auto.NewGaugeVec(m.gauge("circuit_breaker_state", "Circuit breaker state (0 closed, 1 half-open, 2 open)"), []string{"name"})
	m.breakerTransitions = auto.NewCounterVec(m.counter("circuit_breaker_transitions_total", "Circuit breaker state transitions"), []string{"name", "to"})

	m.schedulerState = auto.NewGauge(m.gauge("scheduler_state", "Scheduler state (0 idle, 1 active)"))
	m.schedulerDayFlag = auto.NewGauge(m.gauge("scheduler_day_active", "Whether the current day is flagged active"))
	m.schedulerTriggers = auto.NewCounterVec(m.counter("scheduler_triggers_total", "Refreshes triggered by the scheduler by state"), []string{"state"})
	m.dailyChecks = auto.NewCounter(m.counter("scheduler_daily_checks_total", "Daily active-day checks performed"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "Total number of HTTP requests"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_seconds", "HTTP request duration in seconds", nil), []string{"endpoint", "method", "status_code"})
	m.botCommands = auto.NewCounterVec(m.counter("bot_commands_total", "Chat commands handled"), []string{"command"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
}

// RecordRefresh records the outcome and duration of one refresh.
func RecordRefresh(outcome string, d time.Duration) {
	globalManager.refreshTotal.WithLabelValues(outcome).Inc()
	globalManager.refreshDuration.Observe(d.Seconds())
}

// RecordRefreshJoined counts a caller that shared an in-flight refresh.
func RecordRefreshJoined() {
	globalManager.refreshJoined.Inc()
}

// RecordEntityFailure counts an entity dropped from a refresh.
func RecordEntityFailure(kind string) {
	globalManager.entityFailures.WithLabelValues(kind).Inc()
}

// RecordEntityFetched counts an entity that made it into a refresh.
func RecordEntityFetched() {
	globalManager.entitiesFetched.Inc()
}

// RecordSnapshotPublished updates the snapshot gauges after a publish.
func RecordSnapshotPublished(period, entities int, at time.Time) {
	globalManager.snapshotPublished.Inc()
	globalManager.snapshotPeriod.Set(float64(period))
	globalManager.snapshotEntities.Set(float64(entities))
	globalManager.snapshotLastPublish.Set(float64(at.Unix()))
}

// RecordSourceRequest records one upstream call.
func RecordSourceRequest(operation, outcome string, d time.Duration) {
	globalManager.sourceRequests.WithLabelValues(operation, outcome).Inc()
	globalManager.sourceLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordRateLimitWait records time spent blocked on the limiter.
func RecordRateLimitWait(d time.Duration) {
	globalManager.rateLimitWait.Observe(d.Seconds())
}

// UpdateBreakerState sets the breaker gauge and counts the transition.
func UpdateBreakerState(name string, state int, to string) {
	globalManager.breakerState.WithLabelValues(name).Set(float64(state))
	globalManager.breakerTransitions.WithLabelValues(name, to).Inc()
}

// UpdateSchedulerState sets the scheduler state and day flag gauges.
func UpdateSchedulerState(active, dayFlagged bool) {
	globalManager.schedulerState.Set(boolToFloat(active))
	globalManager.schedulerDayFlag.Set(boolToFloat(dayFlagged))
}

// RecordSchedulerTrigger counts a scheduled refresh in the given state.
func RecordSchedulerTrigger(state string) {
	globalManager.schedulerTriggers.WithLabelValues(state).Inc()
}

// RecordDailyCheck counts a daily active-day evaluation.
func RecordDailyCheck() {
	globalManager.dailyChecks.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordBotCommand counts a chat command.
func RecordBotCommand(command string) {
	globalManager.botCommands.WithLabelValues(command).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
