package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the notification service
type PrometheusMetrics struct {
	// Alert dispatch metrics
	AlertsTotal         *prometheus.CounterVec
	GateRejectionsTotal *prometheus.CounterVec
	AlertsThisHour      prometheus.Gauge
	CooldownActive      prometheus.Gauge
	AlertHistorySize    prometheus.Gauge

	// Channel delivery metrics
	ChannelSendsTotal   *prometheus.CounterVec
	ChannelSendDuration *prometheus.HistogramVec

	// Threshold monitor metrics
	MonitorChecksTotal *prometheus.CounterVec

	// Storage metrics
	DatabaseOperationsTotal   *prometheus.CounterVec
	DatabaseOperationDuration *prometheus.HistogramVec
	DatabaseConnections       prometheus.Gauge

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		// Alert dispatch metrics
		AlertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_alerts_total",
				Help: "Total number of alert dispatch attempts",
			},
			[]string{"level", "status"},
		),

		GateRejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_gate_rejections_total",
				Help: "Total number of alerts rejected before dispatch",
			},
			[]string{"reason"},
		),

		AlertsThisHour: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_alerts_this_hour",
				Help: "Number of alerts accepted in the current hour window",
			},
		),

		CooldownActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_cooldown_active",
				Help: "Whether the alert cooldown is currently active (1=active, 0=inactive)",
			},
		),

		AlertHistorySize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_alert_history_size",
				Help: "Number of alert records currently in the history store",
			},
		),

		// Channel delivery metrics
		ChannelSendsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_channel_sends_total",
				Help: "Total number of per-channel delivery attempts",
			},
			[]string{"channel", "status"},
		),

		ChannelSendDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notify_channel_send_duration_seconds",
				Help:    "Duration of per-channel delivery attempts",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel"},
		),

		// Threshold monitor metrics
		MonitorChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_monitor_checks_total",
				Help: "Total number of threshold monitor checks",
			},
			[]string{"check", "outcome"},
		),

		// Storage metrics
		DatabaseOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_database_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "table", "status"},
		),

		DatabaseOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notify_database_operation_duration_seconds",
				Help:    "Duration of database operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),

		DatabaseConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_database_connections",
				Help: "Number of active database connections",
			},
		),

		// API metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notify_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Application health metrics
		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "notify_component_health",
				Help: "Health status of application components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_goroutines",
				Help: "Number of running goroutines",
			},
		),
	}
}

// RecordAlert records an alert dispatch attempt
func (m *PrometheusMetrics) RecordAlert(level, status string) {
	m.AlertsTotal.WithLabelValues(level, status).Inc()
}

// RecordGateRejection records an alert rejected by the admission gates
func (m *PrometheusMetrics) RecordGateRejection(reason string) {
	m.GateRejectionsTotal.WithLabelValues(reason).Inc()
}

// UpdateAlertsThisHour updates the current hour window counter gauge
func (m *PrometheusMetrics) UpdateAlertsThisHour(count int) {
	m.AlertsThisHour.Set(float64(count))
}

// UpdateCooldownActive updates the cooldown state gauge
func (m *PrometheusMetrics) UpdateCooldownActive(active bool) {
	value := 0.0
	if active {
		value = 1.0
	}
	m.CooldownActive.Set(value)
}

// UpdateAlertHistorySize updates the history store size gauge
func (m *PrometheusMetrics) UpdateAlertHistorySize(count int64) {
	m.AlertHistorySize.Set(float64(count))
}

// RecordChannelSend records a per-channel delivery attempt
func (m *PrometheusMetrics) RecordChannelSend(channel, status string, duration time.Duration) {
	m.ChannelSendsTotal.WithLabelValues(channel, status).Inc()
	m.ChannelSendDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordMonitorCheck records a threshold monitor check
func (m *PrometheusMetrics) RecordMonitorCheck(check, outcome string) {
	m.MonitorChecksTotal.WithLabelValues(check, outcome).Inc()
}

// RecordDatabaseOperation records a database operation
func (m *PrometheusMetrics) RecordDatabaseOperation(operation, table, status string, duration time.Duration) {
	m.DatabaseOperationsTotal.WithLabelValues(operation, table, status).Inc()
	m.DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// UpdateDatabaseConnections updates the database connections metric
func (m *PrometheusMetrics) UpdateDatabaseConnections(count int) {
	m.DatabaseConnections.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates the memory usage metric
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}
