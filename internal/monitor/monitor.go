// File: internal/monitor/monitor.go
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/notify-service/internal/metrics"
	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/internal/notification"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// criticalFactor escalates a threshold breach to critical when the reading
// exceeds threshold * factor
const criticalFactor = 1.2

// Monitor defines the threshold monitor interface
type Monitor interface {
	// Lifecycle management
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool

	// Threshold checks
	CheckResourceThreshold(ctx context.Context, resourceType string, currentValue float64) (*models.NotificationResponse, error)
	CheckServiceStatus(ctx context.Context, serviceName string, previous, current models.ServiceStatus) (*models.NotificationResponse, error)
	ReportServiceStatus(ctx context.Context, serviceName string, current models.ServiceStatus) (*models.NotificationResponse, error)

	// Statistics and monitoring
	GetStats() *MonitorStats
	GetHealth() *HealthStatus
}

// AlertMonitor implements the Monitor interface
type AlertMonitor struct {
	// Dependencies
	notifier notification.Notifier
	logger   *logrus.Logger

	// Configuration
	config *MonitorConfig

	// State management
	mu            sync.RWMutex
	running       bool
	serviceStates map[string]models.ServiceStatus
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	// Statistics
	stats          *MonitorStats
	metricsManager *metrics.Manager
}

// MonitorConfig holds monitor configuration
type MonitorConfig struct {
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
}

// MonitorStats provides monitor statistics
type MonitorStats struct {
	StartTime        time.Time     `json:"start_time"`
	Uptime           time.Duration `json:"uptime"`
	IsRunning        bool          `json:"is_running"`
	ResourceChecks   uint64        `json:"resource_checks"`
	ServiceChecks    uint64        `json:"service_checks"`
	AlertsTriggered  uint64        `json:"alerts_triggered"`
	ChecksSuppressed uint64        `json:"checks_suppressed"`
	TrackedServices  int           `json:"tracked_services"`
	LastCheckTime    *time.Time    `json:"last_check_time,omitempty"`
	LastAlertTime    *time.Time    `json:"last_alert_time,omitempty"`
	ErrorCount       uint64        `json:"error_count"`
	LastError        *string       `json:"last_error,omitempty"`
	LastErrorTime    *time.Time    `json:"last_error_time,omitempty"`
}

// HealthStatus provides health information
type HealthStatus struct {
	Healthy         bool     `json:"healthy"`
	NotifierHealthy bool     `json:"notifier_healthy"`
	Issues          []string `json:"issues,omitempty"`
}

// NewAlertMonitor creates a new alert monitor
func NewAlertMonitor(notifier notification.Notifier, config *MonitorConfig, metricsManager *metrics.Manager) *AlertMonitor {
	return &AlertMonitor{
		notifier:       notifier,
		config:         config,
		logger:         utils.GetLogger(),
		serviceStates:  make(map[string]models.ServiceStatus),
		stopChan:       make(chan struct{}),
		stats:          &MonitorStats{StartTime: time.Now()},
		metricsManager: metricsManager,
	}
}

// Start starts the alert monitor
func (am *AlertMonitor) Start(ctx context.Context) error {
	am.mu.Lock()
	defer am.mu.Unlock()

	if am.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Monitor already running", "")
	}

	am.logger.Info("Starting alert monitor")

	am.running = true
	am.stats.StartTime = time.Now()
	am.stats.IsRunning = true

	am.wg.Add(1)
	go am.heartbeatLoop(ctx)

	am.logger.WithField("heartbeat_interval", am.config.HeartbeatInterval).Info("Alert monitor started")
	return nil
}

// Stop stops the alert monitor. The lock is released before waiting so the
// heartbeat goroutine can finish a read in progress.
func (am *AlertMonitor) Stop() error {
	am.mu.Lock()
	if !am.running {
		am.mu.Unlock()
		return nil
	}

	am.logger.Info("Stopping alert monitor")

	am.running = false
	am.stats.IsRunning = false

	am.stopOnce.Do(func() {
		close(am.stopChan)
	})
	am.mu.Unlock()

	am.wg.Wait()

	am.logger.Info("Alert monitor stopped")
	return nil
}

// IsRunning returns whether the monitor is running
func (am *AlertMonitor) IsRunning() bool {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.running
}

// CheckResourceThreshold compares a resource reading against its configured
// threshold and dispatches an alert when breached: warning at or above the
// threshold, critical beyond criticalFactor times it. Returns a nil response
// when the reading is below threshold or resource alerts are disabled.
func (am *AlertMonitor) CheckResourceThreshold(ctx context.Context, resourceType string, currentValue float64) (*models.NotificationResponse, error) {
	if !models.IsValidResourceType(resourceType) {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Unknown resource type", resourceType)
	}

	config := am.notifier.CurrentConfig()
	if config == nil {
		return nil, utils.NewAppError(utils.ErrCodeInternal, "Notification service has no active config", "")
	}

	if !config.ResourceAlertsEnabled {
		am.recordCheck("resource", "skipped")
		return nil, nil
	}

	threshold, ok := config.ThresholdFor(resourceType)
	if !ok {
		am.recordCheck("resource", "skipped")
		return nil, nil
	}

	if currentValue < threshold {
		am.recordCheck("resource", "ok")
		return nil, nil
	}

	level := models.AlertLevelWarning
	if currentValue > threshold*criticalFactor {
		level = models.AlertLevelCritical
	}

	request := &models.NotificationRequest{
		Level:          level,
		Title:          fmt.Sprintf("%s usage above threshold", strings.ToUpper(resourceType)),
		Message:        fmt.Sprintf("%s usage is at %.1f%% (threshold %.1f%%)", strings.ToUpper(resourceType), currentValue, threshold),
		ResourceType:   &resourceType,
		CurrentValue:   &currentValue,
		ThresholdValue: &threshold,
	}

	am.recordCheck("resource", "triggered")
	return am.sendAlert(ctx, request)
}

// CheckServiceStatus fires an alert when a service's status worsens on the
// healthy < degraded < unhealthy < offline scale. Improvements and repeats
// never fire. The alert level is error for unhealthy and offline targets,
// warning otherwise.
func (am *AlertMonitor) CheckServiceStatus(ctx context.Context, serviceName string, previous, current models.ServiceStatus) (*models.NotificationResponse, error) {
	if strings.TrimSpace(serviceName) == "" {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Service name is required", "")
	}
	if !previous.IsValid() {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Unknown service status", string(previous))
	}
	if !current.IsValid() {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Unknown service status", string(current))
	}

	config := am.notifier.CurrentConfig()
	if config == nil {
		return nil, utils.NewAppError(utils.ErrCodeInternal, "Notification service has no active config", "")
	}

	if !config.ServiceStatusAlertsEnabled {
		am.recordCheck("service", "skipped")
		return nil, nil
	}

	if current.Severity() <= previous.Severity() {
		am.recordCheck("service", "ok")
		return nil, nil
	}

	level := models.AlertLevelWarning
	if current == models.ServiceStatusUnhealthy || current == models.ServiceStatusOffline {
		level = models.AlertLevelError
	}

	request := &models.NotificationRequest{
		Level:       level,
		Title:       fmt.Sprintf("Service %s is %s", serviceName, current),
		Message:     fmt.Sprintf("Service %s changed from %s to %s", serviceName, previous, current),
		ServiceName: &serviceName,
		Metadata: map[string]interface{}{
			"previous_status": string(previous),
			"current_status":  string(current),
		},
	}

	am.recordCheck("service", "triggered")
	return am.sendAlert(ctx, request)
}

// ReportServiceStatus records a service's current status and alerts on
// worsening transitions. The first report for a service is compared against
// healthy.
func (am *AlertMonitor) ReportServiceStatus(ctx context.Context, serviceName string, current models.ServiceStatus) (*models.NotificationResponse, error) {
	am.mu.RLock()
	previous, known := am.serviceStates[serviceName]
	am.mu.RUnlock()

	if !known {
		previous = models.ServiceStatusHealthy
	}

	response, err := am.CheckServiceStatus(ctx, serviceName, previous, current)
	if err != nil {
		return nil, err
	}

	am.mu.Lock()
	am.serviceStates[serviceName] = current
	am.mu.Unlock()

	return response, nil
}

// GetStats returns monitor statistics
func (am *AlertMonitor) GetStats() *MonitorStats {
	am.mu.RLock()
	defer am.mu.RUnlock()

	stats := *am.stats
	stats.Uptime = time.Since(am.stats.StartTime)
	stats.TrackedServices = len(am.serviceStates)
	return &stats
}

// GetHealth returns monitor health
func (am *AlertMonitor) GetHealth() *HealthStatus {
	am.mu.RLock()
	running := am.running
	am.mu.RUnlock()

	notifierHealthy := am.notifier.IsHealthy()

	health := &HealthStatus{
		Healthy:         running && notifierHealthy,
		NotifierHealthy: notifierHealthy,
	}

	if !running {
		health.Issues = append(health.Issues, "monitor is not running")
	}
	if !notifierHealthy {
		health.Issues = append(health.Issues, "notification service is not running")
	}

	return health
}

// sendAlert pushes a synthesized request through the dispatcher
func (am *AlertMonitor) sendAlert(ctx context.Context, request *models.NotificationRequest) (*models.NotificationResponse, error) {
	response, err := am.notifier.Send(ctx, request)
	if err != nil {
		am.recordError(err)
		return nil, err
	}

	am.mu.Lock()
	am.stats.AlertsTriggered++
	now := time.Now()
	am.stats.LastAlertTime = &now
	am.mu.Unlock()

	return response, nil
}

// recordCheck updates check counters and metrics
func (am *AlertMonitor) recordCheck(check, outcome string) {
	am.mu.Lock()
	now := time.Now()
	am.stats.LastCheckTime = &now
	switch check {
	case "resource":
		am.stats.ResourceChecks++
	case "service":
		am.stats.ServiceChecks++
	}
	if outcome == "skipped" {
		am.stats.ChecksSuppressed++
	}
	am.mu.Unlock()

	if am.metricsManager != nil {
		am.metricsManager.GetPrometheusMetrics().RecordMonitorCheck(check, outcome)
	}
}

// recordError records a dispatch error in the statistics
func (am *AlertMonitor) recordError(err error) {
	am.mu.Lock()
	defer am.mu.Unlock()

	am.stats.ErrorCount++
	errorStr := err.Error()
	am.stats.LastError = &errorStr
	now := time.Now()
	am.stats.LastErrorTime = &now
}

// heartbeatLoop periodically logs check statistics while the monitor runs
func (am *AlertMonitor) heartbeatLoop(ctx context.Context) {
	defer am.wg.Done()

	interval := am.config.HeartbeatInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	am.logger.WithField("interval", interval).Info("Starting monitor heartbeat")

	for {
		select {
		case <-ctx.Done():
			am.logger.Info("Monitor heartbeat stopped by context")
			return
		case <-am.stopChan:
			am.logger.Info("Monitor heartbeat stopped by stop signal")
			return
		case <-ticker.C:
			am.logHeartbeat()
		}
	}
}

// logHeartbeat emits a liveness line with the current counters
func (am *AlertMonitor) logHeartbeat() {
	stats := am.GetStats()

	am.logger.WithFields(logrus.Fields{
		"resource_checks":  stats.ResourceChecks,
		"service_checks":   stats.ServiceChecks,
		"alerts_triggered": stats.AlertsTriggered,
		"tracked_services": stats.TrackedServices,
		"notifier_healthy": am.notifier.IsHealthy(),
	}).Debug("Monitor heartbeat")
}
