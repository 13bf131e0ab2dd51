package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/internal/notification"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// fakeNotifier records dispatched requests instead of delivering them
type fakeNotifier struct {
	mu       sync.Mutex
	config   *models.NotificationConfig
	healthy  bool
	requests []*models.NotificationRequest
	sendErr  error
}

func newFakeNotifier(config *models.NotificationConfig) *fakeNotifier {
	return &fakeNotifier{config: config, healthy: true}
}

func (f *fakeNotifier) Start(ctx context.Context) error { f.healthy = true; return nil }
func (f *fakeNotifier) Stop() error                     { f.healthy = false; return nil }
func (f *fakeNotifier) IsHealthy() bool                 { return f.healthy }

func (f *fakeNotifier) Send(ctx context.Context, request *models.NotificationRequest) (*models.NotificationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return nil, f.sendErr
	}

	f.requests = append(f.requests, request)
	return &models.NotificationResponse{
		Success:   true,
		Message:   "alert dispatched to 1 of 1 channel(s)",
		SentTo:    []string{"log"},
		FailedTo:  []string{},
		Timestamp: time.Now().UTC(),
	}, nil
}

func (f *fakeNotifier) SendTest(ctx context.Context) (*models.NotificationResponse, error) {
	return f.Send(ctx, &models.NotificationRequest{
		Level:   models.AlertLevelInfo,
		Title:   "Test Notification",
		Message: "test",
	})
}

func (f *fakeNotifier) UpdateConfig(ctx context.Context, config *models.NotificationConfig) error {
	f.config = config
	return nil
}

func (f *fakeNotifier) CurrentConfig() *models.NotificationConfig {
	if f.config == nil {
		return nil
	}
	return f.config.Clone()
}

func (f *fakeNotifier) SetEnabled(ctx context.Context, enabled bool) error {
	f.config.Enabled = enabled
	return nil
}

func (f *fakeNotifier) Status(ctx context.Context) (*models.NotificationStatus, error) {
	return &models.NotificationStatus{Enabled: f.config.Enabled, Config: f.config.Clone()}, nil
}

func (f *fakeNotifier) GetStats() *notification.NotificationStats {
	return &notification.NotificationStats{}
}

func (f *fakeNotifier) GetHealth() *notification.NotificationHealth {
	return &notification.NotificationHealth{Healthy: f.healthy}
}

func (f *fakeNotifier) lastRequest() *models.NotificationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeNotifier) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestMonitor(config *models.NotificationConfig) (*AlertMonitor, *fakeNotifier) {
	utils.InitLogger("error", "text", "stdout", "")

	notifier := newFakeNotifier(config)
	monitor := NewAlertMonitor(notifier, &MonitorConfig{HeartbeatInterval: 10 * time.Millisecond}, nil)
	return monitor, notifier
}

func TestMonitorLifecycle(t *testing.T) {
	monitor, _ := newTestMonitor(models.DefaultNotificationConfig())
	ctx := context.Background()

	assert.False(t, monitor.IsRunning(), "Monitor should not be running initially")

	require.NoError(t, monitor.Start(ctx))
	assert.True(t, monitor.IsRunning())

	err := monitor.Start(ctx)
	assert.Error(t, err, "Starting a running monitor should error")

	// Let the heartbeat tick a few times before stopping
	time.Sleep(35 * time.Millisecond)

	require.NoError(t, monitor.Stop())
	assert.False(t, monitor.IsRunning())
	assert.NoError(t, monitor.Stop(), "Stopping a stopped monitor should not error")

	stats := monitor.GetStats()
	assert.False(t, stats.IsRunning)
	assert.Greater(t, stats.Uptime, time.Duration(0))

	t.Logf("✓ Monitor lifecycle working correctly")
}

func TestCheckResourceThreshold(t *testing.T) {
	ctx := context.Background()

	t.Run("Below Threshold Stays Silent", func(t *testing.T) {
		monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())

		response, err := monitor.CheckResourceThreshold(ctx, models.ResourceCPU, 79.9)
		require.NoError(t, err)
		assert.Nil(t, response)
		assert.Zero(t, notifier.requestCount(), "No alert should be dispatched below threshold")
		t.Logf("✓ Reading below threshold stays silent")
	})

	t.Run("At Threshold Fires Warning", func(t *testing.T) {
		monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())

		response, err := monitor.CheckResourceThreshold(ctx, models.ResourceCPU, 80.0)
		require.NoError(t, err)
		require.NotNil(t, response)
		assert.True(t, response.Success)

		request := notifier.lastRequest()
		require.NotNil(t, request)
		assert.Equal(t, models.AlertLevelWarning, request.Level)
		assert.Equal(t, "CPU usage above threshold", request.Title)
		assert.Equal(t, "CPU usage is at 80.0% (threshold 80.0%)", request.Message)
		require.NotNil(t, request.ResourceType)
		assert.Equal(t, models.ResourceCPU, *request.ResourceType)
		require.NotNil(t, request.CurrentValue)
		assert.Equal(t, 80.0, *request.CurrentValue)
		require.NotNil(t, request.ThresholdValue)
		assert.Equal(t, 80.0, *request.ThresholdValue)
		t.Logf("✓ Reading at threshold fires a warning alert")
	})

	t.Run("Moderate Breach Stays Warning", func(t *testing.T) {
		monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())

		response, err := monitor.CheckResourceThreshold(ctx, models.ResourceCPU, 85.0)
		require.NoError(t, err)
		require.NotNil(t, response)
		assert.Equal(t, models.AlertLevelWarning, notifier.lastRequest().Level)
		t.Logf("✓ Moderate breach stays at warning level")
	})

	t.Run("Severe Breach Escalates To Critical", func(t *testing.T) {
		monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())

		response, err := monitor.CheckResourceThreshold(ctx, models.ResourceCPU, 97.0)
		require.NoError(t, err)
		require.NotNil(t, response)
		assert.Equal(t, models.AlertLevelCritical, notifier.lastRequest().Level)
		t.Logf("✓ Severe breach escalated to critical")
	})

	t.Run("Unknown Resource Rejected", func(t *testing.T) {
		monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())

		_, err := monitor.CheckResourceThreshold(ctx, "gpu", 99.0)
		require.Error(t, err)

		var appErr *utils.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, utils.ErrCodeValidation, appErr.Code)
		assert.Zero(t, notifier.requestCount())
		t.Logf("✓ Unknown resource type rejected")
	})

	t.Run("Disabled Resource Alerts Skip Checks", func(t *testing.T) {
		config := models.DefaultNotificationConfig()
		config.ResourceAlertsEnabled = false
		monitor, notifier := newTestMonitor(config)

		response, err := monitor.CheckResourceThreshold(ctx, models.ResourceCPU, 99.0)
		require.NoError(t, err)
		assert.Nil(t, response)
		assert.Zero(t, notifier.requestCount())

		stats := monitor.GetStats()
		assert.Equal(t, uint64(1), stats.ChecksSuppressed)
		t.Logf("✓ Disabled toggle suppresses resource checks")
	})

	t.Run("Missing Threshold Skips Check", func(t *testing.T) {
		config := models.DefaultNotificationConfig()
		delete(config.Thresholds, models.ResourceNetwork)
		monitor, notifier := newTestMonitor(config)

		response, err := monitor.CheckResourceThreshold(ctx, models.ResourceNetwork, 99.0)
		require.NoError(t, err)
		assert.Nil(t, response)
		assert.Zero(t, notifier.requestCount())
		t.Logf("✓ Resource without a configured threshold is skipped")
	})

	t.Run("Missing Config Errors", func(t *testing.T) {
		monitor, _ := newTestMonitor(nil)

		_, err := monitor.CheckResourceThreshold(ctx, models.ResourceCPU, 50.0)
		require.Error(t, err)

		var appErr *utils.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, utils.ErrCodeInternal, appErr.Code)
		t.Logf("✓ Missing notifier config surfaces an internal error")
	})

	t.Run("Dispatch Errors Are Recorded", func(t *testing.T) {
		monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())
		notifier.sendErr = utils.NewAppError(utils.ErrCodeDatabase, "Failed to persist alert history", "")

		_, err := monitor.CheckResourceThreshold(ctx, models.ResourceCPU, 90.0)
		require.Error(t, err)

		stats := monitor.GetStats()
		assert.Equal(t, uint64(1), stats.ErrorCount)
		require.NotNil(t, stats.LastError)
		t.Logf("✓ Dispatch errors land in monitor stats")
	})
}

func TestCheckServiceStatus(t *testing.T) {
	ctx := context.Background()

	transitions := []struct {
		name     string
		previous models.ServiceStatus
		current  models.ServiceStatus
		fires    bool
		level    models.AlertLevel
	}{
		{"Healthy To Degraded", models.ServiceStatusHealthy, models.ServiceStatusDegraded, true, models.AlertLevelWarning},
		{"Degraded To Unhealthy", models.ServiceStatusDegraded, models.ServiceStatusUnhealthy, true, models.AlertLevelError},
		{"Unhealthy To Offline", models.ServiceStatusUnhealthy, models.ServiceStatusOffline, true, models.AlertLevelError},
		{"Healthy To Offline", models.ServiceStatusHealthy, models.ServiceStatusOffline, true, models.AlertLevelError},
		{"Offline To Healthy", models.ServiceStatusOffline, models.ServiceStatusHealthy, false, ""},
		{"Degraded To Healthy", models.ServiceStatusDegraded, models.ServiceStatusHealthy, false, ""},
		{"Degraded To Degraded", models.ServiceStatusDegraded, models.ServiceStatusDegraded, false, ""},
	}

	for _, tc := range transitions {
		t.Run(tc.name, func(t *testing.T) {
			monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())

			response, err := monitor.CheckServiceStatus(ctx, "api-gateway", tc.previous, tc.current)
			require.NoError(t, err)

			if !tc.fires {
				assert.Nil(t, response, "No alert expected for %s -> %s", tc.previous, tc.current)
				assert.Zero(t, notifier.requestCount())
				return
			}

			require.NotNil(t, response, "Alert expected for %s -> %s", tc.previous, tc.current)
			request := notifier.lastRequest()
			require.NotNil(t, request)
			assert.Equal(t, tc.level, request.Level)
			assert.Contains(t, request.Title, "api-gateway")
			assert.Contains(t, request.Message, string(tc.previous))
			assert.Contains(t, request.Message, string(tc.current))
			assert.Equal(t, string(tc.previous), request.Metadata["previous_status"])
			assert.Equal(t, string(tc.current), request.Metadata["current_status"])
		})
	}
	t.Logf("✓ Service status transition matrix verified")
}

func TestCheckServiceStatusValidation(t *testing.T) {
	ctx := context.Background()
	monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())

	_, err := monitor.CheckServiceStatus(ctx, "  ", models.ServiceStatusHealthy, models.ServiceStatusDegraded)
	require.Error(t, err, "Blank service name should be rejected")

	_, err = monitor.CheckServiceStatus(ctx, "api", models.ServiceStatus("zombie"), models.ServiceStatusDegraded)
	require.Error(t, err, "Unknown previous status should be rejected")

	_, err = monitor.CheckServiceStatus(ctx, "api", models.ServiceStatusHealthy, models.ServiceStatus("zombie"))
	require.Error(t, err, "Unknown current status should be rejected")

	assert.Zero(t, notifier.requestCount())
	t.Logf("✓ Service status validation working")
}

func TestCheckServiceStatusDisabled(t *testing.T) {
	ctx := context.Background()

	config := models.DefaultNotificationConfig()
	config.ServiceStatusAlertsEnabled = false
	monitor, notifier := newTestMonitor(config)

	response, err := monitor.CheckServiceStatus(ctx, "api", models.ServiceStatusHealthy, models.ServiceStatusOffline)
	require.NoError(t, err)
	assert.Nil(t, response)
	assert.Zero(t, notifier.requestCount())
	t.Logf("✓ Disabled toggle suppresses service status checks")
}

func TestReportServiceStatus(t *testing.T) {
	ctx := context.Background()
	monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())

	// First report is compared against healthy
	response, err := monitor.ReportServiceStatus(ctx, "db", models.ServiceStatusUnhealthy)
	require.NoError(t, err)
	require.NotNil(t, response)
	assert.Equal(t, models.AlertLevelError, notifier.lastRequest().Level)
	assert.Equal(t, string(models.ServiceStatusHealthy), notifier.lastRequest().Metadata["previous_status"])

	// Repeat of the same status is not a transition
	response, err = monitor.ReportServiceStatus(ctx, "db", models.ServiceStatusUnhealthy)
	require.NoError(t, err)
	assert.Nil(t, response)

	// Recovery is recorded but never alerts
	response, err = monitor.ReportServiceStatus(ctx, "db", models.ServiceStatusHealthy)
	require.NoError(t, err)
	assert.Nil(t, response)

	// Worsening from the recorded healthy state alerts again
	response, err = monitor.ReportServiceStatus(ctx, "db", models.ServiceStatusDegraded)
	require.NoError(t, err)
	require.NotNil(t, response)
	assert.Equal(t, models.AlertLevelWarning, notifier.lastRequest().Level)

	stats := monitor.GetStats()
	assert.Equal(t, 1, stats.TrackedServices)
	assert.Equal(t, uint64(2), stats.AlertsTriggered)
	require.NotNil(t, stats.LastAlertTime)

	t.Logf("✓ Tracked service reporting working: %d alerts from %d checks",
		stats.AlertsTriggered, stats.ServiceChecks)
}

func TestReportServiceStatusValidationDoesNotRecord(t *testing.T) {
	ctx := context.Background()
	monitor, _ := newTestMonitor(models.DefaultNotificationConfig())

	_, err := monitor.ReportServiceStatus(ctx, "cache", models.ServiceStatus("zombie"))
	require.Error(t, err)

	stats := monitor.GetStats()
	assert.Zero(t, stats.TrackedServices, "Failed reports must not record service state")

	// A later valid report still starts from the healthy default
	response, err := monitor.ReportServiceStatus(ctx, "cache", models.ServiceStatusDegraded)
	require.NoError(t, err)
	require.NotNil(t, response, "Degraded report after a failed one should alert against healthy")
	t.Logf("✓ Invalid reports leave tracked state untouched")
}

func TestMonitorHealth(t *testing.T) {
	monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())
	ctx := context.Background()

	health := monitor.GetHealth()
	assert.False(t, health.Healthy, "Stopped monitor should be unhealthy")
	assert.Contains(t, health.Issues, "monitor is not running")

	require.NoError(t, monitor.Start(ctx))
	defer monitor.Stop()

	health = monitor.GetHealth()
	assert.True(t, health.Healthy)
	assert.True(t, health.NotifierHealthy)
	assert.Empty(t, health.Issues)

	notifier.Stop()
	health = monitor.GetHealth()
	assert.False(t, health.Healthy)
	assert.False(t, health.NotifierHealthy)
	assert.Contains(t, health.Issues, "notification service is not running")

	t.Logf("✓ Monitor health reflects notifier state")
}

func TestMonitorChecksWithoutStart(t *testing.T) {
	// Threshold checks are driven by API calls and work whether or not the
	// heartbeat loop is running
	monitor, notifier := newTestMonitor(models.DefaultNotificationConfig())

	response, err := monitor.CheckResourceThreshold(context.Background(), models.ResourceDisk, 95.0)
	require.NoError(t, err)
	require.NotNil(t, response)
	assert.Equal(t, 1, notifier.requestCount())
	t.Logf("✓ Checks work without the heartbeat loop")
}
