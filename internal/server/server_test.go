package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/notify-service/internal/config"
	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/internal/monitor"
	"github.com/smartdevs17/notify-service/internal/notification"
	"github.com/smartdevs17/notify-service/internal/storage"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// stubNotifier returns scripted responses to the handlers under test
type stubNotifier struct {
	config      *models.NotificationConfig
	healthy     bool
	sendResp    *models.NotificationResponse
	sendErr     error
	updateErr   error
	statusResp  *models.NotificationStatus
	statusErr   error
	lastSent    *models.NotificationRequest
	lastConfig  *models.NotificationConfig
	lastEnabled *bool
}

func (s *stubNotifier) Start(ctx context.Context) error { return nil }
func (s *stubNotifier) Stop() error                     { return nil }
func (s *stubNotifier) IsHealthy() bool                 { return s.healthy }

func (s *stubNotifier) Send(ctx context.Context, request *models.NotificationRequest) (*models.NotificationResponse, error) {
	s.lastSent = request
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	if s.sendResp != nil {
		return s.sendResp, nil
	}
	return &models.NotificationResponse{
		Success:   true,
		Message:   "alert dispatched to 1 of 1 channel(s)",
		SentTo:    []string{"log"},
		FailedTo:  []string{},
		Timestamp: time.Now().UTC(),
	}, nil
}

func (s *stubNotifier) SendTest(ctx context.Context) (*models.NotificationResponse, error) {
	return s.Send(ctx, &models.NotificationRequest{Level: models.AlertLevelInfo, Title: "Test Notification", Message: "test"})
}

func (s *stubNotifier) UpdateConfig(ctx context.Context, config *models.NotificationConfig) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.lastConfig = config
	s.config = config
	return nil
}

func (s *stubNotifier) CurrentConfig() *models.NotificationConfig {
	if s.config == nil {
		return nil
	}
	return s.config.Clone()
}

func (s *stubNotifier) SetEnabled(ctx context.Context, enabled bool) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.lastEnabled = &enabled
	return nil
}

func (s *stubNotifier) Status(ctx context.Context) (*models.NotificationStatus, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	if s.statusResp != nil {
		return s.statusResp, nil
	}
	return &models.NotificationStatus{Enabled: true, Config: s.config}, nil
}

func (s *stubNotifier) GetStats() *notification.NotificationStats {
	return &notification.NotificationStats{}
}

func (s *stubNotifier) GetHealth() *notification.NotificationHealth {
	return &notification.NotificationHealth{Healthy: s.healthy}
}

// stubMonitor records which check was invoked with what arguments
type stubMonitor struct {
	running      bool
	response     *models.NotificationResponse
	err          error
	lastMethod   string
	lastResource string
	lastValue    float64
	lastService  string
	lastPrevious models.ServiceStatus
	lastCurrent  models.ServiceStatus
}

func (m *stubMonitor) Start(ctx context.Context) error { m.running = true; return nil }
func (m *stubMonitor) Stop() error                     { m.running = false; return nil }
func (m *stubMonitor) IsRunning() bool                 { return m.running }

func (m *stubMonitor) CheckResourceThreshold(ctx context.Context, resourceType string, currentValue float64) (*models.NotificationResponse, error) {
	m.lastMethod = "resource"
	m.lastResource = resourceType
	m.lastValue = currentValue
	return m.response, m.err
}

func (m *stubMonitor) CheckServiceStatus(ctx context.Context, serviceName string, previous, current models.ServiceStatus) (*models.NotificationResponse, error) {
	m.lastMethod = "check"
	m.lastService = serviceName
	m.lastPrevious = previous
	m.lastCurrent = current
	return m.response, m.err
}

func (m *stubMonitor) ReportServiceStatus(ctx context.Context, serviceName string, current models.ServiceStatus) (*models.NotificationResponse, error) {
	m.lastMethod = "report"
	m.lastService = serviceName
	m.lastCurrent = current
	return m.response, m.err
}

func (m *stubMonitor) GetStats() *monitor.MonitorStats {
	return &monitor.MonitorStats{IsRunning: m.running}
}

func (m *stubMonitor) GetHealth() *monitor.HealthStatus {
	return &monitor.HealthStatus{Healthy: m.running, NotifierHealthy: true}
}

func newServerTestStorage(t *testing.T, path string) storage.Storage {
	t.Helper()

	utils.InitLogger("error", "text", "stdout", "")

	store, err := storage.NewStorage(&config.StorageConfig{
		Type:             "sqlite",
		ConnectionString: path,
		MaxConnections:   5,
		MaxIdleTime:      time.Minute,
	})
	require.NoError(t, err, "Failed to create storage")
	require.NoError(t, store.Connect(), "Failed to connect to storage")
	require.NoError(t, store.Migrate(), "Failed to migrate storage")

	t.Cleanup(func() {
		store.Close()
		os.Remove(path)
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")
	})

	return store
}

func newTestServer(t *testing.T, store storage.Storage, notifier notification.Notifier, mon monitor.Monitor) *HTTPServer {
	t.Helper()

	srv, err := NewHTTPServer(&ServerConfig{
		Port:         8081,
		Host:         "127.0.0.1",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		EnableHealth: true,
	}, store, mon, notifier, nil)
	require.NoError(t, err, "Failed to create HTTP server")

	return srv
}

// doRequest serves one request through the router. A string body is sent
// verbatim; anything else is JSON-encoded.
func doRequest(srv *HTTPServer, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	request := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	srv.router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload), "Response should be valid JSON")
	return payload
}

func TestHealthEndpoints(t *testing.T) {
	store := newServerTestStorage(t, "./test_server_health.db")
	notifier := &stubNotifier{healthy: true, config: models.DefaultNotificationConfig()}
	mon := &stubMonitor{running: true}
	srv := newTestServer(t, store, notifier, mon)

	t.Run("Basic Health", func(t *testing.T) {
		for _, path := range []string{"/health", "/api/v1/health"} {
			recorder := doRequest(srv, "GET", path, nil)
			require.Equal(t, http.StatusOK, recorder.Code, "GET %s", path)
			assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
			assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))

			payload := decodeBody(t, recorder)
			assert.Equal(t, "healthy", payload["status"])
			assert.Equal(t, "1.0.0", payload["version"])
		}
		t.Logf("✓ Health endpoints responding")
	})

	t.Run("Detailed Health Reports Components", func(t *testing.T) {
		recorder := doRequest(srv, "GET", "/api/v1/health/detailed", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		payload := decodeBody(t, recorder)
		assert.Equal(t, "healthy", payload["status"])

		components, ok := payload["components"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, components, "storage")
		assert.Contains(t, components, "monitor")
		assert.Contains(t, components, "notification")
		t.Logf("✓ Component health included")
	})

	t.Run("Degraded When A Component Is Down", func(t *testing.T) {
		mon.running = false
		defer func() { mon.running = true }()

		recorder := doRequest(srv, "GET", "/api/v1/health/detailed", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "degraded", decodeBody(t, recorder)["status"])
		t.Logf("✓ Degraded status on unhealthy component")
	})

	t.Run("Health Routes Can Be Disabled", func(t *testing.T) {
		disabled, err := NewHTTPServer(&ServerConfig{Port: 8082, Host: "127.0.0.1"}, store, mon, notifier, nil)
		require.NoError(t, err)

		recorder := doRequest(disabled, "GET", "/health", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)

		recorder = doRequest(disabled, "GET", "/api/v1/stats", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code, "Stats route requires metrics to be enabled")
		t.Logf("✓ Optional routes disabled by config")
	})
}

func TestAlertEndpoint(t *testing.T) {
	store := newServerTestStorage(t, "./test_server_alert.db")
	notifier := &stubNotifier{healthy: true, config: models.DefaultNotificationConfig()}
	mon := &stubMonitor{running: true}
	srv := newTestServer(t, store, notifier, mon)

	t.Run("Valid Alert Dispatched", func(t *testing.T) {
		recorder := doRequest(srv, "POST", "/api/v1/alert", map[string]interface{}{
			"level":   "warning",
			"title":   "Disk filling up",
			"message": "Disk usage is at 91.0%",
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		payload := decodeBody(t, recorder)
		assert.Equal(t, true, payload["success"])

		require.NotNil(t, notifier.lastSent)
		assert.Equal(t, models.AlertLevelWarning, notifier.lastSent.Level)
		assert.Equal(t, "Disk filling up", notifier.lastSent.Title)
		t.Logf("✓ Alert request forwarded to the notifier")
	})

	t.Run("Malformed Body Rejected", func(t *testing.T) {
		recorder := doRequest(srv, "POST", "/api/v1/alert", "{not json")
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Invalid request body", decodeBody(t, recorder)["error"])
		t.Logf("✓ Malformed JSON rejected")
	})

	t.Run("Validation Errors Map To 400", func(t *testing.T) {
		notifier.sendErr = utils.NewAppError(utils.ErrCodeValidation, "Invalid notification request", "alert title is required")
		defer func() { notifier.sendErr = nil }()

		recorder := doRequest(srv, "POST", "/api/v1/alert", map[string]interface{}{"level": "info", "title": "", "message": "m"})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		t.Logf("✓ Validation errors map to 400")
	})

	t.Run("Internal Detail Never Reaches The Client", func(t *testing.T) {
		notifier.sendErr = utils.NewAppError(utils.ErrCodeDatabase, "Failed to persist alert history",
			"dial tcp 10.0.0.5:5432: connect: connection refused")
		defer func() { notifier.sendErr = nil }()

		recorder := doRequest(srv, "POST", "/api/v1/alert", map[string]interface{}{
			"level": "info", "title": "t", "message": "m",
		})
		require.Equal(t, http.StatusInternalServerError, recorder.Code)

		body := recorder.Body.String()
		assert.Contains(t, body, "Failed to dispatch alert")
		assert.NotContains(t, body, "10.0.0.5", "Raw error detail must not leak to clients")
		assert.NotContains(t, body, "connection refused")
		t.Logf("✓ Error bodies are templated, not raw")
	})
}

func TestTestEndpoint(t *testing.T) {
	store := newServerTestStorage(t, "./test_server_test_alert.db")
	notifier := &stubNotifier{healthy: true, config: models.DefaultNotificationConfig()}
	srv := newTestServer(t, store, notifier, &stubMonitor{running: true})

	t.Run("Empty Body Uses Canned Alert", func(t *testing.T) {
		recorder := doRequest(srv, "POST", "/api/v1/test", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		require.NotNil(t, notifier.lastSent)
		assert.Equal(t, models.AlertLevelInfo, notifier.lastSent.Level)
		assert.Equal(t, "Test Notification", notifier.lastSent.Title)
		assert.Equal(t, true, notifier.lastSent.Metadata["test"])
		t.Logf("✓ Canned test alert dispatched")
	})

	t.Run("Custom Fields Override Defaults", func(t *testing.T) {
		recorder := doRequest(srv, "POST", "/api/v1/test", map[string]interface{}{
			"level": "warning",
			"title": "Smoke test",
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		assert.Equal(t, models.AlertLevelWarning, notifier.lastSent.Level)
		assert.Equal(t, "Smoke test", notifier.lastSent.Title)
		assert.NotEmpty(t, notifier.lastSent.Message, "Blank message falls back to the canned text")
		assert.Equal(t, true, notifier.lastSent.Metadata["test"])
		t.Logf("✓ Custom test fields honored, test marker kept")
	})
}

func TestConfigEndpoints(t *testing.T) {
	store := newServerTestStorage(t, "./test_server_config.db")
	notifier := &stubNotifier{healthy: true, config: models.DefaultNotificationConfig()}
	srv := newTestServer(t, store, notifier, &stubMonitor{running: true})

	t.Run("Get Active Config", func(t *testing.T) {
		recorder := doRequest(srv, "GET", "/api/v1/config", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		payload := decodeBody(t, recorder)
		assert.Equal(t, true, payload["enabled"])
		assert.Contains(t, payload, "channels")
		t.Logf("✓ Active config served")
	})

	t.Run("Config Unavailable Before Start", func(t *testing.T) {
		empty := &stubNotifier{healthy: false}
		unready := newTestServer(t, store, empty, &stubMonitor{})

		recorder := doRequest(unready, "GET", "/api/v1/config", nil)
		assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
		t.Logf("✓ 503 before the notifier has a config")
	})

	t.Run("Update Config", func(t *testing.T) {
		updated := models.DefaultNotificationConfig()
		updated.MaxAlertsPerHour = 99

		recorder := doRequest(srv, "POST", "/api/v1/config", updated)
		require.Equal(t, http.StatusOK, recorder.Code)

		payload := decodeBody(t, recorder)
		assert.Equal(t, "success", payload["status"])
		assert.Equal(t, "Notification config updated", payload["message"])

		require.NotNil(t, notifier.lastConfig)
		assert.Equal(t, 99, notifier.lastConfig.MaxAlertsPerHour)
		t.Logf("✓ Config update forwarded")
	})

	t.Run("Invalid Config Rejected", func(t *testing.T) {
		notifier.updateErr = utils.NewAppError(utils.ErrCodeValidation, "Invalid notification config", "alert_cooldown must not be negative")
		defer func() { notifier.updateErr = nil }()

		recorder := doRequest(srv, "POST", "/api/v1/config", models.DefaultNotificationConfig())
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		t.Logf("✓ Config validation errors map to 400")
	})

	t.Run("Enable And Disable", func(t *testing.T) {
		recorder := doRequest(srv, "POST", "/api/v1/enable", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "Notifications enabled", decodeBody(t, recorder)["message"])
		require.NotNil(t, notifier.lastEnabled)
		assert.True(t, *notifier.lastEnabled)

		recorder = doRequest(srv, "POST", "/api/v1/disable", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "Notifications disabled", decodeBody(t, recorder)["message"])
		assert.False(t, *notifier.lastEnabled)
		t.Logf("✓ Enable/disable endpoints working")
	})
}

func TestStatusEndpoint(t *testing.T) {
	store := newServerTestStorage(t, "./test_server_status.db")
	lastAlert := time.Now().UTC()
	notifier := &stubNotifier{
		healthy: true,
		config:  models.DefaultNotificationConfig(),
		statusResp: &models.NotificationStatus{
			Enabled:           true,
			TotalAlertsSent:   12,
			AlertsThisHour:    3,
			LastAlertTime:     &lastAlert,
			CooldownActive:    true,
			CooldownRemaining: 120,
		},
	}
	srv := newTestServer(t, store, notifier, &stubMonitor{running: true})

	recorder := doRequest(srv, "GET", "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	payload := decodeBody(t, recorder)
	assert.Equal(t, true, payload["enabled"])
	assert.EqualValues(t, 12, payload["total_alerts_sent"])
	assert.EqualValues(t, 3, payload["alerts_this_hour"])
	assert.Equal(t, true, payload["cooldown_active"])
	assert.EqualValues(t, 120, payload["cooldown_remaining_seconds"])
	t.Logf("✓ Status endpoint serves the dispatch snapshot")
}

func TestHistoryEndpoints(t *testing.T) {
	store := newServerTestStorage(t, "./test_server_history.db")
	notifier := &stubNotifier{healthy: true, config: models.DefaultNotificationConfig()}
	srv := newTestServer(t, store, notifier, &stubMonitor{running: true})
	ctx := context.Background()

	base := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	serviceName := "worker"

	seed := []*models.AlertMessage{
		{ID: "h-1", Timestamp: base, Level: models.AlertLevelInfo, Title: "one", Message: "m", SentTo: []string{"log"}, FailedTo: []string{}},
		{ID: "h-2", Timestamp: base.Add(time.Minute), Level: models.AlertLevelWarning, Title: "two", Message: "m", ServiceName: &serviceName, SentTo: []string{"log"}, FailedTo: []string{}},
		{ID: "h-3", Timestamp: base.Add(2 * time.Minute), Level: models.AlertLevelWarning, Title: "three", Message: "m", SentTo: []string{"log"}, FailedTo: []string{}},
	}
	for _, alert := range seed {
		require.NoError(t, store.SaveAlert(ctx, alert))
	}

	t.Run("List Newest First", func(t *testing.T) {
		recorder := doRequest(srv, "GET", "/api/v1/history", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		payload := decodeBody(t, recorder)
		alerts, ok := payload["alerts"].([]interface{})
		require.True(t, ok)
		require.Len(t, alerts, 3)
		assert.EqualValues(t, 3, payload["total_alerts"])

		first, ok := alerts[0].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "h-3", first["id"])

		filters, ok := payload["filters"].(map[string]interface{})
		require.True(t, ok)
		assert.EqualValues(t, defaultHistoryLimit, filters["limit"])
		t.Logf("✓ History listed newest first with default limit")
	})

	t.Run("Limit Caps Results But Not Total", func(t *testing.T) {
		recorder := doRequest(srv, "GET", "/api/v1/history?limit=2", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		payload := decodeBody(t, recorder)
		assert.Len(t, payload["alerts"], 2)
		assert.EqualValues(t, 3, payload["total_alerts"], "Total should ignore the page size")
		t.Logf("✓ Pagination leaves totals intact")
	})

	t.Run("Level And Service Filters", func(t *testing.T) {
		recorder := doRequest(srv, "GET", "/api/v1/history?level=warning", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		payload := decodeBody(t, recorder)
		assert.Len(t, payload["alerts"], 2)
		assert.EqualValues(t, 2, payload["total_alerts"])

		recorder = doRequest(srv, "GET", "/api/v1/history?service_name=worker", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		payload = decodeBody(t, recorder)
		assert.Len(t, payload["alerts"], 1)
		t.Logf("✓ History filters working")
	})

	t.Run("Invalid Parameters Rejected", func(t *testing.T) {
		for _, path := range []string{
			"/api/v1/history?limit=abc",
			"/api/v1/history?limit=-1",
			"/api/v1/history?level=bogus",
		} {
			recorder := doRequest(srv, "GET", path, nil)
			assert.Equal(t, http.StatusBadRequest, recorder.Code, "GET %s", path)
		}
		t.Logf("✓ Invalid history parameters rejected")
	})

	t.Run("Clear History", func(t *testing.T) {
		recorder := doRequest(srv, "DELETE", "/api/v1/history", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		payload := decodeBody(t, recorder)
		assert.Equal(t, "Alert history cleared", payload["message"])
		assert.EqualValues(t, 3, payload["deleted_alerts"])

		recorder = doRequest(srv, "GET", "/api/v1/history", nil)
		payload = decodeBody(t, recorder)
		assert.EqualValues(t, 0, payload["total_alerts"])
		t.Logf("✓ History cleared via API")
	})
}

func TestMonitorEndpoints(t *testing.T) {
	store := newServerTestStorage(t, "./test_server_monitor.db")
	notifier := &stubNotifier{healthy: true, config: models.DefaultNotificationConfig()}
	mon := &stubMonitor{running: true}
	srv := newTestServer(t, store, notifier, mon)

	t.Run("Resource Check Triggered", func(t *testing.T) {
		mon.response = &models.NotificationResponse{Success: true, SentTo: []string{"log"}, FailedTo: []string{}}
		defer func() { mon.response = nil }()

		recorder := doRequest(srv, "POST", "/api/v1/monitor/resource", map[string]interface{}{
			"resource_type": "cpu",
			"current_value": 92.5,
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		payload := decodeBody(t, recorder)
		assert.Equal(t, true, payload["triggered"])
		assert.Contains(t, payload, "response")

		assert.Equal(t, "resource", mon.lastMethod)
		assert.Equal(t, "cpu", mon.lastResource)
		assert.Equal(t, 92.5, mon.lastValue)
		t.Logf("✓ Resource check endpoint forwards to the monitor")
	})

	t.Run("Resource Check Not Triggered", func(t *testing.T) {
		recorder := doRequest(srv, "POST", "/api/v1/monitor/resource", map[string]interface{}{
			"resource_type": "cpu",
			"current_value": 10.0,
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		payload := decodeBody(t, recorder)
		assert.Equal(t, false, payload["triggered"])
		assert.NotContains(t, payload, "response")
		t.Logf("✓ Silent check reports triggered=false")
	})

	t.Run("Resource Check Requires Both Fields", func(t *testing.T) {
		for _, body := range []map[string]interface{}{
			{},
			{"resource_type": "cpu"},
			{"current_value": 50.0},
		} {
			recorder := doRequest(srv, "POST", "/api/v1/monitor/resource", body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		}
		t.Logf("✓ Missing resource fields rejected")
	})

	t.Run("Unknown Resource Maps To 400", func(t *testing.T) {
		mon.err = utils.NewAppError(utils.ErrCodeValidation, "Unknown resource type", "gpu")
		defer func() { mon.err = nil }()

		recorder := doRequest(srv, "POST", "/api/v1/monitor/resource", map[string]interface{}{
			"resource_type": "gpu",
			"current_value": 50.0,
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		t.Logf("✓ Monitor validation errors map to 400")
	})

	t.Run("Service Check With Explicit Previous", func(t *testing.T) {
		recorder := doRequest(srv, "POST", "/api/v1/monitor/service", map[string]interface{}{
			"service_name":    "api",
			"previous_status": "healthy",
			"current_status":  "degraded",
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		assert.Equal(t, "check", mon.lastMethod)
		assert.Equal(t, "api", mon.lastService)
		assert.Equal(t, models.ServiceStatusHealthy, mon.lastPrevious)
		assert.Equal(t, models.ServiceStatusDegraded, mon.lastCurrent)
		t.Logf("✓ Explicit previous status routed to the stateless check")
	})

	t.Run("Service Report Without Previous", func(t *testing.T) {
		recorder := doRequest(srv, "POST", "/api/v1/monitor/service", map[string]interface{}{
			"service_name":   "api",
			"current_status": "offline",
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		assert.Equal(t, "report", mon.lastMethod)
		assert.Equal(t, models.ServiceStatusOffline, mon.lastCurrent)
		t.Logf("✓ Omitted previous status routed to tracked reporting")
	})

	t.Run("Service Check Parameter Validation", func(t *testing.T) {
		for _, body := range []map[string]interface{}{
			{"current_status": "degraded"},
			{"service_name": "api"},
			{"service_name": "api", "current_status": "zombie"},
			{"service_name": "api", "current_status": "degraded", "previous_status": "zombie"},
		} {
			recorder := doRequest(srv, "POST", "/api/v1/monitor/service", body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code, "Body %v should be rejected", body)
		}
		t.Logf("✓ Service check parameters validated")
	})
}
