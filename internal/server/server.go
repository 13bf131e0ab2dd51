// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/notify-service/internal/metrics"
	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/internal/monitor"
	"github.com/smartdevs17/notify-service/internal/notification"
	"github.com/smartdevs17/notify-service/internal/storage"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// defaultHistoryLimit caps history queries that carry no limit parameter
const defaultHistoryLimit = 50

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
}

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config         *ServerConfig
	server         *http.Server
	router         *mux.Router
	storage        storage.Storage
	monitor        monitor.Monitor
	notifier       notification.Notifier
	metricsManager *metrics.Manager
	logger         *logrus.Logger

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	config *ServerConfig,
	store storage.Storage,
	alertMonitor monitor.Monitor,
	notifier notification.Notifier,
	metricsManager *metrics.Manager,
) (*HTTPServer, error) {

	server := &HTTPServer{
		config:         config,
		storage:        store,
		monitor:        alertMonitor,
		notifier:       notifier,
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
		stopChan:       make(chan struct{}),
	}

	// Setup router
	server.setupRouter()

	// Create HTTP server
	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server, nil
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	// API routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Health check endpoints
	if s.config.EnableHealth {
		s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
		api.HandleFunc("/health/detailed", s.detailedHealthHandler).Methods("GET")
	}

	// Metrics endpoints
	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// Notification config endpoints
	api.HandleFunc("/config", s.getConfigHandler).Methods("GET")
	api.HandleFunc("/config", s.updateConfigHandler).Methods("POST")
	api.HandleFunc("/enable", s.enableHandler).Methods("POST")
	api.HandleFunc("/disable", s.disableHandler).Methods("POST")

	// Dispatch endpoints
	api.HandleFunc("/status", s.statusHandler).Methods("GET")
	api.HandleFunc("/alert", s.alertHandler).Methods("POST")
	api.HandleFunc("/test", s.testHandler).Methods("POST")

	// History endpoints
	api.HandleFunc("/history", s.historyHandler).Methods("GET")
	api.HandleFunc("/history", s.clearHistoryHandler).Methods("DELETE")

	// Monitor endpoints
	api.HandleFunc("/monitor/resource", s.resourceCheckHandler).Methods("POST")
	api.HandleFunc("/monitor/service", s.serviceCheckHandler).Methods("POST")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	// Update system and component metrics so they appear on the first scrape
	if s.metricsManager != nil {
		s.refreshMetrics()
		go s.systemMetricsUpdater()
	}

	// Create a channel to receive startup errors
	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithField("error", err.Error()).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Give the server a moment to start and check for immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// systemMetricsUpdater refreshes gauges periodically until the server stops
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.refreshMetrics()
		}
	}
}

// refreshMetrics updates system, component health, and history size gauges
func (s *HTTPServer) refreshMetrics() {
	s.metricsManager.UpdateSystemMetrics()
	prom := s.metricsManager.GetPrometheusMetrics()

	if s.storage != nil {
		health := s.storage.GetHealth()
		prom.UpdateComponentHealth("storage", health.Healthy)

		if openStr, ok := health.Details["open_connections"]; ok {
			if open, err := strconv.Atoi(openStr); err == nil {
				prom.UpdateDatabaseConnections(open)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if count, err := s.storage.GetAlertCount(ctx, nil); err == nil {
			prom.UpdateAlertHistorySize(count)
		}
		cancel()
	}

	if s.monitor != nil {
		prom.UpdateComponentHealth("monitor", s.monitor.GetHealth().Healthy)
	}
	if s.notifier != nil {
		prom.UpdateComponentHealth("notification", s.notifier.GetHealth().Healthy)
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Health Handlers

// healthHandler returns basic health status
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
		"version":         "1.0.0",
		"metrics_enabled": s.config.EnableMetrics,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// detailedHealthHandler returns per-component health
func (s *HTTPServer) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	storageHealth := s.storage.GetHealth()
	monitorHealth := s.monitor.GetHealth()
	notifierHealth := s.notifier.GetHealth()

	status := "healthy"
	if !storageHealth.Healthy || !monitorHealth.Healthy || !notifierHealth.Healthy {
		status = "degraded"
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
		"components": map[string]interface{}{
			"storage":      storageHealth,
			"monitor":      monitorHealth,
			"notification": notifierHealth,
		},
	})
}

// statsHandler returns application statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	storageStats, err := s.storage.GetStorageStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve storage stats", err)
		return
	}

	stats := map[string]interface{}{
		"timestamp":       time.Now().UTC(),
		"storage":         storageStats,
		"monitor":         s.monitor.GetStats(),
		"notification":    s.notifier.GetStats(),
		"metrics_enabled": s.config.EnableMetrics,
	}
	if s.metricsManager != nil {
		stats["uptime_seconds"] = s.metricsManager.Uptime().Seconds()
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// Config Handlers

// getConfigHandler returns the active notification configuration
func (s *HTTPServer) getConfigHandler(w http.ResponseWriter, r *http.Request) {
	config := s.notifier.CurrentConfig()
	if config == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Notification service is not ready", nil)
		return
	}

	s.writeJSON(w, http.StatusOK, config)
}

// updateConfigHandler persists and activates a new configuration snapshot
func (s *HTTPServer) updateConfigHandler(w http.ResponseWriter, r *http.Request) {
	var config models.NotificationConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.notifier.UpdateConfig(r.Context(), &config); err != nil {
		s.writeError(w, statusForError(err), "Failed to update notification config", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Notification config updated",
		"config":  &config,
	})
}

// enableHandler turns notification dispatch on
func (s *HTTPServer) enableHandler(w http.ResponseWriter, r *http.Request) {
	s.setEnabled(w, r, true)
}

// disableHandler turns notification dispatch off
func (s *HTTPServer) disableHandler(w http.ResponseWriter, r *http.Request) {
	s.setEnabled(w, r, false)
}

func (s *HTTPServer) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	if err := s.notifier.SetEnabled(r.Context(), enabled); err != nil {
		s.writeError(w, statusForError(err), "Failed to update notification state", err)
		return
	}

	message := "Notifications disabled"
	if enabled {
		message = "Notifications enabled"
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": message,
	})
}

// Dispatch Handlers

// statusHandler returns the notification status snapshot
func (s *HTTPServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := s.notifier.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to read notification status", err)
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

// alertHandler accepts an alert request and dispatches it
func (s *HTTPServer) alertHandler(w http.ResponseWriter, r *http.Request) {
	var request models.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	response, err := s.notifier.Send(r.Context(), &request)
	if err != nil {
		s.writeError(w, statusForError(err), "Failed to dispatch alert", err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

// testHandler dispatches a test alert through the full pipeline. Body fields
// are optional; blanks fall back to a canned info-level test alert.
func (s *HTTPServer) testHandler(w http.ResponseWriter, r *http.Request) {
	var request models.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if request.Level == "" {
		request.Level = models.AlertLevelInfo
	}
	if strings.TrimSpace(request.Title) == "" {
		request.Title = "Test Notification"
	}
	if strings.TrimSpace(request.Message) == "" {
		request.Message = "This is a test alert. If you can read this, notification delivery works."
	}
	if request.Metadata == nil {
		request.Metadata = make(map[string]interface{})
	}
	request.Metadata["test"] = true

	response, err := s.notifier.Send(r.Context(), &request)
	if err != nil {
		s.writeError(w, statusForError(err), "Failed to send test notification", err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

// History Handlers

// historyHandler lists recent alerts, newest first
func (s *HTTPServer) historyHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := defaultHistoryLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit parameter", err)
			return
		}
		limit = parsed
	}

	filter := &models.AlertFilter{Limit: limit}
	filters := map[string]interface{}{"limit": limit}

	if levelStr := query.Get("level"); levelStr != "" {
		level, err := models.ParseAlertLevel(levelStr)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid level parameter", err)
			return
		}
		filter.Level = &level
		filters["level"] = level
	}

	if serviceName := query.Get("service_name"); serviceName != "" {
		filter.ServiceName = &serviceName
		filters["service_name"] = serviceName
	}

	alerts, err := s.storage.GetAlerts(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve alert history", err)
		return
	}

	total, err := s.storage.GetAlertCount(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to count alert history", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":       alerts,
		"total_alerts": total,
		"filters":      filters,
	})
}

// clearHistoryHandler deletes all alert history rows
func (s *HTTPServer) clearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.storage.ClearAlerts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to clear alert history", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "success",
		"message":        "Alert history cleared",
		"deleted_alerts": deleted,
	})
}

// Monitor Handlers

// resourceCheckHandler runs the resource threshold monitor
func (s *HTTPServer) resourceCheckHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ResourceType string   `json:"resource_type"`
		CurrentValue *float64 `json:"current_value"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if body.ResourceType == "" || body.CurrentValue == nil {
		s.writeError(w, http.StatusBadRequest, "resource_type and current_value are required", nil)
		return
	}

	response, err := s.monitor.CheckResourceThreshold(r.Context(), body.ResourceType, *body.CurrentValue)
	if err != nil {
		s.writeError(w, statusForError(err), "Resource check failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, checkResult(response))
}

// serviceCheckHandler runs the service status monitor. When previous_status
// is omitted the monitor's tracked state for the service is used.
func (s *HTTPServer) serviceCheckHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ServiceName    string `json:"service_name"`
		CurrentStatus  string `json:"current_status"`
		PreviousStatus string `json:"previous_status"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if body.ServiceName == "" || body.CurrentStatus == "" {
		s.writeError(w, http.StatusBadRequest, "service_name and current_status are required", nil)
		return
	}

	current, err := models.ParseServiceStatus(body.CurrentStatus)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid current_status parameter", err)
		return
	}

	var response *models.NotificationResponse
	if body.PreviousStatus != "" {
		previous, parseErr := models.ParseServiceStatus(body.PreviousStatus)
		if parseErr != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid previous_status parameter", parseErr)
			return
		}
		response, err = s.monitor.CheckServiceStatus(r.Context(), body.ServiceName, previous, current)
	} else {
		response, err = s.monitor.ReportServiceStatus(r.Context(), body.ServiceName, current)
	}

	if err != nil {
		s.writeError(w, statusForError(err), "Service status check failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, checkResult(response))
}

// Utility Methods

// checkResult shapes a monitor check response; a nil response means no alert
// was triggered
func checkResult(response *models.NotificationResponse) map[string]interface{} {
	result := map[string]interface{}{
		"triggered": response != nil,
	}
	if response != nil {
		result["response"] = response
	}
	return result
}

// statusForError maps application error codes to HTTP status codes
func statusForError(err error) int {
	switch utils.CodeOf(err) {
	case utils.ErrCodeValidation, utils.ErrCodeConfiguration:
		return http.StatusBadRequest
	case utils.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response. Internal error detail is logged,
// never interpolated into the client-facing body.
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"status":  status,
			"message": message,
			"error":   err.Error(),
		}).Error("HTTP error")
	}

	s.writeJSON(w, status, map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
