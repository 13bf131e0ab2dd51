// File: internal/notification/notification.go
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smartdevs17/notify-service/internal/metrics"
	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/internal/storage"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// ChannelSender delivers a single alert over one notification channel
type ChannelSender interface {
	Name() models.ChannelType
	Send(ctx context.Context, config *models.NotificationConfig, alert *models.AlertMessage) error
}

// Notifier defines the notification service interface
type Notifier interface {
	// Lifecycle management
	Start(ctx context.Context) error
	Stop() error
	IsHealthy() bool

	// Dispatch
	Send(ctx context.Context, request *models.NotificationRequest) (*models.NotificationResponse, error)
	SendTest(ctx context.Context) (*models.NotificationResponse, error)

	// Configuration management
	UpdateConfig(ctx context.Context, config *models.NotificationConfig) error
	CurrentConfig() *models.NotificationConfig
	SetEnabled(ctx context.Context, enabled bool) error

	// Status and statistics
	Status(ctx context.Context) (*models.NotificationStatus, error)
	GetStats() *NotificationStats
	GetHealth() *NotificationHealth
}

// Service implements the Notifier interface
type Service struct {
	mu      sync.RWMutex
	running bool

	currentConfig *models.NotificationConfig
	seedConfig    *models.NotificationConfig

	store          storage.Storage
	gate           *AlertGate
	logger         *NotificationLogger
	metricsManager *metrics.Manager

	senders map[models.ChannelType]ChannelSender

	// Statistics
	stats *NotificationStats
}

// NotificationStats provides dispatch statistics
type NotificationStats struct {
	TotalRequests    uint64     `json:"total_requests"`
	TotalDispatched  uint64     `json:"total_dispatched"`
	TotalFailed      uint64     `json:"total_failed"`
	TotalRejected    uint64     `json:"total_rejected"`
	LastDispatchTime *time.Time `json:"last_dispatch_time,omitempty"`
	LastError        *string    `json:"last_error,omitempty"`
	LastErrorTime    *time.Time `json:"last_error_time,omitempty"`
}

type NotificationHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// NewService creates a new notification service. The metrics manager may be
// nil, in which case dispatch runs without instrumentation.
func NewService(store storage.Storage, seedConfig *models.NotificationConfig, metricsManager *metrics.Manager, logLevel string) *Service {
	logger := NewNotificationLogger(logLevel)

	s := &Service{
		seedConfig:     seedConfig,
		store:          store,
		gate:           NewAlertGate(),
		logger:         logger,
		metricsManager: metricsManager,
		stats:          &NotificationStats{},
	}

	s.senders = make(map[models.ChannelType]ChannelSender)
	for _, sender := range []ChannelSender{
		NewLogSender(),
		NewSlackSender(logger),
		NewEmailSender(logger),
		NewWebhookSender(),
	} {
		s.senders[sender.Name()] = sender
	}

	return s
}

// Start loads the active configuration and marks the service running. The
// latest stored snapshot wins over the seed config from the config file.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Notification service already running", "")
	}

	s.logger.Info("Starting notification service")

	config, err := s.store.LoadLatestConfig(ctx)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to load notification config", err.Error())
	}

	if config == nil {
		config = s.seedConfig
	}
	if config == nil {
		config = models.DefaultNotificationConfig()
	}

	s.currentConfig = config
	s.running = true

	s.logger.Info("Notification service started", map[string]interface{}{
		"enabled":  config.Enabled,
		"channels": config.Channels,
	})
	return nil
}

// Stop stops the notification service
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info("Stopping notification service")
	s.running = false

	s.logger.Info("Notification service stopped")
	return nil
}

// IsHealthy returns whether the notification service is running
func (s *Service) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Send runs an alert request through the admission gate and dispatches it to
// every configured channel in order. The dispatch succeeds when at least one
// channel delivered; rejected requests leave no history row.
func (s *Service) Send(ctx context.Context, request *models.NotificationRequest) (*models.NotificationResponse, error) {
	if request == nil {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Notification request is required", "")
	}
	if err := request.Validate(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Invalid notification request", err.Error())
	}

	s.mu.RLock()
	running := s.running
	config := s.currentConfig
	s.mu.RUnlock()

	if !running {
		return failureResponse("notification service is not running"), nil
	}

	if !config.Enabled {
		s.recordRejection(RejectReasonDisabled, map[string]interface{}{"title": request.Title})
		return failureResponse("notifications are disabled"), nil
	}

	decision := s.gate.Admit(config)
	if !decision.Allowed {
		rejectionContext := map[string]interface{}{"title": request.Title}
		var message string
		switch decision.Reason {
		case RejectReasonCooldown:
			rejectionContext["cooldown_remaining_seconds"] = decision.CooldownRemaining.Seconds()
			message = fmt.Sprintf("alert suppressed by cooldown (%.0fs remaining)", decision.CooldownRemaining.Seconds())
		case RejectReasonRateLimited:
			message = "hourly alert limit reached"
		default:
			message = "alert rejected"
		}
		s.recordRejection(decision.Reason, rejectionContext)
		return failureResponse(message), nil
	}

	alert := models.NewAlertMessage(request)
	s.logger.LogDispatchAttempt(alert.ID, alert.Level, config.Channels)

	start := time.Now()
	sentTo, failedTo := s.dispatch(ctx, config, alert)
	alert.SentTo = sentTo
	alert.FailedTo = failedTo

	// History records the attempt whether or not any channel delivered
	if err := s.store.SaveAlert(ctx, alert); err != nil {
		s.logger.Error("Failed to persist alert history", map[string]interface{}{
			"alert_id": alert.ID,
			"error":    err.Error(),
		})
	}

	s.logger.LogDispatchResult(alert.ID, sentTo, failedTo, time.Since(start))
	s.updateStats(len(sentTo) > 0, failedTo)
	s.publishGateMetrics(config)

	if s.metricsManager != nil {
		status := "failed"
		if len(sentTo) > 0 {
			status = "sent"
		}
		s.metricsManager.GetPrometheusMetrics().RecordAlert(string(alert.Level), status)
	}

	response := &models.NotificationResponse{
		Success:   len(sentTo) > 0,
		SentTo:    sentTo,
		FailedTo:  failedTo,
		Timestamp: alert.Timestamp,
	}

	switch {
	case len(config.Channels) == 0:
		response.Message = "no notification channels configured"
	case response.Success:
		response.Message = fmt.Sprintf("alert dispatched to %d of %d channel(s)", len(sentTo), len(config.Channels))
	default:
		response.Message = "all notification channels failed"
	}

	return response, nil
}

// SendTest dispatches a canned test alert through the full pipeline
func (s *Service) SendTest(ctx context.Context) (*models.NotificationResponse, error) {
	return s.Send(ctx, &models.NotificationRequest{
		Level:    models.AlertLevelInfo,
		Title:    "Test Notification",
		Message:  "This is a test alert. If you can read this, notification delivery works.",
		Metadata: map[string]interface{}{"test": true},
	})
}

// dispatch fans the alert out to the configured channels in configuration
// order. Channel names with no registered sender fail that channel only.
func (s *Service) dispatch(ctx context.Context, config *models.NotificationConfig, alert *models.AlertMessage) (sentTo, failedTo []string) {
	sentTo = make([]string, 0, len(config.Channels))
	failedTo = make([]string, 0)

	for _, channel := range config.Channels {
		sender, ok := s.senders[channel]
		if !ok {
			s.logger.Warn("Unknown notification channel", map[string]interface{}{
				"channel":  string(channel),
				"alert_id": alert.ID,
			})
			failedTo = append(failedTo, string(channel))
			s.recordChannelSend(string(channel), "failed", 0)
			continue
		}

		channelStart := time.Now()
		err := sender.Send(ctx, config, alert)
		duration := time.Since(channelStart)

		s.logger.LogChannelResult(string(channel), alert.ID, err, duration)

		if err != nil {
			failedTo = append(failedTo, string(channel))
			s.recordChannelSend(string(channel), "failed", duration)
			continue
		}

		sentTo = append(sentTo, string(channel))
		s.recordChannelSend(string(channel), "sent", duration)
	}

	return sentTo, failedTo
}

// UpdateConfig validates, persists, and activates a new configuration
// snapshot. Snapshots are insert-only; the newest stored row is the active
// config after a restart.
func (s *Service) UpdateConfig(ctx context.Context, config *models.NotificationConfig) error {
	if config == nil {
		return utils.NewAppError(utils.ErrCodeValidation, "Notification config is required", "")
	}
	if err := config.Validate(); err != nil {
		return utils.NewAppError(utils.ErrCodeValidation, "Invalid notification config", err.Error())
	}

	if err := s.store.SaveConfig(ctx, config); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to persist notification config", err.Error())
	}

	s.mu.Lock()
	s.currentConfig = config
	s.mu.Unlock()

	s.logger.LogConfigurationChange(map[string]interface{}{
		"enabled":             config.Enabled,
		"channels":            config.Channels,
		"alert_cooldown":      config.AlertCooldown,
		"max_alerts_per_hour": config.MaxAlertsPerHour,
	})

	return nil
}

// CurrentConfig returns a copy of the active configuration
func (s *Service) CurrentConfig() *models.NotificationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentConfig == nil {
		return nil
	}
	return s.currentConfig.Clone()
}

// SetEnabled flips the enabled flag and persists the resulting snapshot
func (s *Service) SetEnabled(ctx context.Context, enabled bool) error {
	s.mu.RLock()
	current := s.currentConfig
	s.mu.RUnlock()

	if current == nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Notification service has no active config", "")
	}

	updated := current.Clone()
	updated.Enabled = enabled

	return s.UpdateConfig(ctx, updated)
}

// Status reports the active config, the gate state, and the total number of
// alerts recorded in history.
func (s *Service) Status(ctx context.Context) (*models.NotificationStatus, error) {
	s.mu.RLock()
	config := s.currentConfig
	s.mu.RUnlock()

	if config == nil {
		return nil, utils.NewAppError(utils.ErrCodeInternal, "Notification service has no active config", "")
	}

	total, err := s.store.GetAlertCount(ctx, nil)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count alert history", err.Error())
	}

	gateStatus := s.gate.Status(config)

	return &models.NotificationStatus{
		Enabled:           config.Enabled,
		Config:            config.Clone(),
		TotalAlertsSent:   total,
		AlertsThisHour:    gateStatus.AlertsThisHour,
		LastAlertTime:     gateStatus.LastAlertTime,
		CooldownActive:    gateStatus.CooldownActive,
		CooldownRemaining: gateStatus.CooldownRemaining.Seconds(),
	}, nil
}

// GetStats returns a snapshot of dispatch statistics
func (s *Service) GetStats() *NotificationStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := *s.stats
	return &stats
}

func (s *Service) GetHealth() *NotificationHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	health := &NotificationHealth{
		Healthy: s.running,
	}
	if s.stats.LastError != nil {
		health.Error = *s.stats.LastError
	}
	return health
}

// recordRejection logs and counts a gate rejection
func (s *Service) recordRejection(reason string, context map[string]interface{}) {
	s.logger.LogGateRejection(reason, context)

	s.mu.Lock()
	s.stats.TotalRequests++
	s.stats.TotalRejected++
	s.mu.Unlock()

	if s.metricsManager != nil {
		s.metricsManager.GetPrometheusMetrics().RecordGateRejection(reason)
	}
}

// recordChannelSend counts one per-channel delivery attempt
func (s *Service) recordChannelSend(channel, status string, duration time.Duration) {
	if s.metricsManager == nil {
		return
	}
	s.metricsManager.GetPrometheusMetrics().RecordChannelSend(channel, status, duration)
}

// updateStats records the outcome of an admitted dispatch
func (s *Service) updateStats(success bool, failedTo []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.stats.TotalRequests++
	s.stats.LastDispatchTime = &now

	if success {
		s.stats.TotalDispatched++
		return
	}

	s.stats.TotalFailed++
	if len(failedTo) > 0 {
		errorStr := fmt.Sprintf("all channels failed: %s", strings.Join(failedTo, ", "))
		s.stats.LastError = &errorStr
		s.stats.LastErrorTime = &now
	}
}

// publishGateMetrics pushes the gate counters to the metrics gauges
func (s *Service) publishGateMetrics(config *models.NotificationConfig) {
	if s.metricsManager == nil {
		return
	}

	status := s.gate.Status(config)
	prom := s.metricsManager.GetPrometheusMetrics()
	prom.UpdateAlertsThisHour(status.AlertsThisHour)
	prom.UpdateCooldownActive(status.CooldownActive)
}

// failureResponse builds a failed response with empty channel lists
func failureResponse(message string) *models.NotificationResponse {
	return &models.NotificationResponse{
		Success:   false,
		Message:   message,
		SentTo:    []string{},
		FailedTo:  []string{},
		Timestamp: time.Now().UTC(),
	}
}
