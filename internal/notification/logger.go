// File: internal/notification/logger.go
package notification

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// NotificationLogger handles logging for notification operations
type NotificationLogger struct {
	logger   *logrus.Logger
	logLevel logrus.Level
	context  map[string]interface{}
}

// NewNotificationLogger creates a new notification logger
func NewNotificationLogger(logLevel string) *NotificationLogger {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}

	return &NotificationLogger{
		logger:   utils.GetLogger(),
		logLevel: level,
		context:  make(map[string]interface{}),
	}
}

// WithContext adds context to the logger
func (nl *NotificationLogger) WithContext(context map[string]interface{}) *NotificationLogger {
	newLogger := &NotificationLogger{
		logger:   nl.logger,
		logLevel: nl.logLevel,
		context:  make(map[string]interface{}),
	}

	// Copy existing context
	for k, v := range nl.context {
		newLogger.context[k] = v
	}

	// Add new context
	for k, v := range context {
		newLogger.context[k] = v
	}

	return newLogger
}

// WithField adds a single field to the logger context
func (nl *NotificationLogger) WithField(key string, value interface{}) *NotificationLogger {
	return nl.WithContext(map[string]interface{}{key: value})
}

// Debug logs a debug message
func (nl *NotificationLogger) Debug(message string, context ...map[string]interface{}) {
	nl.log(logrus.DebugLevel, message, context...)
}

// Info logs an info message
func (nl *NotificationLogger) Info(message string, context ...map[string]interface{}) {
	nl.log(logrus.InfoLevel, message, context...)
}

// Warn logs a warning message
func (nl *NotificationLogger) Warn(message string, context ...map[string]interface{}) {
	nl.log(logrus.WarnLevel, message, context...)
}

// Error logs an error message
func (nl *NotificationLogger) Error(message string, context ...map[string]interface{}) {
	nl.log(logrus.ErrorLevel, message, context...)
}

// log is the internal logging method
func (nl *NotificationLogger) log(level logrus.Level, message string, context ...map[string]interface{}) {
	if !nl.logger.IsLevelEnabled(level) {
		return
	}

	// Merge context
	mergedContext := make(map[string]interface{})

	// Add base context
	for k, v := range nl.context {
		mergedContext[k] = v
	}

	// Add method context
	for _, ctx := range context {
		for k, v := range ctx {
			mergedContext[k] = v
		}
	}

	// Add component identifier
	mergedContext["component"] = "notification"

	entry := nl.logger.WithFields(logrus.Fields(mergedContext))

	switch level {
	case logrus.DebugLevel:
		entry.Debug(message)
	case logrus.InfoLevel:
		entry.Info(message)
	case logrus.WarnLevel:
		entry.Warn(message)
	case logrus.ErrorLevel:
		entry.Error(message)
	}
}

// LogDispatchAttempt logs the start of an accepted alert dispatch
func (nl *NotificationLogger) LogDispatchAttempt(alertID string, level models.AlertLevel, channels []models.ChannelType) {
	names := make([]string, 0, len(channels))
	for _, channel := range channels {
		names = append(names, string(channel))
	}

	nl.Info("Alert dispatch started", map[string]interface{}{
		"alert_id": alertID,
		"level":    string(level),
		"channels": strings.Join(names, ", "),
	})
}

// LogDispatchResult logs the outcome of an alert dispatch
func (nl *NotificationLogger) LogDispatchResult(alertID string, sentTo, failedTo []string, duration time.Duration) {
	context := map[string]interface{}{
		"alert_id":    alertID,
		"sent_to":     strings.Join(sentTo, ", "),
		"failed_to":   strings.Join(failedTo, ", "),
		"duration_ms": duration.Milliseconds(),
	}

	if len(sentTo) > 0 {
		nl.Info("Alert dispatch completed", context)
	} else {
		nl.Error("Alert dispatch failed on all channels", context)
	}
}

// LogGateRejection logs an alert rejected before dispatch
func (nl *NotificationLogger) LogGateRejection(reason string, context map[string]interface{}) {
	merged := map[string]interface{}{"reason": reason}
	for k, v := range context {
		merged[k] = v
	}
	nl.Debug("Alert rejected", merged)
}

// LogChannelResult logs a per-channel delivery outcome
func (nl *NotificationLogger) LogChannelResult(channel, alertID string, err error, duration time.Duration) {
	context := map[string]interface{}{
		"channel":     channel,
		"alert_id":    alertID,
		"duration_ms": duration.Milliseconds(),
	}

	if err != nil {
		context["error"] = err.Error()
		nl.Warn("Channel delivery failed", context)
	} else {
		nl.Debug("Channel delivery succeeded", context)
	}
}

// LogSlackAttempt logs a Slack webhook attempt
func (nl *NotificationLogger) LogSlackAttempt(alertID string) {
	nl.Debug("Slack webhook attempt started", map[string]interface{}{
		"alert_id": alertID,
	})
}

// LogSlackResponse logs a Slack webhook response
func (nl *NotificationLogger) LogSlackResponse(alertID string, statusCode int, duration time.Duration, err error) {
	context := map[string]interface{}{
		"alert_id":    alertID,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	if err != nil {
		context["error"] = err.Error()
		nl.Error("Slack webhook failed", context)
	} else {
		nl.Info("Slack webhook completed", context)
	}
}

// LogEmailAttempt logs an email attempt
func (nl *NotificationLogger) LogEmailAttempt(to []string, subject string) {
	nl.Debug("Email attempt started", map[string]interface{}{
		"to":      strings.Join(to, ", "),
		"subject": subject,
	})
}

// LogEmailResult logs an email result
func (nl *NotificationLogger) LogEmailResult(to []string, subject string, success bool, duration time.Duration, err error) {
	context := map[string]interface{}{
		"to":          strings.Join(to, ", "),
		"subject":     subject,
		"success":     success,
		"duration_ms": duration.Milliseconds(),
	}

	if err != nil {
		context["error"] = err.Error()
		nl.Error("Email failed", context)
	} else {
		nl.Info("Email sent successfully", context)
	}
}

// LogConfigurationChange logs configuration changes
func (nl *NotificationLogger) LogConfigurationChange(changes map[string]interface{}) {
	nl.Info("Notification configuration changed", changes)
}

// LogHealthCheck logs health check results
func (nl *NotificationLogger) LogHealthCheck(component string, healthy bool, issues []string) {
	context := map[string]interface{}{
		"component": component,
		"healthy":   healthy,
	}

	if len(issues) > 0 {
		context["issues"] = strings.Join(issues, ", ")
	}

	if healthy {
		nl.Debug("Health check passed", context)
	} else {
		nl.Warn("Health check failed", context)
	}
}

// GetLogLevel returns the current log level
func (nl *NotificationLogger) GetLogLevel() logrus.Level {
	return nl.logLevel
}

// SetLogLevel sets the log level
func (nl *NotificationLogger) SetLogLevel(level logrus.Level) {
	nl.logLevel = level
	nl.logger.SetLevel(level)
}
