package notification

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// LogSender delivers alerts to the process log. It needs no configuration
// and cannot fail, which makes it the always-available fallback channel.
type LogSender struct {
	logger *logrus.Logger
}

// NewLogSender creates a new log channel sender
func NewLogSender() *LogSender {
	return &LogSender{logger: utils.GetLogger()}
}

// Name returns the channel type
func (l *LogSender) Name() models.ChannelType {
	return models.ChannelTypeLog
}

// Send writes the alert to the process log at the logrus level matching
// the alert level
func (l *LogSender) Send(ctx context.Context, config *models.NotificationConfig, alert *models.AlertMessage) error {
	fields := logrus.Fields{
		"alert_id": alert.ID,
		"level":    string(alert.Level),
		"title":    alert.Title,
	}
	if alert.ServiceName != nil {
		fields["service_name"] = *alert.ServiceName
	}
	if alert.ResourceType != nil {
		fields["resource_type"] = *alert.ResourceType
	}
	if alert.CurrentValue != nil {
		fields["current_value"] = *alert.CurrentValue
	}
	if alert.ThresholdValue != nil {
		fields["threshold_value"] = *alert.ThresholdValue
	}

	entry := l.logger.WithFields(fields)
	switch alert.Level {
	case models.AlertLevelInfo:
		entry.Info(alert.Message)
	case models.AlertLevelWarning:
		entry.Warn(alert.Message)
	default:
		entry.Error(alert.Message)
	}

	return nil
}
