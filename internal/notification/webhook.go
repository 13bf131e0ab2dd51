// File: internal/notification/webhook.go
package notification

import (
	"context"

	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// WebhookSender is the generic webhook channel. The channel type is accepted
// in configuration, but no delivery target format has been defined for it, so
// every send reports a failure until one is.
type WebhookSender struct{}

// NewWebhookSender creates a new webhook sender
func NewWebhookSender() *WebhookSender {
	return &WebhookSender{}
}

// Name returns the channel type
func (ws *WebhookSender) Name() models.ChannelType {
	return models.ChannelTypeWebhook
}

// Send always fails: generic webhook delivery is not implemented
func (ws *WebhookSender) Send(ctx context.Context, config *models.NotificationConfig, alert *models.AlertMessage) error {
	return utils.NewAppError(utils.ErrCodeConfiguration, "Generic webhook channel is not implemented", "")
}
