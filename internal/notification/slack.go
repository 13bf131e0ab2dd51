package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// slackTimeout bounds a single webhook delivery
const slackTimeout = 10 * time.Second

// SlackSender delivers alerts to a Slack incoming webhook
type SlackSender struct {
	client *http.Client
	logger *NotificationLogger
}

// slackPayload is the incoming-webhook message body
type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackSender creates a new Slack sender
func NewSlackSender(logger *NotificationLogger) *SlackSender {
	return &SlackSender{
		client: &http.Client{
			Timeout: slackTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: logger,
	}
}

// Name returns the channel type
func (s *SlackSender) Name() models.ChannelType {
	return models.ChannelTypeSlack
}

// Send posts the alert to the configured Slack webhook. Delivery counts as
// successful only on HTTP 200.
func (s *SlackSender) Send(ctx context.Context, config *models.NotificationConfig, alert *models.AlertMessage) error {
	webhookURL := strings.TrimSpace(config.Slack.WebhookURL)
	if webhookURL == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Slack webhook URL is not configured", "")
	}

	payload := s.buildPayload(config, alert)
	body, err := json.Marshal(payload)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal Slack payload", err.Error())
	}

	s.logger.LogSlackAttempt(alert.ID)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create Slack request", err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "notify-service/1.0")
	if requestID, idErr := utils.GenerateID(); idErr == nil {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.LogSlackResponse(alert.ID, 0, time.Since(start), err)
		return utils.NewAppError(utils.ErrCodeExternal, "Slack webhook request failed", err.Error())
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, string(respBody))
		s.logger.LogSlackResponse(alert.ID, resp.StatusCode, time.Since(start), statusErr)
		return utils.NewAppError(utils.ErrCodeExternal, "Slack webhook rejected the message", statusErr.Error())
	}

	s.logger.LogSlackResponse(alert.ID, resp.StatusCode, time.Since(start), nil)
	return nil
}

// buildPayload renders the single-attachment Slack message
func (s *SlackSender) buildPayload(config *models.NotificationConfig, alert *models.AlertMessage) *slackPayload {
	attachment := slackAttachment{
		Color:  slackColorForLevel(alert.Level),
		Title:  alert.Title,
		Text:   alert.Message,
		Footer: "notify-service",
		Ts:     alert.Timestamp.Unix(),
	}

	if alert.ServiceName != nil {
		attachment.Fields = append(attachment.Fields, slackField{
			Title: "Service", Value: *alert.ServiceName, Short: true,
		})
	}
	if alert.ResourceType != nil {
		attachment.Fields = append(attachment.Fields, slackField{
			Title: "Resource", Value: *alert.ResourceType, Short: true,
		})
	}
	if alert.CurrentValue != nil {
		attachment.Fields = append(attachment.Fields, slackField{
			Title: "Current Value", Value: fmt.Sprintf("%.1f", *alert.CurrentValue), Short: true,
		})
	}
	if alert.ThresholdValue != nil {
		attachment.Fields = append(attachment.Fields, slackField{
			Title: "Threshold", Value: fmt.Sprintf("%.1f", *alert.ThresholdValue), Short: true,
		})
	}

	return &slackPayload{
		Channel:     config.Slack.Channel,
		Username:    config.Slack.Username,
		Attachments: []slackAttachment{attachment},
	}
}

// slackColorForLevel maps alert levels to attachment colors
func slackColorForLevel(level models.AlertLevel) string {
	switch level {
	case models.AlertLevelInfo:
		return "good"
	case models.AlertLevelWarning:
		return "warning"
	default:
		return "danger"
	}
}
