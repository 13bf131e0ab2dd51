package models

import (
	"fmt"
	"time"
)

// ChannelType defines a notification delivery channel
type ChannelType string

const (
	ChannelTypeLog     ChannelType = "log"
	ChannelTypeSlack   ChannelType = "slack"
	ChannelTypeEmail   ChannelType = "email"
	ChannelTypeWebhook ChannelType = "webhook"
)

// IsValid checks whether the channel type is a known one
func (c ChannelType) IsValid() bool {
	switch c {
	case ChannelTypeLog, ChannelTypeSlack, ChannelTypeEmail, ChannelTypeWebhook:
		return true
	}
	return false
}

// SlackSettings holds Slack webhook delivery settings
type SlackSettings struct {
	WebhookURL string `json:"webhook_url" mapstructure:"webhook_url"`
	Channel    string `json:"channel,omitempty" mapstructure:"channel"`
	Username   string `json:"username,omitempty" mapstructure:"username"`
}

// EmailSettings holds SMTP delivery settings
type EmailSettings struct {
	SMTPHost    string   `json:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort    int      `json:"smtp_port" mapstructure:"smtp_port"`
	Username    string   `json:"username" mapstructure:"username"`
	Password    string   `json:"password" mapstructure:"password"`
	FromAddress string   `json:"from_address" mapstructure:"from_address"`
	FromName    string   `json:"from_name,omitempty" mapstructure:"from_name"`
	Recipients  []string `json:"recipients" mapstructure:"recipients"`
	UseTLS      bool     `json:"use_tls" mapstructure:"use_tls"`
}

// NotificationConfig is the single active configuration document. Updates
// replace it wholesale: every change is persisted as a new snapshot row and
// the latest row wins.
type NotificationConfig struct {
	Enabled                    bool               `json:"enabled" mapstructure:"enabled"`
	Channels                   []ChannelType      `json:"channels" mapstructure:"channels"`
	Slack                      SlackSettings      `json:"slack" mapstructure:"slack"`
	Email                      EmailSettings      `json:"email" mapstructure:"email"`
	Thresholds                 map[string]float64 `json:"thresholds" mapstructure:"thresholds"`
	ResourceAlertsEnabled      bool               `json:"resource_alerts_enabled" mapstructure:"resource_alerts_enabled"`
	ServiceStatusAlertsEnabled bool               `json:"service_status_alerts_enabled" mapstructure:"service_status_alerts_enabled"`
	AlertCooldown              int                `json:"alert_cooldown" mapstructure:"alert_cooldown"`
	MaxAlertsPerHour           int                `json:"max_alerts_per_hour" mapstructure:"max_alerts_per_hour"`
}

// DefaultNotificationConfig returns the built-in configuration used when the
// store holds no snapshot yet
func DefaultNotificationConfig() *NotificationConfig {
	return &NotificationConfig{
		Enabled:  true,
		Channels: []ChannelType{ChannelTypeLog},
		Thresholds: map[string]float64{
			ResourceCPU:     80,
			ResourceMemory:  85,
			ResourceDisk:    90,
			ResourceNetwork: 70,
		},
		ResourceAlertsEnabled:      true,
		ServiceStatusAlertsEnabled: true,
		AlertCooldown:              300,
		MaxAlertsPerHour:           10,
	}
}

// Validate checks the configuration document. Unknown channel names are
// accepted here and surface as per-channel failures at dispatch time.
func (c *NotificationConfig) Validate() error {
	if c.AlertCooldown < 0 {
		return fmt.Errorf("alert_cooldown must not be negative")
	}
	if c.MaxAlertsPerHour < 0 {
		return fmt.Errorf("max_alerts_per_hour must not be negative")
	}
	for resource, threshold := range c.Thresholds {
		if threshold < 0 {
			return fmt.Errorf("threshold for %s must not be negative", resource)
		}
	}
	for _, recipient := range c.Email.Recipients {
		if recipient == "" {
			return fmt.Errorf("email recipients must not be empty strings")
		}
	}
	return nil
}

// ThresholdFor returns the configured threshold for a resource type
func (c *NotificationConfig) ThresholdFor(resource string) (float64, bool) {
	threshold, ok := c.Thresholds[resource]
	return threshold, ok
}

// CooldownDuration returns the cooldown window as a duration
func (c *NotificationConfig) CooldownDuration() time.Duration {
	return time.Duration(c.AlertCooldown) * time.Second
}

// Clone returns a deep copy of the configuration
func (c *NotificationConfig) Clone() *NotificationConfig {
	clone := *c
	clone.Channels = append([]ChannelType(nil), c.Channels...)
	clone.Email.Recipients = append([]string(nil), c.Email.Recipients...)
	if c.Thresholds != nil {
		clone.Thresholds = make(map[string]float64, len(c.Thresholds))
		for resource, threshold := range c.Thresholds {
			clone.Thresholds[resource] = threshold
		}
	}
	return &clone
}
