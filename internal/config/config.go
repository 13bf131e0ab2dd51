// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/smartdevs17/notify-service/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Monitor       MonitorConfig       `mapstructure:"monitor"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// StorageConfig contains storage backend configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"`
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
	RetentionDays    int           `mapstructure:"retention_days"`
}

// SlackConfig contains the Slack seed settings
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
}

// EmailConfig contains the SMTP seed settings
type EmailConfig struct {
	SMTPHost    string   `mapstructure:"smtp_host"`
	SMTPPort    int      `mapstructure:"smtp_port"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	Recipients  []string `mapstructure:"recipients"`
	UseTLS      bool     `mapstructure:"use_tls"`
}

// NotificationsConfig seeds the notification configuration document used
// when the store holds no snapshot yet
type NotificationsConfig struct {
	Enabled                    bool               `mapstructure:"enabled"`
	Channels                   []string           `mapstructure:"channels"`
	Slack                      SlackConfig        `mapstructure:"slack"`
	Email                      EmailConfig        `mapstructure:"email"`
	Thresholds                 map[string]float64 `mapstructure:"thresholds"`
	ResourceAlertsEnabled      bool               `mapstructure:"resource_alerts_enabled"`
	ServiceStatusAlertsEnabled bool               `mapstructure:"service_status_alerts_enabled"`
	AlertCooldown              int                `mapstructure:"alert_cooldown"`
	MaxAlertsPerHour           int                `mapstructure:"max_alerts_per_hour"`
}

// MonitorConfig contains threshold monitor configuration
type MonitorConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/notify-service")
	}

	viper.SetEnvPrefix("NOTIFY_SERVICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file found; rely on defaults and environment
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides applies direct environment overrides for secrets
func applyEnvOverrides(config *Config) {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		config.Storage.Type = "postgres"
		config.Storage.ConnectionString = databaseURL
	}
	if webhookURL := os.Getenv("SLACK_WEBHOOK_URL"); webhookURL != "" {
		config.Notifications.Slack.WebhookURL = webhookURL
	}
	if username := os.Getenv("SMTP_USERNAME"); username != "" {
		config.Notifications.Email.Username = username
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		config.Notifications.Email.Password = password
	}
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "notify-service")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Storage defaults
	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.connection_string", "./data/notifications.db")
	viper.SetDefault("storage.max_connections", 10)
	viper.SetDefault("storage.max_idle_time", "5m")
	viper.SetDefault("storage.retention_days", 30)

	// Notification defaults
	viper.SetDefault("notifications.enabled", true)
	viper.SetDefault("notifications.channels", []string{"log"})
	viper.SetDefault("notifications.slack.webhook_url", "")
	viper.SetDefault("notifications.slack.channel", "")
	viper.SetDefault("notifications.slack.username", "notify-service")
	viper.SetDefault("notifications.email.smtp_host", "")
	viper.SetDefault("notifications.email.smtp_port", 587)
	viper.SetDefault("notifications.email.username", "")
	viper.SetDefault("notifications.email.password", "")
	viper.SetDefault("notifications.email.from_address", "")
	viper.SetDefault("notifications.email.from_name", "Notification Service")
	viper.SetDefault("notifications.email.recipients", []string{})
	viper.SetDefault("notifications.email.use_tls", false)
	viper.SetDefault("notifications.thresholds.cpu", 80.0)
	viper.SetDefault("notifications.thresholds.memory", 85.0)
	viper.SetDefault("notifications.thresholds.disk", 90.0)
	viper.SetDefault("notifications.thresholds.network", 70.0)
	viper.SetDefault("notifications.resource_alerts_enabled", true)
	viper.SetDefault("notifications.service_status_alerts_enabled", true)
	viper.SetDefault("notifications.alert_cooldown", 300)
	viper.SetDefault("notifications.max_alerts_per_hour", 10)

	// Monitor defaults
	viper.SetDefault("monitor.heartbeat_interval", "60s")

	// Server defaults
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.file", "")
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Type) {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("storage type must be sqlite or postgres, got %q", c.Storage.Type)
	}

	if c.Storage.ConnectionString == "" {
		return fmt.Errorf("storage connection string is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}

	if c.Notifications.AlertCooldown < 0 {
		return fmt.Errorf("notifications alert_cooldown must not be negative")
	}

	if c.Notifications.MaxAlertsPerHour < 0 {
		return fmt.Errorf("notifications max_alerts_per_hour must not be negative")
	}

	for resource, threshold := range c.Notifications.Thresholds {
		if threshold < 0 {
			return fmt.Errorf("notifications threshold for %s must not be negative", resource)
		}
	}

	if c.Monitor.HeartbeatInterval <= 0 {
		return fmt.Errorf("monitor heartbeat_interval must be positive")
	}

	return nil
}

// ToModel converts the seed section into the runtime configuration document
func (n *NotificationsConfig) ToModel() *models.NotificationConfig {
	channels := make([]models.ChannelType, 0, len(n.Channels))
	for _, channel := range n.Channels {
		channels = append(channels, models.ChannelType(strings.ToLower(channel)))
	}

	thresholds := make(map[string]float64, len(n.Thresholds))
	for resource, threshold := range n.Thresholds {
		thresholds[resource] = threshold
	}

	return &models.NotificationConfig{
		Enabled:  n.Enabled,
		Channels: channels,
		Slack: models.SlackSettings{
			WebhookURL: n.Slack.WebhookURL,
			Channel:    n.Slack.Channel,
			Username:   n.Slack.Username,
		},
		Email: models.EmailSettings{
			SMTPHost:    n.Email.SMTPHost,
			SMTPPort:    n.Email.SMTPPort,
			Username:    n.Email.Username,
			Password:    n.Email.Password,
			FromAddress: n.Email.FromAddress,
			FromName:    n.Email.FromName,
			Recipients:  append([]string(nil), n.Email.Recipients...),
			UseTLS:      n.Email.UseTLS,
		},
		Thresholds:                 thresholds,
		ResourceAlertsEnabled:      n.ResourceAlertsEnabled,
		ServiceStatusAlertsEnabled: n.ServiceStatusAlertsEnabled,
		AlertCooldown:              n.AlertCooldown,
		MaxAlertsPerHour:           n.MaxAlertsPerHour,
	}
}
