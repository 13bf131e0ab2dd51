// File: internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/notify-service/internal/models"
)

// Storage defines the interface for notification persistence
type Storage interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Notification config operations. Configs are insert-only snapshots;
	// the latest row by updated_at is authoritative.
	SaveConfig(ctx context.Context, config *models.NotificationConfig) error
	LoadLatestConfig(ctx context.Context) (*models.NotificationConfig, error)

	// Alert history operations
	SaveAlert(ctx context.Context, alert *models.AlertMessage) error
	GetAlerts(ctx context.Context, filter *models.AlertFilter) ([]*models.AlertMessage, error)
	GetAlertCount(ctx context.Context, filter *models.AlertFilter) (int64, error)
	ClearAlerts(ctx context.Context) (int64, error)

	// Maintenance operations
	GetStorageStats(ctx context.Context) (*StorageStats, error)
	Cleanup(ctx context.Context, retentionDays int) error
	Vacuum() error

	// Health
	GetHealth() *StorageHealth
}

// StorageConfig contains storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
	RetentionDays    int           `json:"retention_days"`
}

// StorageStats contains storage statistics
type StorageStats struct {
	StorageType   string           `json:"storage_type"`
	TotalAlerts   int64            `json:"total_alerts"`
	TotalConfigs  int64            `json:"total_configs"`
	AlertsByLevel map[string]int64 `json:"alerts_by_level"`
	OldestAlert   *time.Time       `json:"oldest_alert,omitempty"`
	NewestAlert   *time.Time       `json:"newest_alert,omitempty"`
	DatabaseSize  int64            `json:"database_size_bytes"`
	LastCleanup   *time.Time       `json:"last_cleanup,omitempty"`
}

// StorageHealth contains storage health information
type StorageHealth struct {
	StorageType string            `json:"storage_type"`
	Healthy     bool              `json:"healthy"`
	Details     map[string]string `json:"details,omitempty"`
	LastPing    time.Time         `json:"last_ping"`
}
