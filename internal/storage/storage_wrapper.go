package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/notify-service/internal/metrics"
	"github.com/smartdevs17/notify-service/internal/models"
)

// StorageWithMetrics wraps a storage implementation with metrics
type StorageWithMetrics struct {
	Storage
	metricsManager *metrics.Manager
}

// NewStorageWithMetrics creates a storage wrapper with metrics
func NewStorageWithMetrics(storage Storage, metricsManager *metrics.Manager) *StorageWithMetrics {
	return &StorageWithMetrics{
		Storage:        storage,
		metricsManager: metricsManager,
	}
}

func (s *StorageWithMetrics) record(operation, table string, start time.Time, err error) {
	if s.metricsManager == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metricsManager.GetPrometheusMetrics().RecordDatabaseOperation(
		operation,
		table,
		status,
		time.Since(start),
	)
}

// SaveConfig saves a config snapshot and records metrics
func (s *StorageWithMetrics) SaveConfig(ctx context.Context, config *models.NotificationConfig) error {
	start := time.Now()
	err := s.Storage.SaveConfig(ctx, config)
	s.record("insert", "notification_configs", start, err)
	return err
}

// LoadLatestConfig loads the latest config snapshot and records metrics
func (s *StorageWithMetrics) LoadLatestConfig(ctx context.Context) (*models.NotificationConfig, error) {
	start := time.Now()
	config, err := s.Storage.LoadLatestConfig(ctx)
	s.record("select", "notification_configs", start, err)
	return config, err
}

// SaveAlert saves an alert record and records metrics
func (s *StorageWithMetrics) SaveAlert(ctx context.Context, alert *models.AlertMessage) error {
	start := time.Now()
	err := s.Storage.SaveAlert(ctx, alert)
	s.record("insert", "alert_history", start, err)
	return err
}

// GetAlerts queries alert history and records metrics
func (s *StorageWithMetrics) GetAlerts(ctx context.Context, filter *models.AlertFilter) ([]*models.AlertMessage, error) {
	start := time.Now()
	alerts, err := s.Storage.GetAlerts(ctx, filter)
	s.record("select", "alert_history", start, err)
	return alerts, err
}

// GetAlertCount counts alert history and records metrics
func (s *StorageWithMetrics) GetAlertCount(ctx context.Context, filter *models.AlertFilter) (int64, error) {
	start := time.Now()
	count, err := s.Storage.GetAlertCount(ctx, filter)
	s.record("select", "alert_history", start, err)
	return count, err
}

// ClearAlerts clears alert history and records metrics
func (s *StorageWithMetrics) ClearAlerts(ctx context.Context) (int64, error) {
	start := time.Now()
	deleted, err := s.Storage.ClearAlerts(ctx)
	s.record("delete", "alert_history", start, err)
	return deleted, err
}

// Cleanup removes expired alerts and records metrics
func (s *StorageWithMetrics) Cleanup(ctx context.Context, retentionDays int) error {
	start := time.Now()
	err := s.Storage.Cleanup(ctx, retentionDays)
	s.record("delete", "alert_history", start, err)
	return err
}
