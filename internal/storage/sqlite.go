// File: internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// SQLiteStorage implements Storage interface using SQLite
type SQLiteStorage struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetSQLiteMigrations(),
	}
}

// Connect establishes database connection
func (s *SQLiteStorage) Connect() error {
	// Ensure directory exists
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite database", err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable foreign keys", err.Error())
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("SQLite database connected")

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("SQLite database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *SQLiteStorage) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations and records applied versions
func (s *SQLiteStorage) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	s.logger.Info("Starting database migrations")

	for _, migration := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Debug("Applying migration")

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version),
				err.Error())
		}

		record := `INSERT OR IGNORE INTO migrations (version, description, checksum) VALUES (?, ?, ?)`
		if _, err := s.db.Exec(record, migration.Version, migration.Description, utils.HashString(migration.SQL)); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Failed to record migration %s", migration.Version),
				err.Error())
		}
	}

	s.logger.Info("Database migrations completed")
	return nil
}

// SaveConfig inserts a new configuration snapshot row
func (s *SQLiteStorage) SaveConfig(ctx context.Context, config *models.NotificationConfig) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	data, err := json.Marshal(config)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeValidation, "Failed to serialize notification config", err.Error())
	}

	now := time.Now().UTC()
	query := `INSERT INTO notification_configs (config_data, created_at, updated_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, string(data), now, now); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save notification config", err.Error())
	}

	return nil
}

// LoadLatestConfig returns the most recent configuration snapshot, or nil
// when no snapshot has been stored yet
func (s *SQLiteStorage) LoadLatestConfig(ctx context.Context) (*models.NotificationConfig, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	query := `SELECT config_data FROM notification_configs ORDER BY updated_at DESC, id DESC LIMIT 1`

	var data string
	err := s.db.QueryRowContext(ctx, query).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to load notification config", err.Error())
	}

	var config models.NotificationConfig
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to decode notification config", err.Error())
	}

	return &config, nil
}

// SaveAlert inserts a single alert history record
func (s *SQLiteStorage) SaveAlert(ctx context.Context, alert *models.AlertMessage) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	metadata, sentTo, failedTo, err := s.marshalAlertFields(alert)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeValidation, "Failed to serialize alert fields", err.Error())
	}

	query := `
		INSERT INTO alert_history (
			id, timestamp, level, title, message, service_name, resource_type,
			current_value, threshold_value, metadata, sent_to, failed_to
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		alert.ID,
		alert.Timestamp,
		string(alert.Level),
		alert.Title,
		alert.Message,
		alert.ServiceName,
		alert.ResourceType,
		alert.CurrentValue,
		alert.ThresholdValue,
		metadata,
		sentTo,
		failedTo,
	)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save alert", err.Error())
	}

	return nil
}

// GetAlerts returns alert history records matching the filter, newest first
func (s *SQLiteStorage) GetAlerts(ctx context.Context, filter *models.AlertFilter) ([]*models.AlertMessage, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	query := `
		SELECT id, timestamp, level, title, message, service_name, resource_type,
		       current_value, threshold_value, metadata, sent_to, failed_to
		FROM alert_history`

	where, args := buildAlertFilter(filter, "?")
	query += where + " ORDER BY timestamp DESC"

	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query alerts", err.Error())
	}
	defer rows.Close()

	var alerts []*models.AlertMessage
	for rows.Next() {
		alert, err := s.scanAlert(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan alert row", err.Error())
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to iterate alert rows", err.Error())
	}

	return alerts, nil
}

// GetAlertCount returns the number of alert records matching the filter
func (s *SQLiteStorage) GetAlertCount(ctx context.Context, filter *models.AlertFilter) (int64, error) {
	if s.db == nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	query := `SELECT COUNT(*) FROM alert_history`
	where, args := buildAlertFilter(filter, "?")
	query += where

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count alerts", err.Error())
	}

	return count, nil
}

// ClearAlerts deletes all alert history records
func (s *SQLiteStorage) ClearAlerts(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM alert_history`)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to clear alert history", err.Error())
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read affected rows", err.Error())
	}

	s.logger.WithField("deleted", deleted).Info("Alert history cleared")
	return deleted, nil
}

// GetHealth returns storage health information
func (s *SQLiteStorage) GetHealth() *StorageHealth {
	healthy := s.Ping() == nil

	details := map[string]string{
		"path": s.config.ConnectionString,
	}
	if s.db != nil {
		stats := s.db.Stats()
		details["open_connections"] = fmt.Sprintf("%d", stats.OpenConnections)
	}

	return &StorageHealth{
		StorageType: "sqlite",
		Healthy:     healthy,
		Details:     details,
		LastPing:    time.Now(),
	}
}

// marshalAlertFields serializes the JSON columns of an alert record
func (s *SQLiteStorage) marshalAlertFields(alert *models.AlertMessage) (string, string, string, error) {
	metadata := alert.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	sentTo := alert.SentTo
	if sentTo == nil {
		sentTo = []string{}
	}
	failedTo := alert.FailedTo
	if failedTo == nil {
		failedTo = []string{}
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", "", "", err
	}
	sentToJSON, err := json.Marshal(sentTo)
	if err != nil {
		return "", "", "", err
	}
	failedToJSON, err := json.Marshal(failedTo)
	if err != nil {
		return "", "", "", err
	}

	return string(metadataJSON), string(sentToJSON), string(failedToJSON), nil
}

// scanAlert scans a single alert history row
func (s *SQLiteStorage) scanAlert(rows *sql.Rows) (*models.AlertMessage, error) {
	var alert models.AlertMessage
	var level string
	var serviceName, resourceType sql.NullString
	var currentValue, thresholdValue sql.NullFloat64
	var metadata, sentTo, failedTo string

	err := rows.Scan(
		&alert.ID,
		&alert.Timestamp,
		&level,
		&alert.Title,
		&alert.Message,
		&serviceName,
		&resourceType,
		&currentValue,
		&thresholdValue,
		&metadata,
		&sentTo,
		&failedTo,
	)
	if err != nil {
		return nil, err
	}

	alert.Level = models.AlertLevel(level)
	if serviceName.Valid {
		alert.ServiceName = &serviceName.String
	}
	if resourceType.Valid {
		alert.ResourceType = &resourceType.String
	}
	if currentValue.Valid {
		alert.CurrentValue = &currentValue.Float64
	}
	if thresholdValue.Valid {
		alert.ThresholdValue = &thresholdValue.Float64
	}

	if err := json.Unmarshal([]byte(metadata), &alert.Metadata); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sentTo), &alert.SentTo); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(failedTo), &alert.FailedTo); err != nil {
		return nil, err
	}

	return &alert, nil
}

// buildAlertFilter builds the WHERE clause for alert queries. The
// placeholder argument is "?" for SQLite and "$" for PostgreSQL-style
// positional parameters.
func buildAlertFilter(filter *models.AlertFilter, placeholder string) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}

	next := func() string {
		if placeholder == "?" {
			return "?"
		}
		return fmt.Sprintf("$%d", len(args)+1)
	}

	if filter.Level != nil {
		conditions = append(conditions, fmt.Sprintf("level = %s", next()))
		args = append(args, string(*filter.Level))
	}
	if filter.ServiceName != nil {
		conditions = append(conditions, fmt.Sprintf("service_name = %s", next()))
		args = append(args, *filter.ServiceName)
	}

	if len(conditions) == 0 {
		return "", nil
	}

	where := " WHERE " + conditions[0]
	for _, condition := range conditions[1:] {
		where += " AND " + condition
	}
	return where, args
}
