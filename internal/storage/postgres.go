package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// PostgreSQLStorage implements Storage interface using PostgreSQL
type PostgreSQLStorage struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
func NewPostgreSQLStorage(config *StorageConfig) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetPostgresMigrations(),
	}
}

// Connect establishes database connection
func (s *PostgreSQLStorage) Connect() error {
	db, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return utils.NewAppError(utils.ErrCodeConnection, "Failed to reach PostgreSQL database", err.Error())
	}

	s.db = db
	s.logger.Info("PostgreSQL database connected")

	return nil
}

// Close closes the database connection
func (s *PostgreSQLStorage) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("PostgreSQL database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *PostgreSQLStorage) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations and records applied versions
func (s *PostgreSQLStorage) Migrate() error {
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

		record := `INSERT INTO migrations (version, description, checksum) VALUES ($1, $2, $3) ON CONFLICT (version) DO NOTHING`
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
func (s *PostgreSQLStorage) SaveConfig(ctx context.Context, config *models.NotificationConfig) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	data, err := json.Marshal(config)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeValidation, "Failed to serialize notification config", err.Error())
	}

	now := time.Now().UTC()
	query := `INSERT INTO notification_configs (config_data, created_at, updated_at) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, string(data), now, now); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save notification config", err.Error())
	}

	return nil
}

// LoadLatestConfig returns the most recent configuration snapshot, or nil
// when no snapshot has been stored yet
func (s *PostgreSQLStorage) LoadLatestConfig(ctx context.Context) (*models.NotificationConfig, error) {
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
func (s *PostgreSQLStorage) SaveAlert(ctx context.Context, alert *models.AlertMessage) error {
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
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

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
func (s *PostgreSQLStorage) GetAlerts(ctx context.Context, filter *models.AlertFilter) ([]*models.AlertMessage, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	query := `
		SELECT id, timestamp, level, title, message, service_name, resource_type,
		       current_value, threshold_value, metadata, sent_to, failed_to
		FROM alert_history`

	where, args := buildAlertFilter(filter, "$")
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
func (s *PostgreSQLStorage) GetAlertCount(ctx context.Context, filter *models.AlertFilter) (int64, error) {
	if s.db == nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	query := `SELECT COUNT(*) FROM alert_history`
	where, args := buildAlertFilter(filter, "$")
	query += where

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count alerts", err.Error())
	}

	return count, nil
}

// ClearAlerts deletes all alert history records
func (s *PostgreSQLStorage) ClearAlerts(ctx context.Context) (int64, error) {
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

// GetStorageStats returns storage statistics
func (s *PostgreSQLStorage) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	stats := &StorageStats{
		StorageType:   "postgres",
		AlertsByLevel: make(map[string]int64),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alert_history`).Scan(&stats.TotalAlerts); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count alerts", err.Error())
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_configs`).Scan(&stats.TotalConfigs); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count configs", err.Error())
	}

	rows, err := s.db.QueryContext(ctx, `SELECT level, COUNT(*) FROM alert_history GROUP BY level`)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count alerts by level", err.Error())
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan level count", err.Error())
		}
		stats.AlertsByLevel[level] = count
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to iterate level counts", err.Error())
	}

	var oldest, newest sql.NullTime
	if err := s.db.QueryRowContext(ctx,
		`SELECT MIN(timestamp), MAX(timestamp) FROM alert_history`).Scan(&oldest, &newest); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read alert time range", err.Error())
	}
	if oldest.Valid {
		stats.OldestAlert = &oldest.Time
	}
	if newest.Valid {
		stats.NewestAlert = &newest.Time
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT pg_database_size(current_database())`).Scan(&stats.DatabaseSize); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read database size", err.Error())
	}

	var lastCleanup string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM system_state WHERE key = 'last_cleanup'`).Scan(&lastCleanup)
	if err != nil && err != sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read last cleanup time", err.Error())
	}
	if err == nil {
		if parsed, perr := time.Parse(time.RFC3339, lastCleanup); perr == nil {
			stats.LastCleanup = &parsed
		}
	}

	return stats, nil
}

// Cleanup removes alert history older than the retention window
func (s *PostgreSQLStorage) Cleanup(ctx context.Context, retentionDays int) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	if retentionDays <= 0 {
		return utils.NewAppError(utils.ErrCodeValidation, "Retention days must be positive", "")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to begin cleanup transaction", err.Error())
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM alert_history WHERE timestamp < $1`, cutoff)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to delete expired alerts", err.Error())
	}
	deleted, _ := result.RowsAffected()

	now := time.Now().UTC()
	upsert := `
		INSERT INTO system_state (key, value, updated_at) VALUES ('last_cleanup', $1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := tx.ExecContext(ctx, upsert, now.Format(time.RFC3339), now); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to record cleanup time", err.Error())
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to commit cleanup transaction", err.Error())
	}

	s.logger.WithFields(logrus.Fields{
		"deleted":        deleted,
		"retention_days": retentionDays,
		"cutoff":         cutoff.Format(time.RFC3339),
	}).Info("Alert history cleanup completed")

	return nil
}

// Vacuum reclaims unused database space
func (s *PostgreSQLStorage) Vacuum() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	if _, err := s.db.Exec("VACUUM alert_history"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to vacuum database", err.Error())
	}

	s.logger.Info("Database vacuum completed")
	return nil
}

// GetHealth returns storage health information
func (s *PostgreSQLStorage) GetHealth() *StorageHealth {
	healthy := s.Ping() == nil

	details := map[string]string{}
	if s.db != nil {
		stats := s.db.Stats()
		details["open_connections"] = fmt.Sprintf("%d", stats.OpenConnections)
		details["in_use"] = fmt.Sprintf("%d", stats.InUse)
	}

	return &StorageHealth{
		StorageType: "postgres",
		Healthy:     healthy,
		Details:     details,
		LastPing:    time.Now(),
	}
}

// marshalAlertFields serializes the JSON columns of an alert record
func (s *PostgreSQLStorage) marshalAlertFields(alert *models.AlertMessage) (string, string, string, error) {
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
func (s *PostgreSQLStorage) scanAlert(rows *sql.Rows) (*models.AlertMessage, error) {
	var alert models.AlertMessage
	var level string
	var serviceName, resourceType sql.NullString
	var currentValue, thresholdValue sql.NullFloat64
	var metadata, sentTo, failedTo []byte

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

	if err := json.Unmarshal(metadata, &alert.Metadata); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sentTo, &alert.SentTo); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(failedTo, &alert.FailedTo); err != nil {
		return nil, err
	}

	return &alert, nil
}
