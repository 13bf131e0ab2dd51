package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/notify-service/pkg/utils"
)

// GetStorageStats returns storage statistics
func (s *SQLiteStorage) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	stats := &StorageStats{
		StorageType:   "sqlite",
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

	// Direct column selects keep the DATETIME decltype so the driver
	// returns time.Time; aggregates like MIN() would come back as text.
	var oldest time.Time
	err = s.db.QueryRowContext(ctx, `SELECT timestamp FROM alert_history ORDER BY timestamp ASC LIMIT 1`).Scan(&oldest)
	if err != nil && err != sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read oldest alert", err.Error())
	}
	if err == nil {
		stats.OldestAlert = &oldest
	}

	var newest time.Time
	err = s.db.QueryRowContext(ctx, `SELECT timestamp FROM alert_history ORDER BY timestamp DESC LIMIT 1`).Scan(&newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read newest alert", err.Error())
	}
	if err == nil {
		stats.NewestAlert = &newest
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`).Scan(&stats.DatabaseSize); err != nil {
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
func (s *SQLiteStorage) Cleanup(ctx context.Context, retentionDays int) error {
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

	result, err := tx.ExecContext(ctx, `DELETE FROM alert_history WHERE timestamp < ?`, cutoff)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to delete expired alerts", err.Error())
	}
	deleted, _ := result.RowsAffected()

	now := time.Now().UTC()
	upsert := `
		INSERT INTO system_state (key, value, updated_at) VALUES ('last_cleanup', ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
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
func (s *SQLiteStorage) Vacuum() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	if _, err := s.db.Exec("VACUUM"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to vacuum database", err.Error())
	}

	s.logger.Info("Database vacuum completed")
	return nil
}

// GetDatabaseInfo returns SQLite runtime information
func (s *SQLiteStorage) GetDatabaseInfo() (map[string]interface{}, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	info := make(map[string]interface{})

	var version string
	if err := s.db.QueryRow(`SELECT sqlite_version()`).Scan(&version); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read SQLite version", err.Error())
	}
	info["version"] = version

	var journalMode string
	if err := s.db.QueryRow(`PRAGMA journal_mode`).Scan(&journalMode); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read journal mode", err.Error())
	}
	info["journal_mode"] = journalMode

	var pageCount, pageSize int64
	if err := s.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read page count", err.Error())
	}
	if err := s.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read page size", err.Error())
	}
	info["page_count"] = pageCount
	info["page_size"] = pageSize
	info["size_bytes"] = pageCount * pageSize

	var foreignKeys int
	if err := s.db.QueryRow(`PRAGMA foreign_keys`).Scan(&foreignKeys); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read foreign keys setting", err.Error())
	}
	info["foreign_keys"] = foreignKeys == 1

	return info, nil
}
