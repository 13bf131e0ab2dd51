package storage

import (
	"time"
)

// Migration represents a database migration
type Migration struct {
	ID          int       `db:"id"`
	Version     string    `db:"version"`
	Description string    `db:"description"`
	SQL         string    `db:"sql"`
	AppliedAt   time.Time `db:"applied_at"`
	Checksum    string    `db:"checksum"`
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create migrations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS migrations (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					version TEXT NOT NULL UNIQUE,
					description TEXT,
					checksum TEXT,
					applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`,
		},
		{
			Version:     "002",
			Description: "Create notification configs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notification_configs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					config_data TEXT NOT NULL, -- JSON
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_notification_configs_updated_at ON notification_configs(updated_at DESC);
			`,
		},
		{
			Version:     "003",
			Description: "Create alert history table",
			SQL: `
				CREATE TABLE IF NOT EXISTS alert_history (
					id TEXT PRIMARY KEY,
					timestamp DATETIME NOT NULL,
					level TEXT NOT NULL,
					title TEXT NOT NULL,
					message TEXT NOT NULL,
					service_name TEXT,
					resource_type TEXT,
					current_value REAL,
					threshold_value REAL,
					metadata TEXT NOT NULL DEFAULT '{}', -- JSON
					sent_to TEXT NOT NULL DEFAULT '[]', -- JSON
					failed_to TEXT NOT NULL DEFAULT '[]' -- JSON
				);

				CREATE INDEX IF NOT EXISTS idx_alert_history_timestamp ON alert_history(timestamp DESC);
				CREATE INDEX IF NOT EXISTS idx_alert_history_level ON alert_history(level, timestamp DESC);
				CREATE INDEX IF NOT EXISTS idx_alert_history_service ON alert_history(service_name, timestamp DESC);
			`,
		},
		{
			Version:     "004",
			Description: "Create system state table",
			SQL: `
				CREATE TABLE IF NOT EXISTS system_state (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create migrations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS migrations (
					id SERIAL PRIMARY KEY,
					version VARCHAR(32) NOT NULL UNIQUE,
					description TEXT,
					checksum VARCHAR(64),
					applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     "002",
			Description: "Create notification configs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notification_configs (
					id SERIAL PRIMARY KEY,
					config_data JSONB NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_notification_configs_updated_at ON notification_configs(updated_at DESC);
			`,
		},
		{
			Version:     "003",
			Description: "Create alert history table",
			SQL: `
				CREATE TABLE IF NOT EXISTS alert_history (
					id VARCHAR(64) PRIMARY KEY,
					timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
					level VARCHAR(16) NOT NULL,
					title TEXT NOT NULL,
					message TEXT NOT NULL,
					service_name VARCHAR(255),
					resource_type VARCHAR(32),
					current_value DOUBLE PRECISION,
					threshold_value DOUBLE PRECISION,
					metadata JSONB NOT NULL DEFAULT '{}',
					sent_to JSONB NOT NULL DEFAULT '[]',
					failed_to JSONB NOT NULL DEFAULT '[]'
				);

				CREATE INDEX IF NOT EXISTS idx_alert_history_timestamp ON alert_history(timestamp DESC);
				CREATE INDEX IF NOT EXISTS idx_alert_history_level ON alert_history(level, timestamp DESC);
				CREATE INDEX IF NOT EXISTS idx_alert_history_service ON alert_history(service_name, timestamp DESC);
				CREATE INDEX IF NOT EXISTS idx_alert_history_metadata ON alert_history USING GIN (metadata);
			`,
		},
		{
			Version:     "004",
			Description: "Create system state table",
			SQL: `
				CREATE TABLE IF NOT EXISTS system_state (
					key VARCHAR(255) PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
			`,
		},
	}
}
