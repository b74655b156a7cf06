// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

var ErrDBNotInitialized = errors.New("database not initialized")

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// DSN returns the lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	var err error
	DB, err = sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
		DB = nil
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
// Amounts are stored as NUMERIC(78, 0) so a full 256-bit integer fits, decimals as NUMERIC(38, 18).
func EnsureSchema() error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS protocol_bounds (
			bounds_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			bounds JSONB NOT NULL,
			CONSTRAINT uq_protocol_bounds_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_protocol_bounds_config_active ON protocol_bounds(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS pool_deployments (
			pool_id BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			pool_type VARCHAR(64) NOT NULL,
			tokens TEXT[] NOT NULL,
			deployment JSONB NOT NULL,
			deployed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS pool_receipts (
			receipt_id UUID PRIMARY KEY,
			pool_id BIGINT NOT NULL REFERENCES pool_deployments(pool_id),
			operation VARCHAR(50) NOT NULL,
			change_block BIGINT NOT NULL,
			sender TEXT,
			recipient TEXT,
			receipt_timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pool_receipts_timestamp ON pool_receipts(receipt_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_pool_receipts_pool_id ON pool_receipts(pool_id);
		CREATE INDEX IF NOT EXISTS idx_pool_receipts_operation ON pool_receipts(operation);

		CREATE TABLE IF NOT EXISTS pool_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			pool_id BIGINT NOT NULL REFERENCES pool_deployments(pool_id),
			change_block BIGINT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			balances NUMERIC(78, 0)[] NOT NULL,
			normalized_weights NUMERIC(38, 18)[] NOT NULL,
			total_supply NUMERIC(78, 0) NOT NULL,
			invariant NUMERIC(78, 18) NOT NULL,
			swap_fee_percentage NUMERIC(38, 18) NOT NULL,
			paused BOOLEAN NOT NULL,
			snapshot JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_pool_timestamp ON pool_snapshots(pool_id, snapshot_timestamp DESC);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// ResetSchema drops every table and recreates the schema. All history is lost.
func ResetSchema() error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	dropTablesQuery := `
		DROP TABLE IF EXISTS pool_snapshots CASCADE;
		DROP TABLE IF EXISTS pool_receipts CASCADE;
		DROP TABLE IF EXISTS pool_deployments CASCADE;
		DROP TABLE IF EXISTS protocol_bounds CASCADE;
	`
	if _, err := DB.Exec(dropTablesQuery); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	log.Info().Msg("Successfully dropped all tables")
	return EnsureSchema()
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
