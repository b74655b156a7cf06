package config

import (
	"strconv"

	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// HTTPPort is the port of the JSON API.
	HTTPPort string

	// DBEnabled turns on PostgreSQL persistence of deployments, snapshots and receipts.
	DBEnabled bool
	DBHost    string
	DBPort    uint64
	DBUser    string
	DBPass    string
	DBName    string

	// DBSSLMode is passed to lib/pq ("disable", "require", "verify-full").
	DBSSLMode string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	port, err := getEnvAsUint64OrDefault("WPOOL_HTTP_PORT", DefaultHTTPPort)
	if err != nil {
		return err
	}
	HTTPPort = strconv.FormatUint(port, 10)

	DBEnabled, err = getEnvAsBoolOrDefault("WPOOL_DB_ENABLED", false)
	if err != nil {
		return err
	}

	DBHost = getEnvOrDefault("DB_HOST", "localhost")
	DBPort, err = getEnvAsUint64OrDefault("DB_PORT", 5432)
	if err != nil {
		return err
	}
	DBUser = getEnvOrDefault("DB_USER", "postgres")
	DBPass = getEnvOrDefault("DB_PASSWORD", "")
	DBName = getEnvOrDefault("DB_NAME", "wpool")
	DBSSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	log.Debug().
		Str("HTTPPort", HTTPPort).
		Bool("DBEnabled", DBEnabled).
		Str("DBHost", DBHost).
		Uint64("DBPort", DBPort).
		Str("DBName", DBName).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
