package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultHTTPPort    = 8080
	DefaultLogLevel    = "info"
	DefaultAumInterval = time.Hour
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// LogLevel is the zerolog level name (debug, info, warn, error).
	LogLevel string

	// LogFile, when set, receives a JSON copy of every log line.
	LogFile string

	// AumInterval is the period of the background management fee collection.
	AumInterval time.Duration

	// DeploymentsFile is an optional YAML file of pools deployed at startup.
	DeploymentsFile string

	// BoundsConfigName selects the versioned protocol bounds stored in the database.
	BoundsConfigName string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Every variable is optional and falls back to its default.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	LogLevel = getEnvOrDefault("LOG_LEVEL", DefaultLogLevel)
	LogFile = getEnvOrDefault("LOG_FILE", "")

	AumInterval, err = getEnvAsDurationOrDefault("WPOOL_AUM_INTERVAL", DefaultAumInterval)
	if err != nil {
		return err
	}
	if AumInterval <= 0 {
		return errors.New("environment variable WPOOL_AUM_INTERVAL must be positive, got: " + AumInterval.String())
	}

	DeploymentsFile = getEnvOrDefault("WPOOL_DEPLOYMENTS", "")
	BoundsConfigName = getEnvOrDefault("WPOOL_BOUNDS_CONFIG", DefaultBoundsConfigName)

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("LogLevel", LogLevel).
		Str("LogFile", LogFile).
		Dur("AumInterval", AumInterval).
		Str("DeploymentsFile", DeploymentsFile).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

func getEnvOrDefault(key, fallback string) string {
	if value, err := getEnv(key); err == nil && value != "" {
		return value
	}
	return fallback
}

// getEnvAsUint64OrDefault retrieves an environment variable as a uint64. Returns error if set but invalid.
func getEnvAsUint64OrDefault(key string, fallback uint64) (uint64, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsBoolOrDefault retrieves an environment variable as a bool. Returns error if set but invalid.
func getEnvAsBoolOrDefault(key string, fallback bool) (bool, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, errors.New("environment variable " + key + " must be a valid bool, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDurationOrDefault retrieves an environment variable as a duration ("90s", "1h").
func getEnvAsDurationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}
