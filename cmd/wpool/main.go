package main

import (
	"fmt"
	"os"

	"github.com/elys-network/wpool/internal/config"
	"github.com/elys-network/wpool/internal/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wpool",
		Short:         "Weighted pool accountant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil {
				log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
			}

			// Load configuration from environment variables
			if err := config.LoadConfig(); err != nil {
				return err
			}
			return initLogging()
		},
	}

	root.AddCommand(newServeCmd(), newQuoteCmd(), newResetDBCmd())
	return root
}

// initLogging sets up the global logger, teeing into LOG_FILE when configured.
func initLogging() error {
	if config.LogFile == "" {
		logger.Initialize(config.LogLevel)
		return nil
	}
	file, err := logger.FileWriter(config.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", config.LogFile, err)
	}
	logger.InitializeWithWriters(config.LogLevel, os.Stdout, file)
	return nil
}

// main is the entry point for the wpool accountant.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("wpool failed")
		os.Exit(1)
	}
}
