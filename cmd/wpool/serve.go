package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/elys-network/wpool/internal/accountant"
	"github.com/elys-network/wpool/internal/config"
	"github.com/elys-network/wpool/internal/metrics"
	"github.com/elys-network/wpool/internal/state"
	"github.com/elys-network/wpool/internal/vault"
	"github.com/elys-network/wpool/internal/web"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port, deployments string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the accountant HTTP API and the management fee loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				config.HTTPPort = port
			}
			if deployments != "" {
				config.DeploymentsFile = deployments
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "HTTP port (overrides WPOOL_HTTP_PORT)")
	cmd.Flags().StringVar(&deployments, "deployments", "", "YAML file of pools to deploy at startup (overrides WPOOL_DEPLOYMENTS)")
	return cmd
}

func serve(ctx context.Context) error {
	log.Info().Msg("Weighted pool accountant starting...")

	bounds := config.DefaultProtocolBounds
	var store accountant.Store
	var webOpts []web.Option

	if config.DBEnabled {
		if err := state.InitDB(dbConfig()); err != nil {
			return err
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			return err
		}

		loaded, err := state.LoadOrSeedProtocolBounds(config.BoundsConfigName, config.DefaultBoundsConfigVersion, bounds)
		if err != nil {
			return err
		}
		bounds = loaded
		log.Info().Str("config_name", config.BoundsConfigName).Msg("Protocol bounds loaded successfully.")

		pg := state.PostgresStore{}
		store = pg
		webOpts = append(webOpts, web.WithHistory(pg, state.TestDBConnection))
	} else {
		log.Warn().Msg("Persistence disabled. Pool history is kept in memory only.")
	}

	ledger := vault.NewMemoryVault(vault.DefaultFeeCollector)
	defer ledger.Close()

	acc, err := accountant.New(accountant.Config{
		Vault:   ledger,
		Store:   store,
		Metrics: metrics.NewMetrics(prometheus.DefaultRegisterer),
		Bounds:  &bounds,
	})
	if err != nil {
		return err
	}

	if config.DeploymentsFile != "" {
		file, err := config.LoadDeploymentFile(config.DeploymentsFile)
		if err != nil {
			return err
		}
		ids, err := deployFromFile(ctx, acc, ledger, file)
		if err != nil {
			return err
		}
		log.Info().Int("pools", len(ids)).Str("file", config.DeploymentsFile).Msg("Deployed pools from file")
	}

	go acc.RunAumLoop(ctx, config.AumInterval)

	server := web.NewWebServer(config.HTTPPort, acc, webOpts...)
	log.Info().Str("port", config.HTTPPort).Str("url", "http://localhost:"+config.HTTPPort).Msg("Starting accountant API")
	return server.Start(ctx)
}

func dbConfig() state.DBConfig {
	return state.DBConfig{
		Host: config.DBHost, Port: int(config.DBPort),
		User: config.DBUser, Password: config.DBPass,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
}

func newResetDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-db",
		Short: "Drop and recreate every accountant table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := dbConfig()
			log.Info().
				Str("host", cfg.Host).
				Int("port", cfg.Port).
				Str("user", cfg.User).
				Str("dbname", cfg.DBName).
				Msg("Connecting to database")

			if err := state.InitDB(cfg); err != nil {
				return err
			}
			defer state.CloseDB()

			if err := state.ResetSchema(); err != nil {
				return err
			}
			log.Info().Msg("Database reset complete!")
			return nil
		},
	}
}
