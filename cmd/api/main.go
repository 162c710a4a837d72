// server/cmd/api/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/app"
	"smartbin-api-server/internal/logger"
)

var (
	configPath string
	seedBins   int

	rootCmd = &cobra.Command{
		Use:          "smartbin",
		Short:        "SmartBin waste container monitoring API",
		SilenceUsage: true,
		RunE:         runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the MQTT telemetry subscriber and the watchdog",
		RunE:  runServe,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create the admin user and optionally random bins around Almaty",
		RunE:  runSeed,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config", "directory containing config.yaml")
	seedCmd.Flags().IntVar(&seedBins, "bins", 0, "number of random bins to create")
	rootCmd.AddCommand(serveCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, zerolog.Nop(), fmt.Errorf("could not load config: %w", err)
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize")
		return err
	}

	if cfg.Seed.AdminPassword != "" {
		if err := a.SeedAdmin(ctx); err != nil {
			log.Error().Err(err).Msg("failed to seed admin")
			a.Close()
			return err
		}
	}

	if err := a.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// no workers or brokers are needed to seed
	cfg.MQTT.Enabled = false
	cfg.NATS.Enabled = false
	cfg.Rules.ConnectionLostAfter = 0

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.SeedAdmin(ctx); err != nil {
		return err
	}
	if seedBins > 0 {
		if _, err := a.SeedBins(ctx, seedBins); err != nil {
			return err
		}
	}
	return nil
}
