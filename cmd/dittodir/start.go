package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittodir/internal/logger"
	"github.com/marmos91/dittodir/pkg/api"
	"github.com/marmos91/dittodir/pkg/config"
	"github.com/marmos91/dittodir/pkg/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the DittoDir server",
	Long: `
Load the configuration, open the record store and serve the HTTP API (and
the metrics endpoint when enabled) until SIGINT or SIGTERM.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return run(ctx, configPath)
	},
}

func init() {
	startCmd.Flags().String("config", "", "path to the configuration file (default: $XDG_CONFIG_HOME/dittodir/config.yaml)")
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return err
	}

	logger.Info("DittoDir %s starting", version)
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	store, err := config.CreateRecordStore(ctx, &cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to create record store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close record store: %v", err)
		}
	}()

	if err := store.Healthcheck(ctx); err != nil {
		return fmt.Errorf("record store is not healthy: %w", err)
	}

	m := config.InitializeMetrics(cfg)
	dirs, files := service.New(store, m.Directory)

	apiConfig := cfg.APIServerConfig()
	server := api.NewServer(apiConfig, dirs, files, store, m.API)

	logger.Info("API configuration:")
	logger.Info("  Port: %d", apiConfig.Port)
	logger.Info("  Owner header: %s", apiConfig.OwnerHeader)
	logger.Info("  Max upload: %d bytes", apiConfig.MaxUploadBytes)
	if apiConfig.RequestsPerSecond > 0 {
		logger.Info("  Rate limit: %d req/s per owner (burst %d)", apiConfig.RequestsPerSecond, apiConfig.Burst)
	} else {
		logger.Info("  Rate limit: unlimited")
	}
	logger.Info("  Record store: %s", cfg.Store.Type)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gctx)
	})

	if m.Server != nil {
		g.Go(func() error {
			return m.Server.Start(gctx)
		})
	}

	logger.Info("Server is running on port %d. Press Ctrl+C to stop.", apiConfig.Port)

	if err := g.Wait(); err != nil {
		logger.Error("Server error: %v", err)
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}
