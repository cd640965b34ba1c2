package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/api"
	"github.com/yaroslav/nassession/internal/metrics"
	"github.com/yaroslav/nassession/models"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the sign-in state to local UIs",
	Long: `Bootstrap the sign-in session and serve it over HTTP.

Endpoints:
  - GET  /api/v1/session         current sign-in state
  - GET  /api/v1/session/events  state changes as server-sent events
  - POST /api/v1/session/login   credential login
  - GET  /health/live, /health/ready, /metrics

The server stops gracefully on SIGTERM/SIGINT.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"Address to listen on (overrides api.listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if serveListen != "" {
		cfg.API.Listen = serveListen
	}

	if err := metrics.Init(); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openSessionRuntime(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to close session", zap.Error(err))
		}
	}()

	// The API serves even after a failed bootstrap.
	if err := rt.coordinator.Initialize(ctx); err != nil && !errors.Is(err, models.ErrTokenRejected) {
		logger.Warn("session bootstrap failed", zap.Error(err))
	}

	instanceID := uuid.NewString()
	logger.Info("nassession API starting",
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("instance_id", instanceID),
		zap.String("listen", cfg.API.Listen))

	router := api.SetupRouter(ctx, &api.RouterConfig{
		Session:        rt.coordinator,
		Notices:        rt.snackbar,
		Connected:      rt.client.IsConnected,
		Logger:         logger,
		InstanceID:     instanceID,
		RateLimitRPS:   cfg.API.RateLimitRPS,
		RateLimitBurst: cfg.API.RateLimitBurst,
	})

	server := api.NewServer(cfg.API.Listen, router, cfg.API.ShutdownTimeout, logger)
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("nassession API stopped")
	return nil
}
