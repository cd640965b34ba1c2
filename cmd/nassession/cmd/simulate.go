package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/api"
	"github.com/yaroslav/nassession/internal/config"
	"github.com/yaroslav/nassession/internal/simulator"
	"github.com/yaroslav/nassession/models"
)

var (
	simListen       string
	simRootPassword string
	simStatus       string
	simIPs          []string
	simFlipEvery    time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated appliance for development",
	Long: `Run a stand-in appliance that answers the sign-in RPC methods.

With the nats events backend, failover changes are published for clients
to follow. --flip-every swaps a failover pair between MASTER and BACKUP
on a timer.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	flags := simulateCmd.Flags()
	flags.StringVar(&simListen, "listen", "",
		"Address to listen on (overrides simulator.listen)")
	flags.StringVar(&simRootPassword, "root-password", "",
		"Root password; empty leaves the appliance without one")
	flags.StringVar(&simStatus, "status", "",
		"Initial failover status (SINGLE, MASTER, BACKUP, ...)")
	flags.StringSliceVar(&simIPs, "ip", nil,
		"Management address advertised by the failover pair")
	flags.DurationVar(&simFlipEvery, "flip-every", 0,
		"Swap MASTER and BACKUP at this interval (0 disables)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := applySimulatorFlags(&cfg.Simulator); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, err := openBus(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	if cfg.Events.Backend != config.EventsNATS {
		logger.Warn("failover changes are only published in-process; use the nats events backend to reach clients")
	}

	appliance, err := simulator.New(cfg.Simulator.Config, bus, logger)
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}

	if simFlipEvery > 0 {
		go flipFailover(ctx, appliance, cfg.Simulator.Status, simFlipEvery, logger)
	}

	logger.Info("simulated appliance starting",
		zap.String("listen", cfg.Simulator.Listen),
		zap.String("failover_status", string(cfg.Simulator.Status)),
		zap.Bool("root_password", cfg.Simulator.RootPassword != ""))

	server := api.NewServer(cfg.Simulator.Listen, appliance.Handler(), cfg.API.ShutdownTimeout, logger)
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func applySimulatorFlags(cfg *config.SimulatorConfig) error {
	if simListen != "" {
		cfg.Listen = simListen
	}
	if simRootPassword != "" {
		cfg.RootPassword = simRootPassword
	}
	if len(simIPs) > 0 {
		cfg.IPs = simIPs
	}
	if simStatus != "" {
		status, err := models.ParseFailoverStatus(simStatus)
		if err != nil {
			return err
		}
		cfg.Status = status
	}
	if cfg.Status == "" {
		cfg.Status = models.FailoverSingle
	}
	return nil
}

// flipFailover alternates a failover pair between MASTER and BACKUP until
// ctx is done.
func flipFailover(ctx context.Context, appliance *simulator.Appliance, status models.FailoverStatus, every time.Duration, logger *zap.Logger) {
	if status.IsSingle() {
		logger.Warn("--flip-every ignored for a SINGLE appliance")
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if status == models.FailoverMaster {
				status = models.FailoverBackup
			} else {
				status = models.FailoverMaster
			}
			if err := appliance.SetFailoverStatus(ctx, status); err != nil {
				logger.Warn("failed to flip failover status", zap.Error(err))
			}
		}
	}
}
