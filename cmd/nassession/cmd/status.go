package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yaroslav/nassession/internal/config"
	"github.com/yaroslav/nassession/models"
	"github.com/yaroslav/nassession/sdk"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the appliance sign-in status",
	Long: `Query the appliance for its root password and failover state without
logging in.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status as JSON")
}

// applianceStatus is what the sign-in screen needs before a login.
type applianceStatus struct {
	HasRootPassword bool                 `json:"has_root_password"`
	Failover        *models.FailoverInfo `json:"failover"`
	CanLogin        bool                 `json:"can_login"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	status, err := queryStatus(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	return printStatus(cmd.OutOrStdout(), status, statusJSON)
}

// queryStatus asks the appliance for the pre-login state over a
// throwaway client.
func queryStatus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*applianceStatus, error) {
	client, err := sdk.NewClient(cfg.Appliance, nil, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create appliance client: %w", err)
	}
	defer client.Stop()

	status := &applianceStatus{Failover: &models.FailoverInfo{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		has, err := client.HasRootPassword(gctx)
		status.HasRootPassword = has
		return err
	})
	g.Go(func() error {
		s, err := client.FailoverStatus(gctx)
		if err != nil {
			return err
		}
		status.Failover.Status = s
		if s.IsSingle() {
			return nil
		}
		if status.Failover.IPs, err = client.FailoverIPs(gctx); err != nil {
			return err
		}
		status.Failover.DisabledReasons, err = client.FailoverDisabledReasons(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to query appliance: %w", err)
	}

	status.CanLogin = status.Failover.Status.AllowsLogin()
	return status, nil
}

func printStatus(out io.Writer, status *applianceStatus, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintf(out, "Root password set: %t\n", status.HasRootPassword)
	printFailover(out, status.Failover)
	fmt.Fprintf(out, "Login allowed: %t\n", status.CanLogin)
	return nil
}
