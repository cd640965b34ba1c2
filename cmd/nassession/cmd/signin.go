package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/observable"
	"github.com/yaroslav/nassession/models"
)

// errNoRootPassword stops a sign-in on an appliance that was never set up.
var errNoRootPassword = errors.New("the appliance has no root password; set one on the appliance console first")

type signinOptions struct {
	username     string
	attempts     int
	readyTimeout time.Duration
}

var signinOpts signinOptions

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in to the appliance",
	Long: `Sign in to the appliance and cache a session token for the next run.

The command:
  - Logs in with the cached token if one is stored
  - Shows the failover status of a failover pair
  - Prompts for the password when the token is missing or expired
  - Refuses to log in on a node that is not SINGLE or MASTER`,
	RunE: runSignin,
}

func init() {
	rootCmd.AddCommand(signinCmd)

	signinCmd.Flags().StringVar(&signinOpts.username, "username", "root",
		"Account to log in as; empty prompts for it")
	signinCmd.Flags().IntVar(&signinOpts.attempts, "attempts", 3,
		"Password attempts before giving up")
	signinCmd.Flags().DurationVar(&signinOpts.readyTimeout, "ready-timeout", 10*time.Second,
		"How long to wait for the appliance to accept logins")
}

func runSignin(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

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

	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	return signinFlow(ctx, rt, p, cmd.OutOrStdout(), signinOpts)
}

// signinFlow bootstraps the coordinator and, unless the cached token was
// accepted, logs in with a password.
func signinFlow(ctx context.Context, rt *sessionRuntime, p *prompter, out io.Writer, opts signinOptions) error {
	coordinator := rt.coordinator

	err := coordinator.Initialize(ctx)
	switch {
	case err == nil:
		if target := rt.Target(); target != "" {
			fmt.Fprintf(out, "Signed in with cached token. Continue at %s\n", target)
			return nil
		}
	case errors.Is(err, models.ErrTokenRejected):
	default:
		return fmt.Errorf("failed to initialize session: %w", err)
	}

	snapshot := coordinator.Snapshot()
	printFailover(out, snapshot.Failover)

	if !snapshot.HasRootPassword {
		return errNoRootPassword
	}

	if !waitFor(ctx, coordinator.CanLogin(), opts.readyTimeout) {
		snapshot = coordinator.Snapshot()
		switch {
		case !snapshot.Connected:
			return models.ErrNotConnected
		case snapshot.Failover != nil:
			return fmt.Errorf("%w: node is %s", models.ErrLoginBlocked, snapshot.Failover.Status)
		default:
			return models.ErrLoginBlocked
		}
	}

	attempts := max(opts.attempts, 1)
	for range attempts {
		username := opts.username
		if username == "" {
			if username, err = p.readLine("Username: "); err != nil {
				return err
			}
		}

		password, err := p.readPassword(fmt.Sprintf("Password for %s: ", username))
		if err != nil {
			return err
		}

		err = coordinator.LoginWithPassword(ctx, username, password)
		switch {
		case err == nil:
			fmt.Fprintf(out, "Signed in. Continue at %s\n", rt.Target())
			return nil
		case errors.Is(err, models.ErrInvalidCredentials):
			continue
		default:
			return err
		}
	}

	return fmt.Errorf("%w after %d attempts", models.ErrInvalidCredentials, attempts)
}

// waitFor reports whether r becomes true within timeout.
func waitFor(ctx context.Context, r observable.Reader[bool], timeout time.Duration) bool {
	if r.Get() {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for v := range r.Watch(ctx) {
		if v {
			return true
		}
	}
	return false
}

func printFailover(out io.Writer, info *models.FailoverInfo) {
	if info == nil {
		return
	}

	fmt.Fprintf(out, "Failover status: %s\n", info.Status)
	if !info.HasPair() {
		return
	}

	if len(info.IPs) > 0 {
		fmt.Fprintf(out, "  Addresses: %s\n", strings.Join(info.IPs, ", "))
	}
	if len(info.DisabledReasons) > 0 {
		fmt.Fprintln(out, "  Failover disabled:")
		for _, reason := range info.DisabledReasons {
			fmt.Fprintf(out, "    - %s (%s)\n", reason.Description(), reason)
		}
	}
}
