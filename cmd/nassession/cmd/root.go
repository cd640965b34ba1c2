package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/config"
	"github.com/yaroslav/nassession/internal/logging"
)

var (
	// Version information (set at build time via ldflags)
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global flags
var (
	configPath    string
	logLevel      string
	logFormat     string
	applianceURLs []string
	storePath     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nassession",
	Short: "nassession - storage appliance sign-in client",
	Long: `nassession signs in to a storage appliance and keeps the session alive.

It:
  - Logs in with the cached session token when one is stored
  - Falls back to the root password, prompting on the terminal
  - Follows failover pairs and refuses logins on a BACKUP node
  - Serves the sign-in state to local UIs over HTTP

For development, "nassession simulate" runs a stand-in appliance.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "",
		"Path to YAML configuration file")
	flags.StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "",
		"Log format (json, console)")
	flags.StringSliceVarP(&applianceURLs, "url", "u", nil,
		"Appliance base URL; repeat for both nodes of a failover pair")
	flags.StringVar(&storePath, "store", "",
		"Session store path, or :memory:")
}

// loadConfig reads the configuration file and environment, then applies
// the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logging.Format(logFormat)
	}
	if len(applianceURLs) > 0 {
		cfg.Appliance.BaseURLs = applianceURLs
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger for a command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// versionString returns formatted version information
func versionString() string {
	return fmt.Sprintf("nassession %s (commit: %s, built: %s)",
		Version, Commit, BuildDate)
}
