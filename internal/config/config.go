// Package config loads nassession configuration from a YAML file and
// NASSESSION_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yaroslav/nassession/internal/events"
	"github.com/yaroslav/nassession/internal/logging"
	"github.com/yaroslav/nassession/internal/simulator"
	"github.com/yaroslav/nassession/sdk"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NASSESSION_"

// Event transports.
const (
	EventsMemory = "memory"
	EventsNATS   = "nats"
)

// ErrInvalidConfig indicates the configuration failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete nassession configuration.
type Config struct {
	// Appliance is the RPC channel to the appliance.
	Appliance sdk.ClientConfig `yaml:"appliance"`

	// Events selects the push-event transport.
	Events EventsConfig `yaml:"events"`

	// Store is where the session token and current URL are kept.
	Store StoreConfig `yaml:"store"`

	// Logging configures zap.
	Logging logging.Config `yaml:"logging"`

	// API is the local session API served by `nassession serve`.
	API APIConfig `yaml:"api"`

	// Simulator is the development appliance started by `nassession simulate`.
	Simulator SimulatorConfig `yaml:"simulator"`
}

// EventsConfig selects and configures the push-event transport.
type EventsConfig struct {
	// Backend is memory or nats. Default: memory, which only carries
	// events published in-process.
	Backend string `yaml:"backend"`

	// NATS is used when Backend is nats.
	NATS events.NATSConfig `yaml:"nats"`
}

// StoreConfig configures session storage.
type StoreConfig struct {
	// Path is the SQLite database file, or ":memory:". Default: ./nassession.db
	Path string `yaml:"path"`
}

// APIConfig configures the local session API.
type APIConfig struct {
	// Listen is the address to listen on. Default: 127.0.0.1:8090
	Listen string `yaml:"listen"`

	// RateLimitRPS is the per-IP request rate. Default: 10
	RateLimitRPS float64 `yaml:"rate_limit_rps"`

	// RateLimitBurst is the per-IP burst size. Default: 20
	RateLimitBurst int `yaml:"rate_limit_burst"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SimulatorConfig configures the development appliance.
type SimulatorConfig struct {
	simulator.Config `yaml:",inline"`

	// Listen is the address to serve the RPC endpoint on. Default: 127.0.0.1:8091
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Events:  EventsConfig{Backend: EventsMemory},
		Store:   StoreConfig{Path: "./nassession.db"},
		Logging: logging.DefaultConfig(),
		API: APIConfig{
			Listen:          "127.0.0.1:8090",
			RateLimitRPS:    10,
			RateLimitBurst:  20,
			ShutdownTimeout: 10 * time.Second,
		},
		Simulator: SimulatorConfig{Listen: "127.0.0.1:8091"},
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("APPLIANCE_URLS"); ok {
		c.Appliance.BaseURLs = splitList(v)
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.Logging.Format = logging.Format(v)
	}
	if v, ok := get("STORE_PATH"); ok {
		c.Store.Path = v
	}
	if v, ok := get("EVENTS_BACKEND"); ok {
		c.Events.Backend = v
	}
	if v, ok := get("NATS_URL"); ok {
		c.Events.NATS.URL = v
	}
	if v, ok := get("API_LISTEN"); ok {
		c.API.Listen = v
	}
	if v, ok := get("SIMULATOR_LISTEN"); ok {
		c.Simulator.Listen = v
	}
	if v, ok := get("SIMULATOR_ROOT_PASSWORD"); ok {
		c.Simulator.RootPassword = v
	}
	if v, ok := get("RETRY_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sRETRY_ATTEMPTS must be an integer: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Appliance.RetryAttempts = n
	}
	if v, ok := get("KEEPALIVE_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sKEEPALIVE_INTERVAL must be a duration: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Appliance.KeepaliveInterval = d
	}

	return nil
}

// Validate checks settings that every command relies on. Appliance URLs
// are checked by ValidateAppliance, since `simulate` runs without them.
func (c *Config) Validate() error {
	switch c.Events.Backend {
	case "", EventsMemory:
	case EventsNATS:
		if c.Events.NATS.URL == "" {
			return fmt.Errorf("%w: events.nats.url is required for the nats backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown events backend %q", ErrInvalidConfig, c.Events.Backend)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	switch c.Logging.Format {
	case "", logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("%w: logging.format must be json or console", ErrInvalidConfig)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("%w: store.path cannot be empty", ErrInvalidConfig)
	}

	if c.API.RateLimitRPS <= 0 || c.API.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: api rate limit must be positive", ErrInvalidConfig)
	}

	return nil
}

// ValidateAppliance validates the appliance client settings and fills in
// their defaults.
func (c *Config) ValidateAppliance() error {
	return c.Appliance.Validate()
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
