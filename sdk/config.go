package sdk

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ClientConfig contains the configuration for creating a new SDK client.
type ClientConfig struct {
	// BaseURLs lists the appliance endpoints (e.g., ["https://nas-a.local", "https://nas-b.local"]).
	// For a failover pair, list both controllers; the client fails over between them.
	BaseURLs []string `yaml:"base_urls"`

	// HTTPClient is the HTTP client to use for requests.
	// Optional: if nil, a default client with reasonable timeouts will be created.
	HTTPClient *http.Client `yaml:"-"`

	// RetryAttempts is the number of times to retry failed requests.
	// Default: 2
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryWaitMin is the minimum wait time between retries.
	// Default: 250 milliseconds
	RetryWaitMin time.Duration `yaml:"retry_wait_min"`

	// RetryWaitMax is the maximum wait time between retries.
	// Default: 5 seconds
	RetryWaitMax time.Duration `yaml:"retry_wait_max"`

	// Timeout is the HTTP request timeout.
	// Default: 30 seconds
	Timeout time.Duration `yaml:"timeout"`

	// KeepaliveInterval is how often the connection is checked with core.ping.
	// Default: 10 seconds
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
}

// Validate checks if the client configuration is valid and sets defaults.
func (c *ClientConfig) Validate() error {
	if len(c.BaseURLs) == 0 {
		return fmt.Errorf("%w: at least one base URL is required", ErrInvalidConfig)
	}

	for i, url := range c.BaseURLs {
		url = strings.TrimSpace(url)
		if url == "" {
			return fmt.Errorf("%w: base URL at index %d is empty", ErrInvalidConfig, i)
		}

		url = strings.TrimSuffix(url, "/")
		c.BaseURLs[i] = url

		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("%w: base URL must start with http:// or https://", ErrInvalidConfig)
		}
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry_attempts cannot be negative", ErrInvalidConfig)
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 2
	}
	if c.RetryWaitMin == 0 {
		c.RetryWaitMin = 250 * time.Millisecond
	}
	if c.RetryWaitMax == 0 {
		c.RetryWaitMax = 5 * time.Second
	}
	if c.RetryWaitMax < c.RetryWaitMin {
		return fmt.Errorf("%w: retry_wait_max must be >= retry_wait_min", ErrInvalidConfig)
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = 10 * time.Second
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Timeout: c.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return nil
}
