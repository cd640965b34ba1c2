package sdk

import (
	"strings"
	"testing"
	"time"
)

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ClientConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:   "single appliance",
			config: ClientConfig{BaseURLs: []string{"https://nas.example.com"}},
		},
		{
			name:   "failover pair",
			config: ClientConfig{BaseURLs: []string{"https://nas-a.example.com", "https://nas-b.example.com/"}},
		},
		{
			name:    "missing base URLs",
			config:  ClientConfig{},
			wantErr: true,
			errMsg:  "at least one base URL is required",
		},
		{
			name:    "empty base URL",
			config:  ClientConfig{BaseURLs: []string{" "}},
			wantErr: true,
			errMsg:  "base URL at index 0 is empty",
		},
		{
			name:    "invalid URL format",
			config:  ClientConfig{BaseURLs: []string{"nas.example.com"}},
			wantErr: true,
			errMsg:  "base URL must start with http:// or https://",
		},
		{
			name:    "negative retries",
			config:  ClientConfig{BaseURLs: []string{"https://nas.example.com"}, RetryAttempts: -1},
			wantErr: true,
			errMsg:  "retry_attempts cannot be negative",
		},
		{
			name: "max wait below min wait",
			config: ClientConfig{
				BaseURLs:     []string{"https://nas.example.com"},
				RetryWaitMin: time.Second,
				RetryWaitMax: time.Millisecond,
			},
			wantErr: true,
			errMsg:  "retry_wait_max must be >= retry_wait_min",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() expected error but got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestClientConfig_Defaults(t *testing.T) {
	config := ClientConfig{BaseURLs: []string{"https://nas.example.com/"}}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if config.BaseURLs[0] != "https://nas.example.com" {
		t.Errorf("trailing slash not trimmed: %s", config.BaseURLs[0])
	}
	if config.RetryAttempts != 2 {
		t.Errorf("RetryAttempts = %d, want 2", config.RetryAttempts)
	}
	if config.RetryWaitMin != 250*time.Millisecond {
		t.Errorf("RetryWaitMin = %v, want 250ms", config.RetryWaitMin)
	}
	if config.RetryWaitMax != 5*time.Second {
		t.Errorf("RetryWaitMax = %v, want 5s", config.RetryWaitMax)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", config.Timeout)
	}
	if config.KeepaliveInterval != 10*time.Second {
		t.Errorf("KeepaliveInterval = %v, want 10s", config.KeepaliveInterval)
	}
	if config.HTTPClient == nil {
		t.Error("HTTPClient should be created")
	}
}
