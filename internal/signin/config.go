package signin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/events"
	"github.com/yaroslav/nassession/internal/notify"
	"github.com/yaroslav/nassession/internal/observable"
	"github.com/yaroslav/nassession/internal/store"
	"github.com/yaroslav/nassession/models"
)

const (
	// TokenLifetime is the lifetime requested for every generated session token.
	TokenLifetime = 300 * time.Second

	// DefaultRedirect is where a successful login lands without a better target.
	DefaultRedirect = "/dashboard"

	// SnackbarDuration is how long sign-in notifications stay visible.
	SnackbarDuration = 4000 * time.Millisecond
)

// User-facing messages.
const (
	MessageTokenExpired         = "Token expired, please log back in."
	MessageTokenGenerationError = "Error generating token, please try again."
	MessageInvalidCredentials   = "Wrong username or password."
	ActionClose                 = "Close"
)

// Channel is the appliance RPC surface the coordinator uses.
// *sdk.Client satisfies it.
type Channel interface {
	HasRootPassword(ctx context.Context) (bool, error)
	FailoverStatus(ctx context.Context) (models.FailoverStatus, error)
	FailoverIPs(ctx context.Context) ([]string, error)
	FailoverDisabledReasons(ctx context.Context) ([]models.DisabledReason, error)

	LoginWithToken(ctx context.Context, token string) (bool, error)
	LoginWithPassword(ctx context.Context, username, password string) (bool, error)
	GenerateToken(ctx context.Context, lifetime time.Duration) (string, error)

	events.Subscriber

	Connected() observable.Reader[bool]
}

// SessionContext holds the cached session credential and pending redirect.
// *sdk.Session satisfies it.
type SessionContext interface {
	Token() string
	HasToken() bool
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
	RedirectURL() string
}

// Navigator moves the user to another page after login.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, url string) error

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, url string) error {
	return f(ctx, url)
}

// Config holds the collaborators of a Coordinator.
type Config struct {
	// Channel is the appliance RPC channel. Required.
	Channel Channel

	// Session is the shared session context. Required.
	Session SessionContext

	// Sink shows transient notifications. Required.
	Sink notify.Sink

	// Errors receives failures the coordinator does not interpret.
	// Default: a LogReporter on Logger.
	Errors notify.ErrorReporter

	// Navigator is called with the redirect target after login. Required.
	Navigator Navigator

	// Storage is the per-session storage holding the last visited URL.
	// Optional.
	Storage store.Store

	// Logger for coordinator events. Default: no-op.
	Logger *zap.Logger
}

// ErrInvalidConfig indicates a Config is missing a required collaborator.
var ErrInvalidConfig = errors.New("invalid sign-in config")

// Validate checks required collaborators and applies defaults.
func (c *Config) Validate() error {
	switch {
	case c.Channel == nil:
		return fmt.Errorf("%w: channel is required", ErrInvalidConfig)
	case c.Session == nil:
		return fmt.Errorf("%w: session is required", ErrInvalidConfig)
	case c.Sink == nil:
		return fmt.Errorf("%w: notification sink is required", ErrInvalidConfig)
	case c.Navigator == nil:
		return fmt.Errorf("%w: navigator is required", ErrInvalidConfig)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Errors == nil {
		c.Errors = notify.NewLogReporter(nil, c.Logger)
	}

	return nil
}
