package signin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yaroslav/nassession/internal/logging"
	"github.com/yaroslav/nassession/internal/metrics"
	"github.com/yaroslav/nassession/internal/notify"
	"github.com/yaroslav/nassession/internal/store"
	"github.com/yaroslav/nassession/models"
)

// Initialize bootstraps the session state: it checks for a root password
// and fetches the failover status concurrently, follows a failover pair
// through push subscriptions, then logs in with the cached token if there
// is one. It runs once per coordinator.
//
// A rejected cached token returns models.ErrTokenRejected after notifying
// the user. RPC failures are passed to the error reporter and returned.
func (c *Coordinator) Initialize(ctx context.Context) error {
	if c.closed.Load() {
		return models.ErrClosed
	}
	if !c.initialized.CompareAndSwap(false, true) {
		return models.ErrAlreadyInitialized
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.BootstrapDuration.Observe(time.Since(start).Seconds()) }()

	c.setLoading(true)

	// Both branches always run to completion; Wait reports the first failure.
	var g errgroup.Group
	g.Go(func() error { return c.loadRootPassword(ctx) })
	g.Go(func() error { return c.loadFailover(ctx) })

	if err := g.Wait(); err != nil {
		return c.fail(ctx, err)
	}
	if c.closed.Load() {
		return models.ErrClosed
	}

	if !c.session.HasToken() {
		c.setLoading(false)
		c.logger.Info("session initialized without cached token")
		return nil
	}

	return c.LoginWithToken(ctx)
}

func (c *Coordinator) loadRootPassword(ctx context.Context) error {
	has, err := c.channel.HasRootPassword(ctx)
	if err != nil {
		return fmt.Errorf("failed to check root password: %w", err)
	}
	c.update(func(s *state) { s.hasRootPassword = has })
	return nil
}

// loadFailover fetches the status and, for a failover pair, subscribes to
// changes before fetching the initial details.
func (c *Coordinator) loadFailover(ctx context.Context) error {
	status, err := c.channel.FailoverStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch failover status: %w", err)
	}
	c.update(func(s *state) { s.setStatus(status) })
	metrics.SetFailoverStatus(status)

	c.logger.Info("failover status loaded", zap.String(logging.FieldFailoverStatus, string(status)))

	if status.IsSingle() {
		return nil
	}

	if err := c.subscribe(ctx); err != nil {
		return err
	}

	ips, err := c.channel.FailoverIPs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch failover ips: %w", err)
	}
	c.update(func(s *state) {
		if s.failover != nil && !s.failover.Status.IsSingle() {
			s.failover.IPs = ips
		}
	})

	reasons, err := c.channel.FailoverDisabledReasons(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch failover disabled reasons: %w", err)
	}
	c.update(func(s *state) {
		if s.failover != nil && !s.failover.Status.IsSingle() {
			s.failover.DisabledReasons = reasons
		}
	})

	return nil
}

// setStatus merges a new failover status into the state. Details only
// exist for a failover pair.
func (s *state) setStatus(status models.FailoverStatus) {
	if s.failover == nil {
		s.failover = &models.FailoverInfo{}
	}
	s.failover.Status = status
	if status.IsSingle() {
		s.failover.IPs = nil
		s.failover.DisabledReasons = nil
	}
}

// LoginWithToken logs in with the cached session token. A rejected token
// is cleared and the user is told to log in again.
func (c *Coordinator) LoginWithToken(ctx context.Context) error {
	if c.closed.Load() {
		return models.ErrClosed
	}

	tok := c.session.Token()
	if tok == "" {
		c.setLoading(false)
		return nil
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	c.setLoading(true)

	accepted, err := c.channel.LoginWithToken(ctx, tok)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginMethodToken, metrics.ResultError).Inc()
		return c.fail(ctx, fmt.Errorf("failed to log in with token: %w", err))
	}
	if c.closed.Load() {
		return models.ErrClosed
	}

	if !accepted {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginMethodToken, metrics.ResultRejected).Inc()
		c.logger.Info("cached token rejected")

		c.ShowSnackbar(MessageTokenExpired)
		if err := c.session.ClearToken(ctx); err != nil {
			c.logger.Warn("failed to clear rejected token", zap.Error(err))
		}
		c.setLoading(false)
		return models.ErrTokenRejected
	}

	metrics.LoginAttempts.WithLabelValues(metrics.LoginMethodToken, metrics.ResultSuccess).Inc()
	c.logger.Info("logged in with cached token")

	return c.HandleSuccessfulLogin(ctx)
}

// LoginWithPassword logs in with credentials. It is refused while CanLogin
// is false.
func (c *Coordinator) LoginWithPassword(ctx context.Context, username, password string) error {
	if c.closed.Load() {
		return models.ErrClosed
	}

	if !c.canLogin.Get() {
		if !c.Snapshot().Connected {
			return models.ErrNotConnected
		}
		return models.ErrLoginBlocked
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	c.setLoading(true)

	accepted, err := c.channel.LoginWithPassword(ctx, username, password)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginMethodPassword, metrics.ResultError).Inc()
		return c.fail(ctx, fmt.Errorf("failed to log in: %w", err))
	}
	if c.closed.Load() {
		return models.ErrClosed
	}

	if !accepted {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginMethodPassword, metrics.ResultRejected).Inc()
		c.logger.Info("password login rejected", zap.String("username", username))

		c.ShowSnackbar(MessageInvalidCredentials)
		c.setLoading(false)
		return models.ErrInvalidCredentials
	}

	metrics.LoginAttempts.WithLabelValues(metrics.LoginMethodPassword, metrics.ResultSuccess).Inc()
	c.logger.Info("logged in with password", zap.String("username", username))

	return c.HandleSuccessfulLogin(ctx)
}

// HandleSuccessfulLogin finishes any login: it replaces the cached token,
// drops the push subscriptions and navigates to the redirect target.
//
// An empty generated token stops the sequence with models.ErrEmptyToken
// and keeps the user on the sign-in screen.
func (c *Coordinator) HandleSuccessfulLogin(ctx context.Context) error {
	if c.closed.Load() {
		return models.ErrClosed
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	c.setLoading(true)
	c.sink.Dismiss()

	if err := c.GenerateToken(ctx); err != nil {
		switch {
		case errors.Is(err, models.ErrClosed):
			return err
		case errors.Is(err, models.ErrEmptyToken):
			c.setLoading(false)
			return err
		}
		return c.fail(ctx, err)
	}

	c.unsubscribeAll()

	target := c.RedirectURL(ctx)
	if c.closed.Load() {
		return models.ErrClosed
	}
	if err := c.navigator.Navigate(ctx, target); err != nil {
		return c.fail(ctx, fmt.Errorf("failed to navigate to %s: %w", target, err))
	}

	c.setLoading(false)
	c.logger.Info("login completed", zap.String(logging.FieldRedirect, target))

	return nil
}

// GenerateToken asks the appliance for a new session token and caches it.
// An empty token leaves the cached one alone and notifies the user.
func (c *Coordinator) GenerateToken(ctx context.Context) error {
	if c.closed.Load() {
		return models.ErrClosed
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	tok, err := c.channel.GenerateToken(ctx, TokenLifetime)
	if c.closed.Load() {
		return models.ErrClosed
	}
	if err != nil {
		metrics.TokenGenerations.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("failed to generate token: %w", err)
	}

	if tok == "" {
		metrics.TokenGenerations.WithLabelValues(metrics.ResultEmpty).Inc()
		c.logger.Warn("appliance returned an empty token")
		c.ShowSnackbar(MessageTokenGenerationError)
		return models.ErrEmptyToken
	}

	if err := c.session.SetToken(ctx, tok); err != nil {
		metrics.TokenGenerations.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("failed to cache token: %w", err)
	}

	metrics.TokenGenerations.WithLabelValues(metrics.ResultSuccess).Inc()
	return nil
}

// RedirectURL resolves where to go after login: the session's pending
// redirect, else the last visited URL from session storage, else
// DefaultRedirect.
func (c *Coordinator) RedirectURL(ctx context.Context) string {
	if url := c.session.RedirectURL(); url != "" {
		return url
	}

	if c.storage != nil {
		url, ok, err := c.storage.Get(ctx, store.KeyCurrentURL)
		if err != nil {
			c.logger.Warn("failed to read current url", zap.Error(err))
		} else if ok && url != "" {
			return url
		}
	}

	return DefaultRedirect
}

// ShowSnackbar shows message with a Close action at the bottom of the
// screen for four seconds.
func (c *Coordinator) ShowSnackbar(message string) {
	c.sink.Show(message, ActionClose, notify.Options{
		Duration: SnackbarDuration,
		Position: notify.PositionBottom,
	})
}

func (c *Coordinator) setLoading(loading bool) {
	c.update(func(s *state) { s.isLoading = loading })
}

// fail ends a sequence: loading stops and err goes to the error reporter.
// After Close nothing is reported and ErrClosed is returned instead.
func (c *Coordinator) fail(ctx context.Context, err error) error {
	if c.closed.Load() {
		c.logger.Debug("sequence ended by close", zap.Error(err))
		return models.ErrClosed
	}

	c.setLoading(false)

	if errors.Is(err, context.Canceled) {
		c.logger.Debug("sequence cancelled", zap.Error(err))
		return err
	}

	c.logger.Error("sign-in sequence failed", zap.Error(err))
	c.errors.Report(ctx, err)
	return err
}
