package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/config"
	"github.com/yaroslav/nassession/internal/events"
	"github.com/yaroslav/nassession/internal/logging"
	"github.com/yaroslav/nassession/internal/notify"
	"github.com/yaroslav/nassession/internal/signin"
	"github.com/yaroslav/nassession/internal/store"
	"github.com/yaroslav/nassession/sdk"
)

// sessionRuntime is everything a sign-in needs, wired from configuration.
type sessionRuntime struct {
	logger      *zap.Logger
	store       store.Store
	bus         events.Bus
	client      *sdk.Client
	snackbar    *notify.Snackbar
	coordinator *signin.Coordinator

	mu     sync.Mutex
	target string
}

// openSessionRuntime opens the session store, connects the RPC channel and
// builds the coordinator. Notifications go to out, reported errors to errOut.
func openSessionRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger, out, errOut io.Writer) (*sessionRuntime, error) {
	if err := cfg.ValidateAppliance(); err != nil {
		return nil, fmt.Errorf("appliance config: %w", err)
	}

	rt := &sessionRuntime{logger: logger}

	st, err := store.OpenSQLite(cfg.Store.Path, logger)
	if err != nil {
		return nil, err
	}
	rt.store = st

	session := sdk.NewSession(st)
	if err := session.Load(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	bus, err := openBus(cfg.Events, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.bus = bus

	client, err := sdk.NewClient(cfg.Appliance, session, bus, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create appliance client: %w", err)
	}
	rt.client = client
	client.Start()

	rt.snackbar = notify.NewSnackbar(out, logger)

	coordinator, err := signin.New(signin.Config{
		Channel:   client,
		Session:   session,
		Sink:      rt.snackbar,
		Errors:    notify.NewLogReporter(errOut, logger),
		Navigator: signin.NavigatorFunc(rt.navigate),
		Storage:   st,
		Logger:    logger,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create sign-in coordinator: %w", err)
	}
	rt.coordinator = coordinator

	return rt, nil
}

// openBus connects the configured push-event transport.
func openBus(cfg config.EventsConfig, logger *zap.Logger) (events.Bus, error) {
	switch cfg.Backend {
	case config.EventsNATS:
		bus, err := events.NewNATSBus(cfg.NATS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect event bus: %w", err)
		}
		return bus, nil
	default:
		return events.NewMemoryBus(), nil
	}
}

// navigate records the post-login target. A terminal has no router, so
// the target becomes the stored current URL for the next run and for
// local UIs.
func (rt *sessionRuntime) navigate(ctx context.Context, url string) error {
	rt.mu.Lock()
	rt.target = url
	rt.mu.Unlock()

	rt.logger.Info("navigating", zap.String(logging.FieldRedirect, url))
	return rt.store.Set(ctx, store.KeyCurrentURL, url)
}

// Target returns where the last login navigated to, or "" if none has
// completed.
func (rt *sessionRuntime) Target() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.target
}

// Close tears everything down in reverse order of construction.
func (rt *sessionRuntime) Close() error {
	if rt.coordinator != nil {
		rt.coordinator.Close()
	}
	if rt.snackbar != nil {
		rt.snackbar.Close()
	}
	if rt.client != nil {
		rt.client.Stop()
	}

	var errs []error
	if rt.bus != nil {
		errs = append(errs, rt.bus.Close())
	}
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	return errors.Join(errs...)
}
