package signin

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/events"
	"github.com/yaroslav/nassession/internal/metrics"
	"github.com/yaroslav/nassession/internal/notify"
	"github.com/yaroslav/nassession/internal/observable"
	"github.com/yaroslav/nassession/internal/store"
	"github.com/yaroslav/nassession/models"
)

// state is the session record. It is only touched through update.
type state struct {
	isLoading       bool
	hasRootPassword bool
	failover        *models.FailoverInfo
	connected       bool
}

// Coordinator owns the sign-in session state.
type Coordinator struct {
	channel   Channel
	session   SessionContext
	sink      notify.Sink
	errors    notify.ErrorReporter
	navigator Navigator
	storage   store.Store
	logger    *zap.Logger

	// Subscription ids are fixed for the coordinator's lifetime.
	statusSubID  string
	reasonsSubID string

	// mu protects st and subs.
	mu   sync.Mutex
	st   state
	subs map[string]*events.Subscription

	hasRootPassword *observable.Value[bool]
	failoverInfo    *observable.Value[*models.FailoverInfo]
	isLoading       *observable.Value[bool]
	canLogin        *observable.Value[bool]
	hasFailoverPair *observable.Value[bool]
	snapshot        *observable.Value[models.SessionSnapshot]

	initialized atomic.Bool
	closed      atomic.Bool
	closeOnce   sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a coordinator and starts following the channel's connection
// signal. Call Close to release it.
func New(config Config) (*Coordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	initial := state{hasRootPassword: true}

	c := &Coordinator{
		channel:      config.Channel,
		session:      config.Session,
		sink:         config.Sink,
		errors:       config.Errors,
		navigator:    config.Navigator,
		storage:      config.Storage,
		logger:       config.Logger.With(zap.String("component", "signin")),
		statusSubID:  uuid.NewString(),
		reasonsSubID: uuid.NewString(),
		st:           initial,
		subs:         make(map[string]*events.Subscription),

		hasRootPassword: observable.New(initial.hasRootPassword),
		failoverInfo:    observable.New[*models.FailoverInfo](nil),
		isLoading:       observable.New(false),
		canLogin:        observable.New(false),
		hasFailoverPair: observable.New(false),
		snapshot:        observable.New(initial.snapshot()),

		ctx:    ctx,
		cancel: cancel,
	}

	c.wg.Add(1)
	go c.watchConnected()

	return c, nil
}

// HasRootPassword reports whether the superuser has a local password.
// It is true until the appliance says otherwise.
func (c *Coordinator) HasRootPassword() observable.Reader[bool] { return c.hasRootPassword }

// FailoverInfo is nil until the failover status is known.
// Values are copies and may be kept by the caller.
func (c *Coordinator) FailoverInfo() observable.Reader[*models.FailoverInfo] { return c.failoverInfo }

// IsLoading is true while a bootstrap, login or token sequence runs.
func (c *Coordinator) IsLoading() observable.Reader[bool] { return c.isLoading }

// CanLogin is true when the channel is connected and the appliance is
// SINGLE or MASTER.
func (c *Coordinator) CanLogin() observable.Reader[bool] { return c.canLogin }

// HasFailoverPair is true when the failover status is known and not SINGLE.
func (c *Coordinator) HasFailoverPair() observable.Reader[bool] { return c.hasFailoverPair }

// Snapshots publishes the whole state on every change.
func (c *Coordinator) Snapshots() observable.Reader[models.SessionSnapshot] { return c.snapshot }

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() models.SessionSnapshot {
	return c.snapshot.Get()
}

// SubscriptionIDs returns the ids used for the status and disabled-reasons
// push subscriptions.
func (c *Coordinator) SubscriptionIDs() (status, reasons string) {
	return c.statusSubID, c.reasonsSubID
}

// Close cancels push subscriptions, stops background goroutines and
// dismisses any visible notification. It is safe to call more than once.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.unsubscribeAll()
		c.cancel()
		c.wg.Wait()
		c.sink.Dismiss()
		c.logger.Debug("coordinator closed")
	})
}

// bind derives an operation context that is also cancelled by Close.
func (c *Coordinator) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// update applies fn to the state and republishes every projection.
// The state is frozen once the coordinator is closed.
func (c *Coordinator) update(fn func(*state)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return
	}
	fn(&c.st)
	c.publishLocked()
}

func (c *Coordinator) publishLocked() {
	st := c.st

	observable.SetDistinct(c.hasRootPassword, st.hasRootPassword)
	observable.SetDistinct(c.isLoading, st.isLoading)
	observable.SetDistinct(c.canLogin, st.canLogin())
	observable.SetDistinct(c.hasFailoverPair, st.failover.HasPair())

	if !sameFailover(c.failoverInfo.Get(), st.failover) {
		c.failoverInfo.Set(st.failover.Clone())
	}

	c.snapshot.Set(st.snapshot())
}

func (s state) canLogin() bool {
	return s.connected && s.failover != nil && s.failover.Status.AllowsLogin()
}

func (s state) snapshot() models.SessionSnapshot {
	return models.SessionSnapshot{
		IsLoading:       s.isLoading,
		HasRootPassword: s.hasRootPassword,
		Failover:        s.failover.Clone(),
		CanLogin:        s.canLogin(),
		HasFailoverPair: s.failover.HasPair(),
		Connected:       s.connected,
	}
}

func sameFailover(a, b *models.FailoverInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Status == b.Status &&
		slices.Equal(a.IPs, b.IPs) &&
		slices.Equal(a.DisabledReasons, b.DisabledReasons)
}

// watchConnected mirrors the channel's connection signal into the state.
func (c *Coordinator) watchConnected() {
	defer c.wg.Done()

	for connected := range c.channel.Connected().Watch(c.ctx) {
		c.update(func(s *state) { s.connected = connected })
		metrics.SetConnected(connected)
		c.logger.Debug("channel connection changed", zap.Bool("connected", connected))
	}
}
