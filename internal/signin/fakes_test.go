package signin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yaroslav/nassession/internal/events"
	"github.com/yaroslav/nassession/internal/notify"
	"github.com/yaroslav/nassession/internal/observable"
	"github.com/yaroslav/nassession/models"
)

var errRPC = errors.New("rpc error: boom")

type subCall struct {
	topic string
	id    string
}

// fakeChannel is a scripted appliance channel backed by a MemoryBus.
type fakeChannel struct {
	bus       *events.MemoryBus
	connected *observable.Value[bool]

	mu sync.Mutex

	hasRootPassword    bool
	hasRootPasswordErr error
	rootPasswordDelay  time.Duration

	status      models.FailoverStatus
	statusErr   error
	statusDelay time.Duration

	ips        []string
	ipsErr     error
	reasons    []models.DisabledReason
	reasonsErr error

	tokenAccepted    bool
	tokenErr         error
	passwordAccepted bool
	passwordErr      error

	generated   string
	generateErr error

	// generateGate, when set, holds GenerateToken until closed, ignoring
	// ctx like an RPC whose answer is already on the wire.
	generateGate    chan struct{}
	generateStarted chan struct{}
	generateCtxErr  error

	calls        []string
	tokensTried  []string
	lifetimes    []time.Duration
	subscribed   []subCall
	unsubscribed []subCall
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		bus:             events.NewMemoryBus(),
		connected:       observable.New(true),
		hasRootPassword: true,
		status:          models.FailoverSingle,
		generated:       "fresh-token",
	}
}

func (f *fakeChannel) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeChannel) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeChannel) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d == 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeChannel) HasRootPassword(ctx context.Context) (bool, error) {
	if err := sleepCtx(ctx, f.rootPasswordDelay); err != nil {
		return false, err
	}
	f.record("user.has_root_password")
	return f.hasRootPassword, f.hasRootPasswordErr
}

func (f *fakeChannel) FailoverStatus(ctx context.Context) (models.FailoverStatus, error) {
	if err := sleepCtx(ctx, f.statusDelay); err != nil {
		return "", err
	}
	f.record("failover.status")
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.status, nil
}

func (f *fakeChannel) FailoverIPs(ctx context.Context) ([]string, error) {
	f.record("failover.get_ips")
	return f.ips, f.ipsErr
}

func (f *fakeChannel) FailoverDisabledReasons(ctx context.Context) ([]models.DisabledReason, error) {
	f.record("failover.disabled.reasons")
	return f.reasons, f.reasonsErr
}

func (f *fakeChannel) LoginWithToken(ctx context.Context, token string) (bool, error) {
	f.record("auth.login_with_token")
	f.mu.Lock()
	f.tokensTried = append(f.tokensTried, token)
	f.mu.Unlock()
	return f.tokenAccepted, f.tokenErr
}

func (f *fakeChannel) LoginWithPassword(ctx context.Context, username, password string) (bool, error) {
	f.record("auth.login")
	return f.passwordAccepted, f.passwordErr
}

func (f *fakeChannel) GenerateToken(ctx context.Context, lifetime time.Duration) (string, error) {
	f.record("auth.generate_token")
	f.mu.Lock()
	f.lifetimes = append(f.lifetimes, lifetime)
	f.mu.Unlock()

	if f.generateGate != nil {
		close(f.generateStarted)
		<-f.generateGate
		f.mu.Lock()
		f.generateCtxErr = ctx.Err()
		f.mu.Unlock()
	}

	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.generated, nil
}

func (f *fakeChannel) Subscribe(topic, id string) (*events.Subscription, error) {
	f.record("sub:" + topic)
	f.mu.Lock()
	f.subscribed = append(f.subscribed, subCall{topic, id})
	f.mu.Unlock()
	return f.bus.Subscribe(topic, id)
}

func (f *fakeChannel) Unsubscribe(topic, id string) error {
	f.record("unsub:" + topic)
	f.mu.Lock()
	f.unsubscribed = append(f.unsubscribed, subCall{topic, id})
	f.mu.Unlock()
	return f.bus.Unsubscribe(topic, id)
}

func (f *fakeChannel) Connected() observable.Reader[bool] {
	return f.connected
}

func (f *fakeChannel) publish(topic string, fields any) error {
	ev, err := events.NewEvent(topic, fields)
	if err != nil {
		return err
	}
	return f.bus.Publish(context.Background(), topic, ev)
}

// fakeSession is an in-memory session context.
type fakeSession struct {
	mu       sync.Mutex
	token    string
	redirect string
	clearErr error
}

func (s *fakeSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) HasToken() bool { return s.Token() != "" }

func (s *fakeSession) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *fakeSession) ClearToken(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.token = ""
	return nil
}

func (s *fakeSession) RedirectURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirect
}

type shown struct {
	message string
	action  string
	opts    notify.Options
}

// recordingSink remembers every notification.
type recordingSink struct {
	mu        sync.Mutex
	shown     []shown
	dismissed int
}

func (s *recordingSink) Show(message, action string, opts notify.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, shown{message, action, opts})
}

func (s *recordingSink) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissed++
}

func (s *recordingSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.shown {
		out = append(out, m.message)
	}
	return out
}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) Report(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) reported() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

type recordingNavigator struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (n *recordingNavigator) Navigate(_ context.Context, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	return n.err
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}
