// Package simulator is a development stand-in for a storage appliance. It
// serves the RPC methods the sign-in flow uses and publishes failover push
// events, so the CLI and the SDK can be exercised without real hardware.
package simulator

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yaroslav/nassession/internal/events"
	"github.com/yaroslav/nassession/models"
	"github.com/yaroslav/nassession/pkg/token"
	"github.com/yaroslav/nassession/sdk"
)

// Config describes the simulated appliance.
type Config struct {
	// Username is the administrator account name. Default: "root".
	Username string `yaml:"username"`

	// RootPassword is the administrator password. Empty means none is set,
	// so user.has_root_password answers false and password logins fail.
	RootPassword string `yaml:"root_password"`

	// Status is the initial failover status. Default: SINGLE.
	Status models.FailoverStatus `yaml:"status"`

	// IPs are the management addresses advertised for a failover pair.
	IPs []string `yaml:"ips"`

	// DisabledReasons are the initial failover disabled reasons.
	DisabledReasons []models.DisabledReason `yaml:"disabled_reasons"`

	// TokenSecret keys the HMAC used to store issued tokens.
	// Default: a random value per process.
	TokenSecret string `yaml:"token_secret"`
}

type injectedError struct {
	code    int
	message string
}

type issuedToken struct {
	expiresAt time.Time
}

// Appliance is the simulated appliance state.
type Appliance struct {
	bus    events.Bus
	logger *zap.Logger
	now    func() time.Time

	mu           sync.Mutex
	username     string
	passwordHash []byte
	status       models.FailoverStatus
	ips          []string
	reasons      []models.DisabledReason
	secret       string
	sessions     map[string]struct{}
	tokens       map[string]issuedToken
	failures     map[string]injectedError
	emptyTokens  bool
	calls        map[string]int
}

// New builds an appliance. bus may be nil, in which case state changes are
// not pushed.
func New(cfg Config, bus events.Bus, logger *zap.Logger) (*Appliance, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Username == "" {
		cfg.Username = "root"
	}
	if cfg.Status == "" {
		cfg.Status = models.FailoverSingle
	}
	if !cfg.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, cfg.Status)
	}
	if cfg.TokenSecret == "" {
		secret, err := token.Generate()
		if err != nil {
			return nil, err
		}
		cfg.TokenSecret = secret
	}

	a := &Appliance{
		bus:      bus,
		logger:   logger.With(zap.String("component", "simulator")),
		now:      time.Now,
		username: cfg.Username,
		status:   cfg.Status,
		ips:      slices.Clone(cfg.IPs),
		reasons:  slices.Clone(cfg.DisabledReasons),
		secret:   cfg.TokenSecret,
		sessions: make(map[string]struct{}),
		tokens:   make(map[string]issuedToken),
		failures: make(map[string]injectedError),
		calls:    make(map[string]int),
	}

	if cfg.RootPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.RootPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash root password: %w", err)
		}
		a.passwordHash = hash
	}

	return a, nil
}

// Handler returns the HTTP handler serving the RPC endpoint.
func (a *Appliance) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	router.POST(sdk.RPCPath, a.handleRPC)
	return router
}

// SetFailoverStatus changes the failover status and pushes the change.
func (a *Appliance) SetFailoverStatus(ctx context.Context, status models.FailoverStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidStatus, status)
	}

	a.mu.Lock()
	a.status = status
	a.mu.Unlock()

	a.logger.Info("failover status changed", zap.String("failover_status", string(status)))
	return a.publish(ctx, events.TopicFailoverStatus, map[string]any{"status": status})
}

// SetDisabledReasons changes the disabled reasons and pushes the change.
func (a *Appliance) SetDisabledReasons(ctx context.Context, reasons []models.DisabledReason) error {
	a.mu.Lock()
	a.reasons = slices.Clone(reasons)
	a.mu.Unlock()

	if reasons == nil {
		reasons = []models.DisabledReason{}
	}
	return a.publish(ctx, events.TopicFailoverDisabledReasons, map[string]any{"disabled_reasons": reasons})
}

func (a *Appliance) publish(ctx context.Context, topic string, fields any) error {
	if a.bus == nil {
		return nil
	}
	ev, err := events.NewEvent(topic, fields)
	if err != nil {
		return err
	}
	return a.bus.Publish(ctx, topic, ev)
}

// FailMethod makes every later call to method answer with an RPC error.
func (a *Appliance) FailMethod(method string, code int, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[method] = injectedError{code: code, message: message}
}

// ClearFailures removes all injected errors.
func (a *Appliance) ClearFailures() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = make(map[string]injectedError)
}

// IssueEmptyTokens makes auth.generate_token answer with an empty string.
func (a *Appliance) IssueEmptyTokens(empty bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.emptyTokens = empty
}

// IssueToken mints a token directly, as if generated by an earlier session.
func (a *Appliance) IssueToken(lifetime time.Duration) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issueTokenLocked(lifetime)
}

func (a *Appliance) issueTokenLocked(lifetime time.Duration) (string, error) {
	tok, err := token.Generate()
	if err != nil {
		return "", err
	}
	a.tokens[token.Hash(tok, a.secret)] = issuedToken{expiresAt: a.now().Add(lifetime)}
	return tok, nil
}

// Calls returns how many times method has been invoked.
func (a *Appliance) Calls(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method]
}

// Sessions returns the number of authenticated sessions.
func (a *Appliance) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

func (a *Appliance) newSessionLocked() string {
	id := uuid.NewString()
	a.sessions[id] = struct{}{}
	return id
}
