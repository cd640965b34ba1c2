// Package sdk is the appliance RPC channel: request/response calls over
// JSON-RPC, server-push subscriptions, a connection signal and the cached
// session credential.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/events"
	"github.com/yaroslav/nassession/internal/observable"
)

// Client talks to a storage appliance (or a failover pair of controllers).
// It fails over between BaseURLs and remembers which endpoint answered last.
type Client struct {
	baseURLs          []string
	httpClient        *http.Client
	retryAttempts     int
	retryWaitMin      time.Duration
	retryWaitMax      time.Duration
	keepaliveInterval time.Duration

	session   *Session
	bus       events.Bus
	logger    *zap.Logger
	connected *observable.Value[bool]

	nextID atomic.Int64

	// mu protects activeURL and sessionID.
	mu        sync.RWMutex
	activeURL string
	sessionID string

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
}

// NewClient creates a client. session holds the cached token; bus carries
// push events and may be nil if no subscriptions are needed.
//
// Parameters:
//   - config: Endpoints, timeouts and retry settings
//   - session: Token cache shared with the sign-in coordinator; nil uses an in-memory one
//   - bus: Push-event transport, or nil
//   - logger: Logger for transport diagnostics; nil uses a no-op logger
//
// Returns:
//   - *Client: The client, not yet started
//   - error: An error if config is invalid
//
// Example:
//
//	client, err := sdk.NewClient(cfg.Appliance, session, bus, logger)
//	if err != nil {
//	    return fmt.Errorf("failed to create appliance client: %w", err)
//	}
//	client.Start()
//	defer client.Stop()
func NewClient(config ClientConfig, session *Session, bus events.Bus, logger *zap.Logger) (*Client, error) {
	// Validate and set defaults
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if session == nil {
		session = NewSession(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		baseURLs:          config.BaseURLs,
		httpClient:        config.HTTPClient,
		retryAttempts:     config.RetryAttempts,
		retryWaitMin:      config.RetryWaitMin,
		retryWaitMax:      config.RetryWaitMax,
		keepaliveInterval: config.KeepaliveInterval,
		session:           session,
		bus:               bus,
		logger:            logger.With(zap.String("component", "sdk")),
		connected:         observable.New(false),
		ctx:               ctx,
		cancel:            cancel,
	}, nil
}

// Session returns the shared session context.
func (c *Client) Session() *Session {
	return c.session
}

// Connected returns the connection signal.
func (c *Client) Connected() observable.Reader[bool] {
	return c.connected
}

// IsConnected reports the current connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Get()
}

// Start launches the keepalive loop. It is a no-op if already started.
func (c *Client) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}

	c.wg.Add(1)
	go c.keepaliveLoop()

	c.logger.Info("rpc client started",
		zap.Strings("base_urls", c.baseURLs),
		zap.Duration("keepalive_interval", c.keepaliveInterval),
	)
}

// Stop cancels the keepalive loop and waits for it to exit.
func (c *Client) Stop() {
	c.cancel()
	c.wg.Wait()
	observable.SetDistinct(c.connected, false)
}

// keepaliveLoop pings the appliance until the client is stopped.
func (c *Client) keepaliveLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.keepaliveInterval)
	defer ticker.Stop()

	c.keepalive()

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Debug("keepalive loop stopped")
			return
		case <-ticker.C:
			c.keepalive()
		}
	}
}

func (c *Client) keepalive() {
	ctx, cancel := context.WithTimeout(c.ctx, c.keepaliveInterval)
	defer cancel()

	err := c.Ping(ctx)
	if err == nil || c.ctx.Err() != nil {
		return
	}
	// A keepalive ping that ran out of time never reached the endpoint loop's verdict.
	if errors.Is(err, context.DeadlineExceeded) {
		observable.SetDistinct(c.connected, false)
	}
	c.logger.Debug("keepalive failed", zap.Error(err))
}

// Call performs one RPC. result may be nil when the caller doesn't need it.
// Transport failures move on to the next endpoint; an answer from any
// endpoint, including an RPC error, marks the channel connected.
//
// Parameters:
//   - ctx: Request context for cancellation and timeouts
//   - method: RPC method name (e.g. "failover.status")
//   - params: Positional parameters; nil sends an empty list
//   - result: Pointer to decode the result into, or nil
//
// Returns:
//   - error: *RPCError for an error answer, ErrAllInstancesFailed (wrapped)
//     when no endpoint answered, or ctx.Err() if the context ended first
func (c *Client) Call(ctx context.Context, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}

	// Encode once; every endpoint and retry gets the same body
	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	urls := c.buildURLList()
	if len(urls) == 0 {
		return ErrNoBaseURLs
	}

	var lastErr error

	// Try endpoints in order, last known good first
	for _, baseURL := range urls {
		resp, err := c.doRequestWithRetry(ctx, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+RPCPath, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
			if sid := c.getSessionID(); sid != "" {
				req.Header.Set(HeaderSessionID, sid)
			}
			return req, nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			lastErr = err
			if baseURL == c.getActiveURL() {
				c.clearActiveURL()
			}
			c.logger.Debug("endpoint failed",
				zap.String("base_url", baseURL),
				zap.String("method", method),
				zap.Error(err),
			)
			continue
		}

		c.setActiveURL(baseURL)
		observable.SetDistinct(c.connected, true)
		return c.decodeResponse(method, resp, result)
	}

	observable.SetDistinct(c.connected, false)

	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrAllInstancesFailed, lastErr)
	}
	return ErrAllInstancesFailed
}

// decodeResponse unpacks a JSON-RPC answer into result.
func (c *Client) decodeResponse(method string, resp *http.Response, result any) error {
	defer drainAndCloseBody(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RPCError{Method: method, Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var rpcResp Response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", method, err)
	}

	if sid := resp.Header.Get(HeaderSessionID); sid != "" {
		c.setSessionID(sid)
	}

	// Check for error answer
	if rpcResp.Error != nil {
		rpcResp.Error.Method = method
		return rpcResp.Error
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}

	return nil
}

// buildURLList puts the endpoint that answered last first.
func (c *Client) buildURLList() []string {
	active := c.getActiveURL()
	if active == "" {
		return c.baseURLs
	}

	urls := []string{active}
	for _, url := range c.baseURLs {
		if url != active {
			urls = append(urls, url)
		}
	}
	return urls
}

func (c *Client) getActiveURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeURL
}

func (c *Client) setActiveURL(url string) {
	c.mu.Lock()
	c.activeURL = url
	c.mu.Unlock()
}

func (c *Client) clearActiveURL() {
	c.mu.Lock()
	c.activeURL = ""
	c.mu.Unlock()
}

func (c *Client) getSessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) setSessionID(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

// Subscribe starts a push subscription for topic under the caller-chosen id.
func (c *Client) Subscribe(topic, id string) (*events.Subscription, error) {
	if c.bus == nil {
		return nil, ErrNoEventBus
	}
	return c.bus.Subscribe(topic, id)
}

// Unsubscribe cancels the push subscription (topic, id).
func (c *Client) Unsubscribe(topic, id string) error {
	if c.bus == nil {
		return nil
	}
	return c.bus.Unsubscribe(topic, id)
}
