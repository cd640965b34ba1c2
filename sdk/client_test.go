package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yaroslav/nassession/internal/events"
	"github.com/yaroslav/nassession/internal/store"
)

// rpcServer answers every call with result, recording request methods.
func rpcServer(t *testing.T, handle func(w http.ResponseWriter, req Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RPCPath || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handle(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeResult(w http.ResponseWriter, id int64, result any) {
	data, _ := json.Marshal(result)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", ID: id, Result: data})
}

func newTestClient(t *testing.T, urls ...string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		BaseURLs:          urls,
		RetryAttempts:     1,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      2 * time.Millisecond,
		KeepaliveInterval: 10 * time.Millisecond,
	}, NewSession(store.NewMemoryStore()), nil, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(client.Stop)
	return client
}

func TestNewClient_InvalidConfig(t *testing.T) {
	if _, err := NewClient(ClientConfig{}, nil, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestClient_CallDecodesResult(t *testing.T) {
	srv := rpcServer(t, func(w http.ResponseWriter, req Request) {
		if req.Method != MethodFailoverIPs {
			t.Errorf("unexpected method %s", req.Method)
		}
		if req.JSONRPC != "2.0" || req.ID == 0 {
			t.Errorf("malformed envelope: %+v", req)
		}
		writeResult(w, req.ID, []string{"10.0.0.1", "10.0.0.2"})
	})

	client := newTestClient(t, srv.URL)
	ips, err := client.FailoverIPs(context.Background())
	if err != nil {
		t.Fatalf("FailoverIPs() error = %v", err)
	}
	if len(ips) != 2 || ips[0] != "10.0.0.1" || ips[1] != "10.0.0.2" {
		t.Fatalf("unexpected ips: %v", ips)
	}
	if !client.IsConnected() {
		t.Error("client should be connected after a successful call")
	}
}

func TestClient_CallReturnsRPCError(t *testing.T) {
	srv := rpcServer(t, func(w http.ResponseWriter, req Request) {
		json.NewEncoder(w).Encode(Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: CodeNotAuthenticated, Message: "Not authenticated"},
		})
	})

	client := newTestClient(t, srv.URL)
	_, err := client.GenerateToken(context.Background(), 300*time.Second)

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %T %v", err, err)
	}
	if rpcErr.Method != MethodGenerateToken {
		t.Errorf("Method = %s, want %s", rpcErr.Method, MethodGenerateToken)
	}
	if !IsNotAuthenticated(err) {
		t.Error("IsNotAuthenticated() = false, want true")
	}
	if !client.IsConnected() {
		t.Error("an RPC error is still an answer; client should be connected")
	}
}

func TestClient_GenerateTokenSendsLifetimeSeconds(t *testing.T) {
	var got []any
	srv := rpcServer(t, func(w http.ResponseWriter, req Request) {
		got = req.Params
		writeResult(w, req.ID, "tok")
	})

	client := newTestClient(t, srv.URL)
	tok, err := client.GenerateToken(context.Background(), 300*time.Second)
	if err != nil || tok != "tok" {
		t.Fatalf("GenerateToken() = %q, %v", tok, err)
	}
	if len(got) != 1 || got[0] != float64(300) {
		t.Fatalf("expected params [300], got %v", got)
	}
}

func TestClient_SessionIDPropagation(t *testing.T) {
	var sawSession atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		switch req.Method {
		case MethodLoginWithToken:
			w.Header().Set(HeaderSessionID, "session-1")
			writeResult(w, req.ID, true)
		default:
			if r.Header.Get(HeaderSessionID) == "session-1" {
				sawSession.Store(true)
			}
			writeResult(w, req.ID, "new-token")
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ok, err := client.LoginWithToken(context.Background(), "old-token")
	if err != nil || !ok {
		t.Fatalf("LoginWithToken() = %v, %v", ok, err)
	}
	if _, err := client.GenerateToken(context.Background(), time.Minute); err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !sawSession.Load() {
		t.Error("session id from login was not sent on the next call")
	}
}

func TestClient_FailsOverToSecondController(t *testing.T) {
	var downCalls atomic.Int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downCalls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	up := rpcServer(t, func(w http.ResponseWriter, req Request) {
		writeResult(w, req.ID, "MASTER")
	})

	client := newTestClient(t, down.URL, up.URL)
	status, err := client.FailoverStatus(context.Background())
	if err != nil {
		t.Fatalf("FailoverStatus() error = %v", err)
	}
	if status != "MASTER" {
		t.Errorf("status = %s, want MASTER", status)
	}

	// 1 attempt + 1 retry on the failing controller
	if n := downCalls.Load(); n != 2 {
		t.Errorf("expected 2 calls to failing controller, got %d", n)
	}

	// The controller that answered is now tried first.
	if got := client.buildURLList()[0]; got != up.URL {
		t.Errorf("active URL = %s, want %s", got, up.URL)
	}
	if _, err := client.FailoverStatus(context.Background()); err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if n := downCalls.Load(); n != 2 {
		t.Errorf("failing controller should not be retried first, got %d calls", n)
	}
}

func TestClient_AllInstancesFailedMarksDisconnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	client.connected.Set(true)

	err := client.Ping(context.Background())
	if !errors.Is(err, ErrAllInstancesFailed) {
		t.Fatalf("expected ErrAllInstancesFailed, got %v", err)
	}
	if client.IsConnected() {
		t.Error("client should be disconnected after all endpoints failed")
	}
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	err := client.Call(context.Background(), MethodPing, nil, nil)

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != http.StatusForbidden {
		t.Fatalf("expected RPCError with 403, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestClient_KeepaliveDrivesConnectedSignal(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		writeResult(w, req.ID, "pong")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	watch := client.Connected().Watch(ctx)
	client.Start()
	client.Start() // second start is a no-op

	waitFor(t, watch, true)
	healthy.Store(false)
	waitFor(t, watch, false)

	client.Stop()
	if client.IsConnected() {
		t.Error("stopped client must report disconnected")
	}
}

func waitFor(t *testing.T, ch <-chan bool, want bool) {
	t.Helper()
	for {
		v, ok := <-ch
		if !ok {
			t.Fatalf("watch closed before connected=%v", want)
		}
		if v == want {
			return
		}
	}
}

func TestClient_SubscribeWithoutBus(t *testing.T) {
	client := newTestClient(t, "https://nas.example.com")
	if _, err := client.Subscribe(events.TopicFailoverStatus, "id"); !errors.Is(err, ErrNoEventBus) {
		t.Fatalf("expected ErrNoEventBus, got %v", err)
	}
	if err := client.Unsubscribe(events.TopicFailoverStatus, "id"); err != nil {
		t.Fatalf("Unsubscribe() without bus should be a no-op, got %v", err)
	}
}

func TestClient_SubscribeDelegatesToBus(t *testing.T) {
	bus := events.NewMemoryBus()
	defer bus.Close()

	client, err := NewClient(ClientConfig{BaseURLs: []string{"https://nas.example.com"}}, nil, bus, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.Subscribe(events.TopicFailoverStatus, "id"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if bus.Subscribers(events.TopicFailoverStatus) != 1 {
		t.Fatal("expected subscription on the bus")
	}
	if err := client.Unsubscribe(events.TopicFailoverStatus, "id"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if bus.Subscribers(events.TopicFailoverStatus) != 0 {
		t.Fatal("expected subscription to be removed")
	}
}

func TestCalculateBackoff(t *testing.T) {
	client := &Client{retryWaitMin: 10 * time.Millisecond, retryWaitMax: 40 * time.Millisecond}
	for attempt := 0; attempt < 6; attempt++ {
		d := client.calculateBackoff(attempt)
		if d < client.retryWaitMin || d > client.retryWaitMax {
			t.Errorf("attempt %d: backoff %v outside [%v, %v]", attempt, d, client.retryWaitMin, client.retryWaitMax)
		}
	}
}
