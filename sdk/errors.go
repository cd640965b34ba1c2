package sdk

import (
	"errors"
	"fmt"
)

// Common SDK errors that clients can check for specific error handling.
var (
	// ErrInvalidConfig indicates the client configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid client configuration")

	// ErrNoBaseURLs indicates no appliance URLs were provided.
	ErrNoBaseURLs = errors.New("no base URLs provided for appliance")

	// ErrAllInstancesFailed indicates every appliance endpoint is unreachable.
	ErrAllInstancesFailed = errors.New("all appliance endpoints failed")

	// ErrServerError indicates an HTTP 5xx from the appliance.
	ErrServerError = errors.New("internal server error")

	// ErrNoEventBus indicates push subscriptions were requested without a bus.
	ErrNoEventBus = errors.New("no event bus configured")

	// ErrClientStopped indicates the client has been stopped.
	ErrClientStopped = errors.New("client stopped")
)

// RPC error codes used by the appliance.
const (
	CodeNotAuthenticated = 13
	CodeInvalidParams    = 22
	CodeMethodNotFound   = 38
	CodeInternal         = 500
)

// RPCError is the single error category surfaced for a failed call.
type RPCError struct {
	// Method is the RPC method that failed
	Method string `json:"-"`

	// Code is the appliance error code
	Code int `json:"code"`

	// Message is the appliance error message
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s failed (code %d): %s", e.Method, e.Code, e.Message)
}

// IsNotAuthenticated reports whether err is an RPC error for a call that
// needed an authenticated session.
func IsNotAuthenticated(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == CodeNotAuthenticated
}
