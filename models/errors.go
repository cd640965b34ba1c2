package models

import "errors"

// Common error types used throughout the sign-in flow.
// These errors provide semantic meaning and enable consistent error handling
// across the SDK, the coordinator and the local API.

var (
	// ErrTokenRejected indicates the appliance refused a cached session token.
	// The token is expired or was revoked; the user must log in again.
	ErrTokenRejected = errors.New("session token rejected")

	// ErrEmptyToken indicates auth.generate_token returned an empty token.
	ErrEmptyToken = errors.New("appliance returned an empty token")

	// ErrInvalidCredentials indicates a username/password login was refused.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNotConnected indicates the RPC channel has no live connection.
	ErrNotConnected = errors.New("not connected to appliance")

	// ErrLoginBlocked indicates login is not allowed for the current failover status.
	// Only SINGLE and MASTER nodes accept logins.
	ErrLoginBlocked = errors.New("login is not allowed on this node")

	// ErrAlreadyInitialized indicates the bootstrap sequence already ran.
	ErrAlreadyInitialized = errors.New("session coordinator already initialized")

	// ErrClosed indicates the coordinator has been torn down.
	ErrClosed = errors.New("session coordinator closed")

	// ErrInvalidStatus indicates an unknown failover status string.
	ErrInvalidStatus = errors.New("invalid failover status")
)

// ErrorResponse represents a standardized local API error response.
type ErrorResponse struct {
	// Error is the human-readable error message
	Error string `json:"error"`

	// Code is an optional error code for programmatic handling
	// Examples: "LOGIN_BLOCKED", "INVALID_CREDENTIALS", "NOT_CONNECTED"
	Code string `json:"code,omitempty"`
}
