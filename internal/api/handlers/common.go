// Package handlers provides HTTP handlers for the local session API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yaroslav/nassession/models"
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	// Error is the error code (e.g., "login_blocked", "invalid_credentials").
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// RequestID is the unique request ID for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// SuccessResponse represents a standardized success response with data.
type SuccessResponse struct {
	// Data contains the response payload.
	Data any `json:"data,omitempty"`

	// Message is an optional success message.
	Message string `json:"message,omitempty"`
}

// respondError sends a standardized error response.
func respondError(c *gin.Context, statusCode int, errorCode string, message string) {
	requestID := ""
	if val, exists := c.Get("request_id"); exists {
		if id, ok := val.(string); ok {
			requestID = id
		}
	}

	c.JSON(statusCode, ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: requestID,
	})
}

// respondSuccess sends a standardized success response with data.
func respondSuccess(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, SuccessResponse{
		Data: data,
	})
}

// mapErrorToResponse converts a sign-in error to an HTTP response.
func mapErrorToResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "Wrong username or password.")

	case errors.Is(err, models.ErrLoginBlocked):
		respondError(c, http.StatusForbidden, "login_blocked", "Login is not allowed on this controller")

	case errors.Is(err, models.ErrNotConnected), errors.Is(err, models.ErrClosed):
		respondError(c, http.StatusServiceUnavailable, "not_connected", "Not connected to the appliance")

	case errors.Is(err, models.ErrEmptyToken):
		respondError(c, http.StatusBadGateway, "token_generation_failed", "Error generating token, please try again.")

	default:
		// The appliance error itself has already been reported.
		respondError(c, http.StatusBadGateway, "appliance_error", "The appliance returned an error")
	}
}
