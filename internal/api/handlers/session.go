package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/logging"
	"github.com/yaroslav/nassession/internal/notify"
	"github.com/yaroslav/nassession/internal/observable"
	"github.com/yaroslav/nassession/models"
)

// SessionService is the sign-in state the API exposes.
// *signin.Coordinator satisfies it.
type SessionService interface {
	Snapshot() models.SessionSnapshot
	Snapshots() observable.Reader[models.SessionSnapshot]
	LoginWithPassword(ctx context.Context, username, password string) error
	RedirectURL(ctx context.Context) string
}

// NoticeSource exposes the visible notification, if any.
// *notify.Snackbar satisfies it.
type NoticeSource interface {
	Current() (notify.Message, bool)
}

// SessionHandler serves the sign-in state.
type SessionHandler struct {
	service SessionService
	notices NoticeSource
	logger  *zap.Logger
}

// NewSessionHandler creates a session handler. notices may be nil.
func NewSessionHandler(service SessionService, notices NoticeSource, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{service: service, notices: notices, logger: logger}
}

// SessionResponse is the body of GET /api/v1/session.
type SessionResponse struct {
	models.SessionSnapshot

	// Notification is the visible transient message, if any.
	Notification *notify.Message `json:"notification,omitempty"`
}

// LoginRequest is the body of POST /api/v1/session/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Redirect string `json:"redirect"`
}

// GetSession handles GET /api/v1/session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	resp := SessionResponse{SessionSnapshot: h.service.Snapshot()}
	if h.notices != nil {
		if msg, ok := h.notices.Current(); ok {
			resp.Notification = &msg
		}
	}
	respondSuccess(c, http.StatusOK, resp)
}

// Events handles GET /api/v1/session/events as a server-sent event stream.
// Each event carries a full snapshot; the first one is sent immediately.
func (h *SessionHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	updates := h.service.Snapshots().Watch(ctx)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("session", snap)
			return true
		}
	})
}

// Login handles POST /api/v1/session/login.
func (h *SessionHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	if err := h.service.LoginWithPassword(c.Request.Context(), req.Username, req.Password); err != nil {
		h.requestLogger(c).Info("login failed", zap.String("username", req.Username), zap.Error(err))
		mapErrorToResponse(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, LoginResponse{
		Redirect: h.service.RedirectURL(c.Request.Context()),
	})
}

// requestLogger prefers the request-scoped logger set by the middleware.
func (h *SessionHandler) requestLogger(c *gin.Context) *zap.Logger {
	if l, ok := logging.Lookup(c.Request.Context()); ok {
		return l
	}
	return h.logger
}
