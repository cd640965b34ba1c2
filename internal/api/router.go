// Package api serves the sign-in state to local UIs over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/api/handlers"
	"github.com/yaroslav/nassession/internal/api/middleware"
	"github.com/yaroslav/nassession/internal/metrics"
)

// RouterConfig holds configuration for setting up the HTTP router.
type RouterConfig struct {
	// Session is the sign-in state to serve. Required.
	Session handlers.SessionService

	// Notices exposes the visible notification. Optional.
	Notices handlers.NoticeSource

	// Connected reports the appliance channel state for readiness. Optional.
	Connected func() bool

	// Logger is the zap logger for request logging.
	Logger *zap.Logger

	// InstanceID identifies this process in health responses.
	InstanceID string

	// RateLimitRPS and RateLimitBurst bound requests per client IP.
	RateLimitRPS   float64
	RateLimitBurst int
}

// SetupRouter creates the gin engine with all routes and middleware.
// Background work started for the router stops when ctx is done.
func SetupRouter(ctx context.Context, config *RouterConfig) *gin.Engine {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RateLimitRPS <= 0 {
		config.RateLimitRPS = 10
	}
	if config.RateLimitBurst <= 0 {
		config.RateLimitBurst = 20
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger.With(zap.String("component", "api"))))

	limiter := middleware.NewRateLimiter(ctx, config.RateLimitRPS, config.RateLimitBurst, time.Minute)
	router.Use(middleware.RateLimitByIP(limiter))

	healthHandler := handlers.NewHealthHandler(config.InstanceID, config.Connected)
	sessionHandler := handlers.NewSessionHandler(config.Session, config.Notices, logger)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		metrics.Registry,
		promhttp.HandlerOpts{},
	)))

	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Liveness)
		health.GET("/ready", healthHandler.Readiness)
	}

	v1 := router.Group("/api/v1")

	session := v1.Group("/session")
	{
		// GET /api/v1/session - Current sign-in state
		session.GET("", sessionHandler.GetSession)

		// GET /api/v1/session/events - Sign-in state as server-sent events
		session.GET("/events", sessionHandler.Events)

		// POST /api/v1/session/login - Credential login
		session.POST("/login", sessionHandler.Login)
	}

	return router
}
