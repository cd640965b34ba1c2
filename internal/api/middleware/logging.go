// Package middleware provides HTTP middleware for the local session API.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yaroslav/nassession/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestLogger attaches a request-scoped logger to the request context and
// logs each completed request. A UUID sent in RequestIDHeader is reused so
// a UI can correlate its own logs; anything else gets a fresh id.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		reqLogger := logger.With(
			zap.String(logging.FieldRequestID, requestID),
			zap.String(logging.FieldMethod, c.Request.Method),
			zap.String(logging.FieldPath, c.Request.URL.Path),
			zap.String(logging.FieldRemoteAddr, c.ClientIP()),
		)
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		level, msg := completion(status)
		if ce := reqLogger.Check(level, msg); ce != nil {
			fields := []zap.Field{
				zap.Int(logging.FieldStatusCode, status),
				zap.Duration(logging.FieldDuration, time.Since(start)),
			}
			if len(c.Errors) > 0 {
				fields = append(fields, zap.String("error", c.Errors.String()))
			}
			ce.Write(fields...)
		}
	}
}

func completion(status int) (zapcore.Level, string) {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel, "request failed"
	case status >= 400:
		return zapcore.WarnLevel, "request rejected"
	default:
		return zapcore.InfoLevel, "request completed"
	}
}

// GetRequestID returns the id RequestLogger assigned, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
