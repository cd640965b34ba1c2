package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yaroslav/nassession/internal/metrics"
)

const limitTypeIP = "ip"

// RateLimiter keeps one token bucket per client and forgets idle ones.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing rps requests per second with
// the given burst per identifier. Idle buckets are dropped every cleanup
// interval until ctx is done.
func NewRateLimiter(ctx context.Context, rps float64, burst int, cleanup time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}

	go rl.cleanupLoop(ctx, cleanup)

	return rl
}

func (rl *RateLimiter) getLimiter(identifier string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[identifier]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[identifier] = limiter
		metrics.RateLimitTrackedClients.WithLabelValues(limitTypeIP).Set(float64(len(rl.limiters)))
	}

	return limiter
}

// cleanupLoop removes limiters whose bucket has refilled, i.e. clients that
// have been idle.
func (rl *RateLimiter) cleanupLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

func (rl *RateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for identifier, limiter := range rl.limiters {
		if limiter.Tokens() >= float64(rl.burst) {
			delete(rl.limiters, identifier)
		}
	}
	metrics.RateLimitTrackedClients.WithLabelValues(limitTypeIP).Set(float64(len(rl.limiters)))
}

// Allow reports whether a request from identifier may proceed.
func (rl *RateLimiter) Allow(identifier string) bool {
	allowed := rl.getLimiter(identifier).Allow()
	metrics.RateLimitChecks.WithLabelValues(limitTypeIP, strconv.FormatBool(allowed)).Inc()
	return allowed
}

// Tracked returns how many identifiers currently have a bucket.
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// RateLimitByIP rate limits requests by client IP address.
//
// Example:
//
//	router.Use(RateLimitByIP(NewRateLimiter(ctx, 10, 20, time.Minute)))
func RateLimitByIP(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
