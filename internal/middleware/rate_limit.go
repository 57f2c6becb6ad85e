package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-marketplace-notifications/internal/metrics"
	"golang.org/x/time/rate"
)

// CallerRateLimiter manages rate limiters per caller
type CallerRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewCallerRateLimiter creates a new caller rate limiter
func NewCallerRateLimiter(rps float64, burst int) *CallerRateLimiter {
	return &CallerRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// GetLimiter returns the rate limiter for a specific caller key
func (rl *CallerRateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Double-check after acquiring write lock
		limiter, exists = rl.limiters[key]
		if !exists {
			limiter = rate.NewLimiter(rl.rate, rl.burst)
			rl.limiters[key] = limiter
		}
		rl.mu.Unlock()
	}

	return limiter
}

// RateLimitMiddleware limits requests per caller. Callers are keyed by the
// X-User-ID header when present, otherwise by client IP.
func RateLimitMiddleware(rl *CallerRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, key := "user", c.GetHeader(UserIDHeader)
		if key == "" {
			scope, key = "ip", c.ClientIP()
		}

		if !rl.GetLimiter(scope + ":" + key).Allow() {
			metrics.RateLimitExceeded.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
