package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/saasforge/saasforge/backend/iam-service/pkg/metrics"
)

// per-key limiter store (simple in-memory token-bucket)
var limiterStore sync.Map // map[string]*rate.Limiter

// getLimiter returns (and lazily creates) a token-bucket limiter for the given key
func getLimiter(key string, rps float64, burst int) *rate.Limiter {
	v, ok := limiterStore.Load(key)
	if ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	limiterStore.Store(key, lim)
	return lim
}

// LoginAttemptLimiter returns a per-client-IP token-bucket limiter for the
// credential endpoints. maxAttempts tokens refill over the lockout window,
// so a client that burns its attempts waits the window out. Login-attempt
// state lives entirely in this component, never in session records.
func LoginAttemptLimiter(maxAttempts int, window time.Duration) gin.HandlerFunc {
	rps := float64(maxAttempts) / window.Seconds()
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		lim := getLimiter("login:"+ip, rps, maxAttempts)
		if !lim.Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
	}
}
