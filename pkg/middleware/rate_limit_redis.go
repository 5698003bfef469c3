package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/saasforge/saasforge/backend/iam-service/pkg/metrics"
)

const loginAttemptsPrefix = "iam:login-attempts:"

// RedisLoginAttemptLimiter is the fixed-window Redis-backed variant of the
// login-attempt limiter, for deployments with more than one instance.
// Keying: client IP. Algorithm: INCR a per-window bucket and compare
// against maxAttempts; the bucket expires shortly after the window.
func RedisLoginAttemptLimiter(client *redis.Client, maxAttempts int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		// fallback to in-memory if no client
		return LoginAttemptLimiter(maxAttempts, window)
	}
	windowSeconds := int64(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		bucket := time.Now().Unix() / windowSeconds
		key := fmt.Sprintf("%s%s:%d", loginAttemptsPrefix, ip, bucket)

		cnt, err := client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			dependencyFailure(c, err)
			return
		}
		if cnt == 1 {
			// set expiration for the bucket
			_ = client.Expire(c.Request.Context(), key, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		if cnt > int64(maxAttempts) {
			c.Header("Retry-After", fmt.Sprintf("%d", windowSeconds))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
	}
}
