package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"glasswire/storage"
)

// requireAdmin enforces the bearer token on admin routes. A missing or
// malformed header is a 401, a wrong token a 403, and a server without a
// configured key refuses with a 500 rather than running the surface open.
func requireAdmin(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Config.AdminAPIKey == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "admin API key is not configured"})
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if header == "" || !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed Authorization header"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(deps.Config.AdminAPIKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}

// rateLimit applies a fixed-window limit per client IP. The limiter itself
// fails open; the middleware only rejects when the window is truly exhausted.
func rateLimit(deps *Deps, cfg storage.RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := deps.Limiter.Allow(c.Request.Context(), cfg, c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// adminLimit covers the admin surface as a whole.
var adminLimit = storage.RateLimitConfig{
	Window:      time.Minute,
	MaxRequests: 30,
	Scope:       "admin",
}

// transformLimit is tighter: each request can fan out into model calls.
var transformLimit = storage.RateLimitConfig{
	Window:      time.Minute,
	MaxRequests: 10,
	Scope:       "transform",
}
