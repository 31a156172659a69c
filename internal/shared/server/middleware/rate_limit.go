package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-export/internal/quota"
	"resume-export/internal/shared/metrics"
	"resume-export/internal/shared/server/respond"
	"resume-export/internal/shared/telemetry"
)

// RateLimitConfig is the API-wide backstop in front of the per-action export
// limits. Max calls per Window are allowed for each caller.
type RateLimitConfig struct {
	Limiter *quota.RateLimiter
	Max     int64
	Window  time.Duration
}

// RateLimit counts every authenticated call against the caller, falling back
// to the client IP when no identity was resolved. The counters live in the
// shared store, so the limit holds across API processes. A store outage lets
// the request through; the export actions enforce their own limits after it.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Limiter == nil || cfg.Max <= 0 || cfg.Window <= 0 {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = "ip:" + c.ClientIP()
		}
		err := cfg.Limiter.Allow(c.Request.Context(), quota.RateLimitKey("api", principal), cfg.Max, cfg.Window)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, quota.ErrRateLimitExceeded):
			metrics.IncLimitRejection("api_rate_limited")
			respond.RateLimited(c, quota.RetryAfter(err))
		default:
			telemetry.Warn("rate_limit.store_error", map[string]any{"principal": principal, "error": err})
			c.Next()
		}
	}
}
