package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-export/internal/shared/metrics"
	"resume-export/internal/shared/telemetry"
)

// Logging writes one request.complete line per call and feeds the HTTP
// latency histogram. CORS preflights and metric scrapes are skipped.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.ObserveHTTP(c.Request.Method, route, status, elapsed)

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"route":             route,
			"status":            status,
			"status_transition": c.GetString("statusTransition"),
			"duration_ms":       float64(elapsed.Microseconds()) / 1000.0,
			"bytes":             c.Writer.Size(),
			"user_id":           UserIDFromContext(c),
			"guest":             c.GetBool(isGuestKey),
			"resume_id":         c.Param("id"),
			"export_id":         c.GetString("exportId"),
			"client_ip":         c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			telemetry.Warn("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
