package respond

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"resume-export/internal/shared/telemetry"
)

// ErrorBody is the error object every failed API call returns. RequestID
// lets a client quote the failing call back to support.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorResponse wraps ErrorBody under "error".
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts the request with an ErrorResponse. Client errors log at warn
// so quota and rate-limit rejections do not page anyone.
func Error(c *gin.Context, status int, code, message string, details any) {
	reqID := c.GetString("requestId")
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"method":     c.Request.Method,
		"route":      c.FullPath(),
		"request_id": reqID,
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if resumeID := c.Param("id"); resumeID != "" {
		fields["resume_id"] = resumeID
	}
	if exportID := c.GetString("exportId"); exportID != "" {
		fields["export_id"] = exportID
	}
	if status >= 500 {
		fields["message"] = message
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: reqID,
	}})
}

// RateLimited writes a 429 with Retry-After in whole seconds and the exact
// wait in details.retryAfterMs. Unknown waits are reported as one second.
func RateLimited(c *gin.Context, retryAfter time.Duration) {
	ms := retryAfter.Milliseconds()
	if ms <= 0 {
		ms = 1000
	}
	c.Header("Retry-After", strconv.FormatInt((ms+999)/1000, 10))
	Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please slow down.", gin.H{"retryAfterMs": ms})
}
