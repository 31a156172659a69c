package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"resume-export/internal/shared/metrics"
	"resume-export/internal/shared/server/respond"
	"resume-export/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 error body. http.ErrAbortHandler
// is re-raised so net/http can drop the connection as the handler asked.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			route := c.FullPath()
			metrics.IncPanic(route)
			telemetry.Error("http.panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"route":      route,
				"resume_id":  c.Param("id"),
				"export_id":  c.GetString("exportId"),
				"panic":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
			})
			// A streamed PDF may already be half sent; the status is gone.
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
