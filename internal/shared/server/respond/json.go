package respond

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const noStore = "private, no-store"

// JSON writes payload with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 that intermediaries must not cache. Export views can carry
// signed links, so nothing served through here is shareable.
func OK(c *gin.Context, payload any) {
	c.Header("Cache-Control", noStore)
	JSON(c, http.StatusOK, payload)
}

// Accepted writes a 202 pointing at the resource the client should poll.
func Accepted(c *gin.Context, location string, payload any) {
	if location != "" {
		c.Header("Location", location)
	}
	c.Header("Cache-Control", noStore)
	JSON(c, http.StatusAccepted, payload)
}

// PDF writes a PDF attachment. Pass size -1 when streaming an unknown length.
func PDF(c *gin.Context, disposition string, size int64, body io.Reader) {
	c.DataFromReader(http.StatusOK, size, "application/pdf", body, map[string]string{
		"Content-Disposition":    disposition,
		"Cache-Control":          noStore,
		"X-Content-Type-Options": "nosniff",
	})
}
