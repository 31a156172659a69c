package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-export/internal/shared/auth"
	"resume-export/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	isGuestKey   = "isGuest"
	guestPrefix  = "guest:"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// Auth resolves the caller for the export routes. A bearer JWT wins; with
// allowGuest set (dev only) a plain X-Guest-Id stands in for it, namespaced
// so a guest can never collide with a real account id.
func Auth(verifier TokenVerifier, allowGuest bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
			claims, ok := verifyBearer(verifier, header)
			if !ok {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			c.Set(userIDKey, claims.Subject)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if !allowGuest || !validRequestID(guestID) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		c.Set(userIDKey, guestPrefix+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

func verifyBearer(verifier TokenVerifier, header string) (auth.Claims, bool) {
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" || verifier == nil {
		return auth.Claims{}, false
	}
	claims, err := verifier.Verify(token)
	if err != nil {
		return auth.Claims{}, false
	}
	return claims, true
}

// UserIDFromContext fetches the caller id set by Auth.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}
