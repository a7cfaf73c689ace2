package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/testdesk/internal/config"
	"github.com/stemsi/testdesk/internal/response"
	"github.com/stemsi/testdesk/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for session claims.
	ContextKeyClaims = "claims"
)

// FailFunc aborts a request with a status and error code. The JSON API uses
// response.AbortFail; pages render an HTML error instead.
type FailFunc func(c *gin.Context, statusCode int, code response.ErrCode)

// RequireSession validates the dashboard session from the cookie, the
// Authorization header, or ?token= (WebSocket clients).
func RequireSession(sessions *service.SessionService, fail FailFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			fail(c, http.StatusUnauthorized, response.ErrSessionRequired)
			return
		}

		claims, err := sessions.Validate(tokenStr)
		if err != nil {
			fail(c, http.StatusUnauthorized, response.ErrSessionInvalid)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the session claims from the Gin context.
func GetClaims(c *gin.Context) *service.SessionClaims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(config.SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	return c.Query("token")
}
