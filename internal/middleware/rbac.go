package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/testdesk/internal/model"
	"github.com/stemsi/testdesk/internal/response"
)

// RequireAdmin checks that the session belongs to an admin and to the chat
// id named in the :chat_id path parameter.
func RequireAdmin(fail FailFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			fail(c, http.StatusUnauthorized, response.ErrSessionRequired)
			return
		}

		if claims.Role != model.RoleAdmin {
			fail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}

		if chatID := c.Param("chat_id"); chatID != "" && chatID != claims.ChatID.String() {
			fail(c, http.StatusForbidden, response.ErrChatIDMismatch)
			return
		}

		c.Next()
	}
}
