package middleware

import (
	"net/http"
	"strings"

	"fasteyes/services"

	"github.com/gin-gonic/gin"
)

const SessionIDKey = "session_id"

// Session verifies the anonymous session token and injects the stable
// session ID into the request context. Mutating routes require it.
func Session(sessions *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session token required"})
			c.Abort()
			return
		}

		sessionID, err := sessions.Verify(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session token"})
			c.Abort()
			return
		}

		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}
