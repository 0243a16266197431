package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const UserKey = "userID"

// AuthMiddleware trusts the X-User-ID header set by the API gateway after it
// has validated the caller's token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(UserKey, userID)
		c.Next()
	}
}

func GetUserID(c *gin.Context) string {
	if val, exists := c.Get(UserKey); exists {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}
