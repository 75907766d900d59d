package middleware

import (
	"net/http" // HTTP status codes

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/account"

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminOnlyMiddleware checks the user's role from the database on each
// request, so a revoked admin loses access without reissuing tokens.
func AdminOnlyMiddleware(accounts *account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := accounts.Get(userID.(uint))
		if err != nil || user.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
