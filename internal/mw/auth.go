package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parkease-backend/internal/auth"
	"parkease-backend/internal/model"
)

// Context keys for the authenticated caller.
const (
	CtxUserID = "userID"
	CtxRole   = "role"
)

// RequireAuth validates the bearer token and stores the caller's
// identity on the context.
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin allows only administrators through. It must run after
// RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRole) != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// CallerID returns the authenticated user's ID from the context.
func CallerID(c *gin.Context) int64 {
	return c.GetInt64(CtxUserID)
}

// CallerRole returns the authenticated user's role from the context.
func CallerRole(c *gin.Context) string {
	return c.GetString(CtxRole)
}
