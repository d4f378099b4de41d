package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tazhibayda/todo-service/internal/security"
)

const (
	ctxUID   = "uid"
	ctxEmail = "email"
)

// TokenParser verifies session tokens.
type TokenParser interface {
	Parse(token string) (*security.Claims, error)
}

// AuthJWT requires a valid bearer token and stores the caller's uid and
// email on the gin context.
func AuthJWT(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
			return
		}
		tok := strings.TrimSpace(h[len("Bearer "):])
		claims, err := tokens.Parse(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}
		c.Set(ctxUID, claims.UID)
		c.Set(ctxEmail, claims.Email)
		c.Next()
	}
}

// uid is the authenticated user id; only valid behind AuthJWT.
func uid(c *gin.Context) int64 {
	return c.GetInt64(ctxUID)
}
