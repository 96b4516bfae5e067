package middleware

import (
	"net/http"
	"strings"

	"nexo/config"
	"nexo/internal/auth"

	"github.com/gin-gonic/gin"
)

const (
	ctxPrincipalID = "principal_id"
	ctxRole        = "role"
)

// AuthRequired validates the bearer JWT and sets the principal id and role in context.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(ctxPrincipalID, claims.SubjectID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireRole checks that the authenticated principal has one of the allowed roles.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := GetRole(c)
		if r == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		for _, a := range allowed {
			if r == a {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// GetPrincipalID returns the authenticated partner or admin id (must be used after AuthRequired).
func GetPrincipalID(c *gin.Context) uint {
	v, ok := c.Get(ctxPrincipalID)
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}

func GetRole(c *gin.Context) string {
	v, ok := c.Get(ctxRole)
	if !ok {
		return ""
	}
	r, _ := v.(string)
	return r
}
