package middleware

import (
	"nexo/internal/domain"

	"github.com/gin-gonic/gin"
)

// AdminRequired restricts a route group to back-office admins.
func AdminRequired() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}

// PartnerRequired restricts a route group to partner tokens.
func PartnerRequired() gin.HandlerFunc {
	return RequireRole(domain.RolePartner)
}
