package middleware

import (
	"strings"

	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/response"
	"github.com/clinicpos/diagnostics-api/pkg/utils"
	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID       = "user_id"
	ContextUserEmail    = "user_email"
	ContextUserRoles    = "user_roles"
	ContextCapabilities = "user_capabilities"
)

// AuthMiddleware validates the bearer token, resolves the caller's
// capabilities once through policy and stores both in the context.
func AuthMiddleware(jwtManager *utils.JWTManager, policy *Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserRoles, claims.Roles)
		c.Set(ContextCapabilities, policy.Grant(claims.Roles))

		c.Next()
	}
}

// RequireCapability rejects callers whose granted set lacks capability
func RequireCapability(capability Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted, ok := c.Get(ContextCapabilities)
		if !ok {
			response.Forbidden(c, "Access denied")
			return
		}

		set, ok := granted.(CapabilitySet)
		if !ok || !set.Has(capability) {
			response.Forbidden(c, "You do not have permission to perform this action")
			return
		}

		c.Next()
	}
}
