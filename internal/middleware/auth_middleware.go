// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"slices"
	"strings"

	"dispatch-console/internal/pkg/jwt"
	"dispatch-console/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	verifier *jwt.Verifier
}

func NewAuthMiddleware(verifier *jwt.Verifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Auth is the base authentication middleware that validates session tokens
// and admits only console operators
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		claims, err := m.verifier.VerifyAdminToken(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		// Set user context
		c.Set("user_id", claims.Subject)
		c.Set("jti", claims.ID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Set("permissions", claims.Permissions)

		c.Next()
	}
}

// RequireRole middleware that requires user to have one of the specified roles
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			response.Forbidden(c, "no role found - authentication required")
			return
		}

		if !slices.Contains(roles, role) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
			return
		}

		c.Next()
	}
}

// RequirePermission middleware that requires user to have at least one of the specified permissions
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequirePermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsSuperAdmin(c) {
			c.Next()
			return
		}

		for _, p := range permissions {
			if HasPermission(c, p) {
				c.Next()
				return
			}
		}

		response.Error(c, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
	}
}

// SuperAdminOnly returns middlewares for super admin-only routes (Auth + RequireRole)
func (m *AuthMiddleware) SuperAdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireRole("super_admin"),
	}
}

// WithPermission returns middlewares for permission-based routes (Auth + RequirePermission)
func (m *AuthMiddleware) WithPermission(permissions ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequirePermission(permissions...),
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return ""
}
