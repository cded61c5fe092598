// internal/pkg/jwt/claims.go
package jwt

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the session token claims
type Claims struct {
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	UserType    string   `json:"user_type"` // admin, driver, customer
	jwt.RegisteredClaims
}

// HasPermission checks if the claims contain a specific permission
func (c *Claims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

// IsSuperAdmin checks if user is a super admin
func (c *Claims) IsSuperAdmin() bool {
	return c.Role == "super_admin"
}

// IsAdmin checks if user is an admin (including super admin)
func (c *Claims) IsAdmin() bool {
	return c.UserType == "admin" || c.IsSuperAdmin()
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}
	return slices.Contains(c.Audience, audience)
}
