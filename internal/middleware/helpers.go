// internal/middleware/helpers.go
package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// GetUserID gets the authenticated admin's UID from context
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// GetJTI gets the session token ID from context
func GetJTI(c *gin.Context) string {
	return c.GetString("jti")
}

// GetRole gets the admin's role from context
func GetRole(c *gin.Context) string {
	return c.GetString("role")
}

// GetPermissions gets user permissions from context
func GetPermissions(c *gin.Context) []string {
	return c.GetStringSlice("permissions")
}

// HasPermission checks if user has permission
func HasPermission(c *gin.Context, permission string) bool {
	return slices.Contains(GetPermissions(c), permission)
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("user_id")
	return exists
}

// IsSuperAdmin checks if user is a super admin
func IsSuperAdmin(c *gin.Context) bool {
	return GetRole(c) == "super_admin"
}
