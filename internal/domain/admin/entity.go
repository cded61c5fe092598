// internal/domain/admin/entity.go
package admin

import (
	"slices"
	"time"

	"dispatch-console/internal/pkg/session"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleSupport    = "support"
)

// Permissions granted to every admin role
var DefaultPermissions = []string{
	"drivers:read", "drivers:write",
	"customers:read", "customers:write",
	"bookings:read", "bookings:write",
	"emergencies:read", "emergencies:write",
	"support:read", "support:write",
	"analytics:read",
}

// Admin is a console operator account held by the identity emulator.
type Admin struct {
	UID          string     `json:"uid"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Permissions  []string   `json:"permissions"`
	Disabled     bool       `json:"disabled"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// HasRole checks if the admin holds a specific role
func (a *Admin) HasRole(role string) bool {
	return a.Role == role
}

func (a *Admin) HasPermission(permission string) bool {
	return a.Role == RoleSuperAdmin || slices.Contains(a.Permissions, permission)
}

// Profile is the session view of the account.
func (a *Admin) Profile() *session.UserProfile {
	p := &session.UserProfile{
		ID:          a.UID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Role:        a.Role,
		Permissions: slices.Clone(a.Permissions),
	}
	if a.LastLogin != nil {
		p.LastLogin = a.LastLogin.UTC()
	}
	return p
}
