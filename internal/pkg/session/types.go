package session

import (
	"slices"
	"time"
)

// DefaultTTL is applied when a token arrives without an expiry.
const DefaultTTL = time.Hour

// Session is the console's authenticated state. It is never persisted
// without both a token and a user.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *UserProfile `json:"user"`
}

// UserProfile is the admin behind the session.
type UserProfile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
	LastLogin   time.Time `json:"last_login"`
}

// HasPermission checks if the profile carries a specific permission
func (u *UserProfile) HasPermission(permission string) bool {
	return slices.Contains(u.Permissions, permission)
}

// IsSuperAdmin checks if the profile is a super admin
func (u *UserProfile) IsSuperAdmin() bool {
	return u.Role == "super_admin"
}

// IdentityCredential is the identity provider's long-lived sign-in state,
// persisted so a new process can mint identity tokens without a password.
type IdentityCredential struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	RefreshToken string    `json:"refresh_token"`
	IDToken      string    `json:"id_token,omitempty"`
	IDTokenExp   time.Time `json:"id_token_exp,omitempty"`
}

// tokenMeta is the sealed form of the token half of a session.
type tokenMeta struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	StoredAt  time.Time `json:"stored_at"`
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.User != nil {
		out.User = s.User.clone()
	}
	return &out
}

func (u *UserProfile) clone() *UserProfile {
	if u == nil {
		return nil
	}
	out := *u
	if u.Permissions != nil {
		out.Permissions = slices.Clone(u.Permissions)
	}
	out.LastLogin = u.LastLogin.UTC()
	return &out
}
