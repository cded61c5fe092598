// internal/domain/auth/entity.go
package auth

import "time"

// RefreshGrant is an identity refresh token issued by the emulator. Grants
// are single use: each refresh rotates the token.
type RefreshGrant struct {
	Token     string    `json:"-"`
	UID       string    `json:"uid"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordReset records an out-of-band reset request
type PasswordReset struct {
	Email       string    `json:"email"`
	Code        string    `json:"-"`
	RequestedAt time.Time `json:"requested_at"`
}
