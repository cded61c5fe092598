// internal/pkg/jwt/expiry.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryOf reads the exp claim of a token without checking its signature.
// The console cannot verify backend session tokens; it only needs to know
// when to stop presenting them.
func ExpiryOf(tokenString string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no exp claim")
	}
	return claims.ExpiresAt.Time.UTC(), nil
}
