// internal/pkg/jwt/verifier.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewVerifier(secret []byte, issuer, audience string) *Verifier {
	return &Verifier{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// WithNow returns a copy of the verifier that validates expiry against now.
func (v *Verifier) WithNow(now func() time.Time) *Verifier {
	cp := *v
	cp.now = now
	return &cp
}

// Verify validates a session token and returns the claims
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("jwt verifier has empty secret")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithIssuer(v.issuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	// Verify audience
	if !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("invalid audience")
	}

	return claims, nil
}

// VerifyAdminToken verifies that the token belongs to a console operator
func (v *Verifier) VerifyAdminToken(tokenString string) (*Claims, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	if !claims.IsAdmin() {
		return nil, fmt.Errorf("token is not an admin token")
	}

	return claims, nil
}
