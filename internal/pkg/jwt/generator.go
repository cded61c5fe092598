// internal/pkg/jwt/generator.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Subject identifies who a session token is minted for.
type Subject struct {
	ID          string
	Email       string
	Name        string
	Role        string
	Permissions []string
	UserType    string
}

type Generator struct {
	secret   []byte
	issuer   string
	audience string
	Ttl      time.Duration
	now      func() time.Time
}

func NewGenerator(secret []byte, issuer, audience string, ttl time.Duration) *Generator {
	return &Generator{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		Ttl:      ttl,
		now:      time.Now,
	}
}

// WithNow returns a copy of the generator that reads time from now.
func (g *Generator) WithNow(now func() time.Time) *Generator {
	cp := *g
	cp.now = now
	return &cp
}

// Generate signs a session token and returns it with its jti and expiry
func (g *Generator) Generate(sub Subject) (string, string, time.Time, error) {
	if len(g.secret) == 0 {
		return "", "", time.Time{}, fmt.Errorf("jwt generator has empty secret")
	}

	now := g.now()
	jti := ulid.Make().String()
	expiresAt := now.Add(g.Ttl)

	userType := sub.UserType
	if userType == "" {
		userType = "admin"
	}

	claims := &Claims{
		Email:       sub.Email,
		Name:        sub.Name,
		Role:        sub.Role,
		Permissions: sub.Permissions,
		UserType:    userType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   sub.ID,
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(g.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	// NumericDate truncates to the second
	return signed, jti, claims.ExpiresAt.Time, nil
}
