// internal/domain/auth/dto.go
package auth

import (
	"time"

	"dispatch-console/internal/pkg/session"
)

// VerifyTokenRequest is the body of the session exchange endpoint.
type VerifyTokenRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// SessionResponse is the data of a successful session exchange.
type SessionResponse struct {
	Token     string               `json:"token"`
	ExpiresIn int64                `json:"expiresIn,omitempty"`
	ExpiresAt *time.Time           `json:"expiresAt,omitempty"`
	User      *session.UserProfile `json:"user,omitempty"`
}

// Identity provider REST shapes

type PasswordSignInRequest struct {
	Email             string `json:"email" binding:"required"`
	Password          string `json:"password" binding:"required"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type SignUpRequest struct {
	Email             string `json:"email" binding:"required"`
	Password          string `json:"password" binding:"required"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type UpdateAccountRequest struct {
	IDToken           string `json:"idToken" binding:"required"`
	DisplayName       string `json:"displayName"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type OOBCodeRequest struct {
	RequestType string `json:"requestType" binding:"required"`
	Email       string `json:"email" binding:"required"`
}

type AccountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    string `json:"expiresIn,omitempty"`
}

// TokenResponse is the refresh-token grant reply
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	TokenType    string `json:"token_type"`
	UserID       string `json:"user_id"`
}

// ProviderError is the identity provider error body
type ProviderError struct {
	Error ProviderErrorBody `json:"error"`
}

type ProviderErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
