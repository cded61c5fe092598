package identity

import "time"

// Credentials are an operator's email and password.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignUpData struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"omitempty,max=120"`
}

// User is the identity provider's view of the signed-in operator.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// Result is returned by SignIn and SignUp. Error carries a user-facing
// message when Success is false.
type Result struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Config points the client at an identity provider.
type Config struct {
	APIKey    string
	ProjectID string
	// APIBase serves accounts:* calls, TokenBase the refresh-token grant.
	APIBase      string
	TokenBase    string
	VerifyTokens bool
	// KeySetURL overrides where identity-token signing keys are fetched.
	KeySetURL string
}

const (
	defaultKeySetURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	issuerPrefix     = "https://securetoken.google.com/"
	// tokenSkew treats an identity token as expired this long before it is.
	tokenSkew = time.Minute
)

// wire types

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type updateProfileRequest struct {
	IDToken           string `json:"idToken"`
	DisplayName       string `json:"displayName"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type oobRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
