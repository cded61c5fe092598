// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"

	"dispatch-console/internal/identity"
	xerrors "dispatch-console/internal/pkg/errors"
	"dispatch-console/internal/pkg/session"

	"go.uber.org/zap"
)

// Identity is the identity-provider client the console signs in with.
type Identity interface {
	SignIn(ctx context.Context, creds identity.Credentials) identity.Result
	SignUp(ctx context.Context, data identity.SignUpData) identity.Result
	SignOut(ctx context.Context)
	ResetPassword(ctx context.Context, email string) error
	GetIDToken(ctx context.Context, forceRefresh bool) (string, error)
}

// Exchanger trades an identity token for a backend session and persists it.
type Exchanger interface {
	ExchangeSession(ctx context.Context, idToken string) (*session.Session, error)
}

// SessionStore is the slice of the token store the service reads.
type SessionStore interface {
	GetCurrentUser() *session.UserProfile
	IsAuthenticated() bool
	ClearTokenData()
}

// AuthError is a login or signup failure. Message is safe to show an
// operator; the error matches xerrors.ErrNotAuthenticated.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{xerrors.ErrNotAuthenticated}
	}
	return []error{xerrors.ErrNotAuthenticated, e.Err}
}

type AuthService struct {
	identity Identity
	sessions Exchanger
	store    SessionStore
	logger   *zap.Logger
}

func NewAuthService(identity Identity, sessions Exchanger, store SessionStore, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		identity: identity,
		sessions: sessions,
		store:    store,
		logger:   logger,
	}
}

// ========== Login ==========

// Login signs in with the identity provider and exchanges the identity token
// for a backend session. On exchange failure the identity session is dropped
// so the two never disagree.
func (s *AuthService) Login(ctx context.Context, email, password string) (*session.UserProfile, error) {
	res := s.identity.SignIn(ctx, identity.Credentials{Email: email, Password: password})
	if !res.Success {
		return nil, &AuthError{Message: res.Error}
	}
	return s.establish(ctx)
}

// Signup creates an identity account and opens a backend session for it
func (s *AuthService) Signup(ctx context.Context, data identity.SignUpData) (*session.UserProfile, error) {
	res := s.identity.SignUp(ctx, data)
	if !res.Success {
		return nil, &AuthError{Message: res.Error}
	}
	return s.establish(ctx)
}

// Logout clears the backend session and the identity session
func (s *AuthService) Logout(ctx context.Context) {
	s.store.ClearTokenData()
	s.identity.SignOut(ctx)
	s.logger.Info("logged out")
}

func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	return s.identity.ResetPassword(ctx, email)
}

// CurrentUser returns the stored profile or nil
func (s *AuthService) CurrentUser() *session.UserProfile {
	return s.store.GetCurrentUser()
}

func (s *AuthService) IsAuthenticated() bool {
	return s.store.IsAuthenticated()
}

// --- Helper functions ---

func (s *AuthService) establish(ctx context.Context) (*session.UserProfile, error) {
	idToken, err := s.identity.GetIDToken(ctx, false)
	if err == nil && idToken == "" {
		err = xerrors.ErrNoIdentity
	}
	if err != nil {
		s.identity.SignOut(ctx)
		return nil, &AuthError{Message: "Authentication failed", Err: err}
	}

	sess, err := s.sessions.ExchangeSession(ctx, idToken)
	if err != nil {
		s.logger.Warn("session exchange failed", zap.Error(err))
		s.identity.SignOut(ctx)
		return nil, &AuthError{Message: exchangeMessage(err), Err: err}
	}

	s.logger.Info("logged in", zap.String("user_id", sess.User.ID), zap.String("role", sess.User.Role))
	return sess.User, nil
}

func exchangeMessage(err error) string {
	var apiErr *xerrors.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, xerrors.ErrRequestTimeout), errors.Is(err, xerrors.ErrNetwork):
		return err.Error()
	default:
		return "Authentication failed"
	}
}
