package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"dispatch-console/internal/identity"
	xerrors "dispatch-console/internal/pkg/errors"
	"dispatch-console/internal/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	result     identity.Result
	token      string
	signedIn   bool
	signOuts   int
	resetEmail string
}

func (f *fakeIdentity) SignIn(_ context.Context, _ identity.Credentials) identity.Result {
	f.signedIn = f.result.Success
	return f.result
}

func (f *fakeIdentity) SignUp(_ context.Context, _ identity.SignUpData) identity.Result {
	f.signedIn = f.result.Success
	return f.result
}

func (f *fakeIdentity) SignOut(context.Context) {
	f.signedIn = false
	f.signOuts++
}

func (f *fakeIdentity) ResetPassword(_ context.Context, email string) error {
	f.resetEmail = email
	return nil
}

func (f *fakeIdentity) GetIDToken(context.Context, bool) (string, error) {
	if !f.signedIn {
		return "", nil
	}
	return f.token, nil
}

// fakeExchanger persists the scripted session into a real store
type fakeExchanger struct {
	store *session.Store
	token string
	err   error
	seen  []string
}

func (f *fakeExchanger) ExchangeSession(_ context.Context, idToken string) (*session.Session, error) {
	f.seen = append(f.seen, idToken)
	if f.err != nil {
		return nil, f.err
	}
	sess := &session.Session{
		Token:     f.token,
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &session.UserProfile{ID: "adm_1", Email: "ops@example.com", Role: "super_admin"},
	}
	if err := f.store.SetTokenData(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func newTestService(t *testing.T) (*AuthService, *fakeIdentity, *fakeExchanger, *session.Store) {
	t.Helper()
	cipher, err := session.NewFingerprintCipher(session.Fingerprint{Hostname: "test-host", Username: "ops", OS: "linux", Arch: "amd64"})
	require.NoError(t, err)
	store := session.NewStore(session.NewMemoryBackend(), cipher)

	idp := &fakeIdentity{
		result: identity.Result{Success: true, User: &identity.User{UID: "adm_1", Email: "ops@example.com"}},
		token:  "identity-token",
	}
	ex := &fakeExchanger{store: store, token: "T1"}
	return NewAuthService(idp, ex, store, nil), idp, ex, store
}

func TestLogin_StoresExchangedSession(t *testing.T) {
	svc, _, ex, store := newTestService(t)

	user, err := svc.Login(context.Background(), "ops@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "adm_1", user.ID)
	assert.Equal(t, []string{"identity-token"}, ex.seen)
	assert.Equal(t, "T1", store.GetToken())
	assert.True(t, svc.IsAuthenticated())
	assert.Equal(t, "ops@example.com", svc.CurrentUser().Email)
}

func TestLogin_IdentityFailure(t *testing.T) {
	svc, idp, ex, _ := newTestService(t)
	idp.result = identity.Result{Error: "Invalid email or password"}

	_, err := svc.Login(context.Background(), "ops@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.ErrorIs(t, err, xerrors.ErrNotAuthenticated)
	assert.Empty(t, ex.seen)
	assert.False(t, svc.IsAuthenticated())
}

func TestLogin_ExchangeFailureSignsOut(t *testing.T) {
	svc, idp, ex, _ := newTestService(t)
	ex.err = xerrors.NewAPIError(http.StatusForbidden, "ACCOUNT_DISABLED", "admin account disabled")

	_, err := svc.Login(context.Background(), "ops@example.com", "s3cret-pass")
	require.Error(t, err)
	assert.Equal(t, "admin account disabled", err.Error())

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.True(t, xerrors.IsAPIError(err, "ACCOUNT_DISABLED"))
	assert.Equal(t, 1, idp.signOuts)
	assert.False(t, idp.signedIn)
	assert.False(t, svc.IsAuthenticated())
}

func TestLogin_NetworkFailureKeepsMessage(t *testing.T) {
	svc, _, ex, _ := newTestService(t)
	ex.err = xerrors.ErrNetwork

	_, err := svc.Login(context.Background(), "ops@example.com", "s3cret-pass")
	require.Error(t, err)
	assert.Equal(t, xerrors.MsgNetwork, err.Error())
	assert.ErrorIs(t, err, xerrors.ErrNetwork)
}

func TestSignup(t *testing.T) {
	svc, _, _, store := newTestService(t)

	user, err := svc.Signup(context.Background(), identity.SignUpData{Email: "ops@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "adm_1", user.ID)
	assert.Equal(t, "T1", store.GetToken())
}

func TestLogout(t *testing.T) {
	svc, idp, _, store := newTestService(t)
	_, err := svc.Login(context.Background(), "ops@example.com", "s3cret-pass")
	require.NoError(t, err)

	svc.Logout(context.Background())
	assert.Empty(t, store.GetToken())
	assert.Nil(t, svc.CurrentUser())
	assert.False(t, idp.signedIn)
}

func TestResetPassword(t *testing.T) {
	svc, idp, _, _ := newTestService(t)
	require.NoError(t, svc.ResetPassword(context.Background(), "ops@example.com"))
	assert.Equal(t, "ops@example.com", idp.resetEmail)
}
