package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	xerrors "dispatch-console/internal/pkg/errors"
	"dispatch-console/internal/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	*httptest.Server
	refreshCalls atomic.Int32
	lastOob      atomic.Value
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/accounts:signInWithPassword", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		var req passwordRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch {
		case req.Email == "locked@example.com":
			writeProviderError(w, "USER_DISABLED")
		case req.Email == "odd@example.com":
			writeProviderError(w, "SOMETHING_ODD : The provider said no")
		case req.Password != "hunter22":
			writeProviderError(w, "INVALID_PASSWORD")
		default:
			writeJSON(w, authResponse{
				LocalID: "uid-1", Email: req.Email, IDToken: "ID1", RefreshToken: "R1", ExpiresIn: "3600",
			})
		}
	})
	mux.HandleFunc("/v1/accounts:signUp", func(w http.ResponseWriter, r *http.Request) {
		var req passwordRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Email == "taken@example.com" {
			writeProviderError(w, "EMAIL_EXISTS")
			return
		}
		writeJSON(w, authResponse{LocalID: "uid-2", Email: req.Email, IDToken: "ID1", RefreshToken: "R1", ExpiresIn: "3600"})
	})
	mux.HandleFunc("/v1/accounts:update", func(w http.ResponseWriter, r *http.Request) {
		var req updateProfileRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, map[string]string{"displayName": req.DisplayName})
	})
	mux.HandleFunc("/v1/accounts:sendOobCode", func(w http.ResponseWriter, r *http.Request) {
		var req oobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		p.lastOob.Store(req)
		writeJSON(w, map[string]string{"email": req.Email})
	})
	mux.HandleFunc("/v1/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		n := p.refreshCalls.Add(1)
		if r.PostForm.Get("refresh_token") == "revoked" {
			writeProviderError(w, "TOKEN_EXPIRED")
			return
		}
		writeJSON(w, map[string]any{
			"access_token":  "ID" + string(rune('1'+n)),
			"id_token":      "ID" + string(rune('1'+n)),
			"refresh_token": "R" + string(rune('1'+n)),
			"expires_in":    "3600",
			"token_type":    "Bearer",
		})
	})

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeProviderError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	var er errorResponse
	er.Error.Code = 400
	er.Error.Message = message
	json.NewEncoder(w).Encode(er)
}

func newTestStore(t *testing.T) *session.Store {
	t.Helper()
	c, err := session.NewFingerprintCipher(session.Fingerprint{Hostname: "identity-test"})
	require.NoError(t, err)
	return session.NewStore(session.NewMemoryBackend(), c)
}

func newTestClient(t *testing.T, p *fakeProvider, store *session.Store) *Client {
	t.Helper()
	return NewClient(Config{APIKey: "test-key", ProjectID: "proj", APIBase: p.URL, TokenBase: p.URL}, store, nil)
}

func TestSignIn_Success(t *testing.T) {
	p := newFakeProvider(t)
	store := newTestStore(t)
	c := newTestClient(t, p, store)

	res := c.SignIn(context.Background(), Credentials{Email: "ops@example.com", Password: "hunter22"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "uid-1", res.User.UID)

	tok, err := c.GetIDToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "ID1", tok)
	assert.Zero(t, p.refreshCalls.Load())

	cred := store.LoadIdentity()
	require.NotNil(t, cred)
	assert.Equal(t, "R1", cred.RefreshToken)
}

func TestSignIn_MapsProviderErrors(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, newTestStore(t))
	ctx := context.Background()

	cases := map[string]Credentials{
		"Incorrect password":             {Email: "ops@example.com", Password: "wrong"},
		"This account has been disabled": {Email: "locked@example.com", Password: "x"},
		"The provider said no":           {Email: "odd@example.com", Password: "x"},
		"Invalid email address":          {Email: "not-an-email", Password: "x"},
		"Password is required":           {Email: "ops@example.com"},
	}
	for want, creds := range cases {
		res := c.SignIn(ctx, creds)
		assert.False(t, res.Success)
		assert.Nil(t, res.User)
		assert.Equal(t, want, res.Error)
	}
	assert.Nil(t, c.CurrentUser())
}

func TestSignIn_NetworkFailure(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, newTestStore(t))
	p.Close()

	res := c.SignIn(context.Background(), Credentials{Email: "ops@example.com", Password: "hunter22"})
	assert.False(t, res.Success)
	assert.Equal(t, xerrors.MsgNetwork, res.Error)
}

func TestSignUp(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, newTestStore(t))
	ctx := context.Background()

	res := c.SignUp(ctx, SignUpData{Email: "new@example.com", Password: "hunter22", DisplayName: "New Op"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "New Op", res.User.DisplayName)

	res = c.SignUp(ctx, SignUpData{Email: "taken@example.com", Password: "hunter22"})
	assert.Equal(t, "An account with this email already exists", res.Error)

	res = c.SignUp(ctx, SignUpData{Email: "new@example.com", Password: "123"})
	assert.Equal(t, "Password should be at least 6 characters", res.Error)
}

func TestGetIDToken_NoIdentity(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, newTestStore(t))

	tok, err := c.GetIDToken(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Zero(t, p.refreshCalls.Load())
}

func TestGetIDToken_ForceRefresh(t *testing.T) {
	p := newFakeProvider(t)
	store := newTestStore(t)
	c := newTestClient(t, p, store)
	ctx := context.Background()

	require.True(t, c.SignIn(ctx, Credentials{Email: "ops@example.com", Password: "hunter22"}).Success)

	tok, err := c.GetIDToken(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "ID2", tok)
	assert.EqualValues(t, 1, p.refreshCalls.Load())
	assert.Equal(t, "R2", store.LoadIdentity().RefreshToken)

	// the refreshed token is fresh, so a non-forced call reuses it
	tok, err = c.GetIDToken(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "ID2", tok)
	assert.EqualValues(t, 1, p.refreshCalls.Load())
}

func TestGetIDToken_ResumesFromStore(t *testing.T) {
	p := newFakeProvider(t)
	store := newTestStore(t)
	store.SaveIdentity(&session.IdentityCredential{UID: "uid-1", Email: "ops@example.com", RefreshToken: "R1"})

	c := newTestClient(t, p, store)
	assert.Equal(t, "ops@example.com", c.CurrentUser().Email)

	tok, err := c.GetIDToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "ID2", tok)
}

func TestGetIDToken_RevokedRefreshToken(t *testing.T) {
	p := newFakeProvider(t)
	store := newTestStore(t)
	store.SaveIdentity(&session.IdentityCredential{UID: "uid-1", RefreshToken: "revoked"})
	c := newTestClient(t, p, store)

	_, err := c.GetIDToken(context.Background(), true)
	assert.ErrorIs(t, err, xerrors.ErrRefreshFailed)
	assert.Contains(t, err.Error(), "TOKEN_EXPIRED")
}

func TestResetPassword(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, newTestStore(t))

	require.NoError(t, c.ResetPassword(context.Background(), "ops@example.com"))
	req := p.lastOob.Load().(oobRequest)
	assert.Equal(t, "PASSWORD_RESET", req.RequestType)

	assert.ErrorIs(t, c.ResetPassword(context.Background(), "bad"), xerrors.ErrInvalidInput)
}

func TestOnAuthStateChanged_OrderedAndAsync(t *testing.T) {
	p := newFakeProvider(t)
	store := newTestStore(t)
	c := newTestClient(t, p, store)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		events []string
	)
	done := make(chan struct{})
	unsubscribe := c.OnAuthStateChanged(func(u *User) {
		mu.Lock()
		defer mu.Unlock()
		if u == nil {
			events = append(events, "signed-out")
			close(done)
			return
		}
		events = append(events, "signed-in:"+u.UID)
	})

	require.True(t, c.SignIn(ctx, Credentials{Email: "ops@example.com", Password: "hunter22"}).Success)
	c.SignOut(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener not notified")
	}
	mu.Lock()
	assert.Equal(t, []string{"signed-in:uid-1", "signed-out"}, events)
	mu.Unlock()

	assert.Nil(t, store.LoadIdentity())
	tok, err := c.GetIDToken(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, tok)

	unsubscribe()
}

func TestParseError(t *testing.T) {
	e := parseError(400, []byte(`{"error":{"code":400,"message":"WEAK_PASSWORD : Password should be at least 6 characters"}}`))
	assert.Equal(t, "WEAK_PASSWORD", e.Code)
	assert.Equal(t, "Password should be at least 6 characters", e.Message)

	e = parseError(502, []byte(`<html>bad gateway</html>`))
	assert.Equal(t, "HTTP_502", e.Code)
	assert.False(t, strings.Contains(e.Message, "html"))
}
