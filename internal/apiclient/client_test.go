package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dispatch-console/internal/domain/auth"
	xerrors "dispatch-console/internal/pkg/errors"
	"dispatch-console/internal/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	calls atomic.Int32
	err   error
	empty bool
}

func (f *fakeIdentity) GetIDToken(_ context.Context, force bool) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	if f.empty {
		return "", nil
	}
	return "identity-token", nil
}

// backend is a scripted REST peer. Protected routes accept only the current
// token; the exchange endpoint hands out the next one.
type backend struct {
	*httptest.Server
	mu        sync.Mutex
	valid     string
	next      string
	exchanges atomic.Int32
	unauth    atomic.Int32
	// gate, when set, holds the exchange until it is closed
	gate         chan struct{}
	alwaysReject atomic.Bool
	seen         []string
}

func newBackend(t *testing.T, valid, next string, gate ...chan struct{}) *backend {
	t.Helper()
	b := &backend{valid: valid, next: next}
	if len(gate) > 0 {
		b.gate = gate[0]
	}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		var req auth.VerifyTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "identity-token", req.IDToken)
		assert.Empty(t, r.Header.Get("Authorization"))

		b.exchanges.Add(1)
		if b.gate != nil {
			select {
			case <-b.gate:
			case <-time.After(2 * time.Second):
			}
		}
		b.mu.Lock()
		b.valid = b.next
		tok := b.next
		b.mu.Unlock()

		exp := time.Now().Add(time.Hour).UTC()
		writeEnvelope(w, http.StatusOK, map[string]any{
			"token":     tok,
			"expiresAt": exp,
			"user":      map[string]any{"id": "adm_1", "email": "ops@example.com", "role": "admin"},
		})
	})

	mux.HandleFunc("/api/drivers", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.seen = append(b.seen, r.Header.Get("Authorization"))
		ok := r.Header.Get("Authorization") == "Bearer "+b.valid && !b.alwaysReject.Load()
		b.mu.Unlock()
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		if !ok {
			b.unauth.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeEnvelope(w, http.StatusOK, []map[string]any{{"id": "d1", "status": r.URL.Query().Get("status")}})
	})

	mux.HandleFunc("/api/drivers/busy", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"success":false,"error":{"code":"DRIVER_BUSY","message":"driver is on a trip"}}`)
	})

	mux.HandleFunc("/api/drivers/quiet-fail", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":false,"message":"driver already suspended"}`)
	})

	mux.HandleFunc("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>upstream exploded</html>")
	})

	mux.HandleFunc("/api/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	mux.HandleFunc("POST /api/drivers/d1/documents", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("document")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		writeEnvelope(w, http.StatusCreated, map[string]any{
			"name": hdr.Filename, "size": len(data), "type": r.FormValue("type"),
		})
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func newStore(t *testing.T) *session.Store {
	t.Helper()
	c, err := session.NewFingerprintCipher(session.Fingerprint{Hostname: "apiclient-test"})
	require.NoError(t, err)
	return session.NewStore(session.NewMemoryBackend(), c)
}

func seed(t *testing.T, store *session.Store, token string) {
	t.Helper()
	require.NoError(t, store.SetTokenData(&session.Session{
		Token:     token,
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &session.UserProfile{ID: "adm_1", Email: "ops@example.com"},
	}))
}

type driverRow struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestGet_AttachesBearer(t *testing.T) {
	b := newBackend(t, "T1", "T2")
	store := newStore(t)
	seed(t, store, "T1")
	c := NewClient(Config{BaseURL: b.URL}, store, &fakeIdentity{}, nil)

	var rows []driverRow
	require.NoError(t, c.Get(context.Background(), "/api/drivers", url.Values{"status": {"active"}}, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "active", rows[0].Status)
	assert.Equal(t, []string{"Bearer T1"}, b.seen)
	assert.Zero(t, b.exchanges.Load())
}

func TestUnauthorized_RefreshesAndRetriesOnce(t *testing.T) {
	b := newBackend(t, "T2", "T2")
	store := newStore(t)
	seed(t, store, "T1")
	ident := &fakeIdentity{}
	c := NewClient(Config{BaseURL: b.URL}, store, ident, nil)

	var rows []driverRow
	require.NoError(t, c.Get(context.Background(), "/api/drivers", nil, &rows))
	assert.Len(t, rows, 1)

	assert.Equal(t, []string{"Bearer T1", "Bearer T2"}, b.seen)
	assert.EqualValues(t, 1, b.exchanges.Load())
	assert.EqualValues(t, 1, ident.calls.Load())
	assert.Equal(t, "T2", store.GetToken())
	assert.False(t, store.GetCurrentUser().LastLogin.IsZero())
}

func TestConcurrentUnauthorized_SingleExchange(t *testing.T) {
	gate := make(chan struct{})
	b := newBackend(t, "T0", "T2", gate)
	store := newStore(t)
	seed(t, store, "T1")
	c := NewClient(Config{BaseURL: b.URL}, store, &fakeIdentity{}, nil)

	// release the exchange once both requests have been rejected
	go func() {
		deadline := time.After(2 * time.Second)
		for b.unauth.Load() < 2 {
			select {
			case <-deadline:
				close(gate)
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
		close(gate)
	}()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var rows []driverRow
			errs[i] = c.Get(context.Background(), "/api/drivers", nil, &rows)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, b.exchanges.Load())
	assert.Equal(t, "T2", store.GetToken())
}

func TestUnauthorizedAfterRetry_EndsSession(t *testing.T) {
	b := newBackend(t, "T9", "T2")
	b.alwaysReject.Store(true)
	store := newStore(t)
	seed(t, store, "T1")

	expired := make(chan struct{}, 1)
	c := NewClient(Config{BaseURL: b.URL}, store, &fakeIdentity{}, nil, OnSessionExpired(func() { expired <- struct{}{} }))

	err := c.Get(context.Background(), "/api/drivers", nil, nil)
	assert.ErrorIs(t, err, xerrors.ErrSessionExpired)
	assert.Equal(t, xerrors.MsgSessionExpired, err.Error())
	assert.Equal(t, "", store.GetToken())
	assert.Nil(t, store.GetCurrentUser())
	assert.EqualValues(t, 1, b.exchanges.Load())
	assert.Equal(t, []string{"Bearer T1", "Bearer T2"}, b.seen)
	assert.Len(t, expired, 1)
}

func TestRefreshFailure_EndsSession(t *testing.T) {
	b := newBackend(t, "T9", "T2")
	store := newStore(t)
	seed(t, store, "T1")
	c := NewClient(Config{BaseURL: b.URL}, store, &fakeIdentity{err: errors.New("identity down")}, nil)

	err := c.Get(context.Background(), "/api/drivers", nil, nil)
	assert.ErrorIs(t, err, xerrors.ErrSessionExpired)
	assert.Equal(t, "", store.GetToken())
	assert.Zero(t, b.exchanges.Load())
}

func TestBackendErrorPassesThrough(t *testing.T) {
	b := newBackend(t, "T1", "T2")
	store := newStore(t)
	seed(t, store, "T1")
	c := NewClient(Config{BaseURL: b.URL}, store, &fakeIdentity{}, nil)

	err := c.Post(context.Background(), "/api/drivers/busy", map[string]string{"a": "b"}, nil)
	var apiErr *xerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "DRIVER_BUSY", apiErr.Code)
	assert.Equal(t, "driver is on a trip", apiErr.Message)

	err = c.Get(context.Background(), "/api/broken", nil, nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "HTTP_502", apiErr.Code)
	assert.NotContains(t, apiErr.Message, "html")
	assert.Equal(t, "T1", store.GetToken())
}

func TestUnsuccessfulEnvelopeOnOK(t *testing.T) {
	b := newBackend(t, "T1", "T2")
	store := newStore(t)
	seed(t, store, "T1")
	c := NewClient(Config{BaseURL: b.URL}, store, &fakeIdentity{}, nil)

	var out map[string]any
	err := c.Post(context.Background(), "/api/drivers/quiet-fail", nil, &out)
	var apiErr *xerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.Status)
	assert.Equal(t, "HTTP_200", apiErr.Code)
	assert.Equal(t, "driver already suspended", apiErr.Message)
	assert.Nil(t, out)
	assert.Equal(t, "T1", store.GetToken())
}

func TestTimeout(t *testing.T) {
	b := newBackend(t, "T1", "T2")
	c := NewClient(Config{BaseURL: b.URL, Timeout: 50 * time.Millisecond}, newStore(t), &fakeIdentity{}, nil)

	err := c.Get(context.Background(), "/api/slow", nil, nil)
	assert.ErrorIs(t, err, xerrors.ErrRequestTimeout)
	assert.Equal(t, "Request timeout - please try again", err.Error())
}

func TestNetworkError(t *testing.T) {
	b := newBackend(t, "T1", "T2")
	b.Close()
	c := NewClient(Config{BaseURL: b.URL}, newStore(t), &fakeIdentity{}, nil)

	err := c.Get(context.Background(), "/api/drivers", nil, nil)
	assert.ErrorIs(t, err, xerrors.ErrNetwork)
	assert.Equal(t, "Network error - please check your connection", err.Error())
}

func TestCancelledByCaller(t *testing.T) {
	b := newBackend(t, "T1", "T2")
	c := NewClient(Config{BaseURL: b.URL}, newStore(t), &fakeIdentity{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	err := c.Get(ctx, "/api/slow", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpload(t *testing.T) {
	b := newBackend(t, "T1", "T2")
	store := newStore(t)
	seed(t, store, "T1")
	c := NewClient(Config{BaseURL: b.URL}, store, &fakeIdentity{}, nil)
	ctx := context.Background()

	var out struct {
		Name string `json:"name"`
		Size int    `json:"size"`
		Type string `json:"type"`
	}
	files := []UploadFile{{Field: "document", Name: "licence.pdf", Data: []byte("%PDF-1.7")}}
	require.NoError(t, c.Upload(ctx, "/api/drivers/d1/documents", files, map[string]string{"type": "licence"}, &out))
	assert.Equal(t, "licence.pdf", out.Name)
	assert.Equal(t, 8, out.Size)
	assert.Equal(t, "licence", out.Type)

	err := c.Upload(ctx, "/api/drivers/d1/documents", []UploadFile{{Name: "payload.exe", Data: []byte("MZ")}}, nil, nil)
	assert.ErrorIs(t, err, xerrors.ErrFileType)
}

func TestExchangeSession(t *testing.T) {
	b := newBackend(t, "T0", "T1")
	store := newStore(t)
	c := NewClient(Config{BaseURL: b.URL}, store, &fakeIdentity{}, nil)

	sess, err := c.ExchangeSession(context.Background(), "identity-token")
	require.NoError(t, err)
	assert.Equal(t, "T1", sess.Token)
	assert.Equal(t, "T1", store.GetToken())
	assert.Equal(t, "adm_1", store.GetCurrentUser().ID)

	_, err = c.ExchangeSession(context.Background(), "")
	assert.ErrorIs(t, err, xerrors.ErrNoIdentity)
}

func TestAutoRefresh(t *testing.T) {
	b := newBackend(t, "T1", "T2")
	store := newStore(t)
	seed(t, store, "T1")
	c := NewClient(Config{BaseURL: b.URL, RefreshEvery: 20 * time.Millisecond}, store, &fakeIdentity{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartAutoRefresh(ctx)

	require.Eventually(t, func() bool { return store.GetToken() == "T2" }, 2*time.Second, 10*time.Millisecond)
}

func TestAutoRefreshFailure_ClearsSession(t *testing.T) {
	b := newBackend(t, "T1", "T2")
	store := newStore(t)
	seed(t, store, "T1")
	c := NewClient(Config{BaseURL: b.URL, RefreshEvery: 20 * time.Millisecond}, store, &fakeIdentity{empty: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartAutoRefresh(ctx)

	require.Eventually(t, func() bool { return store.GetToken() == "" }, 2*time.Second, 10*time.Millisecond)
}
