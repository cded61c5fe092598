package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	xerrors "dispatch-console/internal/pkg/errors"
	"dispatch-console/internal/pkg/httpx"
	"dispatch-console/internal/pkg/session"
	"dispatch-console/internal/pkg/validation"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// CredentialStore persists the identity refresh credential between runs.
type CredentialStore interface {
	SaveIdentity(*session.IdentityCredential)
	LoadIdentity() *session.IdentityCredential
	ClearIdentity()
}

// Listener is notified with the signed-in user, or nil after sign-out.
type Listener func(*User)

// Client talks to a Firebase-compatible identity provider.
type Client struct {
	cfg        Config
	store      CredentialStore
	httpClient *http.Client
	oauth      *oauth2.Config
	logger     *zap.Logger
	now        func() time.Time

	verifierOnce sync.Once
	verifier     *oidc.IDTokenVerifier

	mu     sync.Mutex
	cred   *session.IdentityCredential
	loaded bool

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
	queue     []*User
	draining  bool
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(cfg Config, store CredentialStore, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	cfg.TokenBase = strings.TrimRight(cfg.TokenBase, "/")
	if cfg.KeySetURL == "" {
		cfg.KeySetURL = defaultKeySetURL
	}

	c := &Client{
		cfg:        cfg,
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		now:        time.Now,
		listeners:  make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}

	// The secure-token endpoint is a plain OAuth2 refresh_token grant keyed
	// by the API key instead of client credentials.
	c.oauth = &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  fmt.Sprintf("%s/v1/token?key=%s", cfg.TokenBase, url.QueryEscape(cfg.APIKey)),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return c
}

// SignIn authenticates with email and password. It never returns an error;
// failures are reported through Result.Error.
func (c *Client) SignIn(ctx context.Context, creds Credentials) Result {
	if err := validation.Email(creds.Email); err != nil {
		return Result{Error: Message("INVALID_EMAIL", "")}
	}
	if creds.Password == "" {
		return Result{Error: Message("MISSING_PASSWORD", "")}
	}

	var resp authResponse
	err := c.post(ctx, "accounts:signInWithPassword", passwordRequest{
		Email:             creds.Email,
		Password:          creds.Password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		c.logger.Warn("sign in failed", zap.String("email", creds.Email), zap.Error(err))
		return failure(err)
	}

	user := c.establish(resp)
	c.logger.Info("signed in", zap.String("uid", user.UID))
	return Result{Success: true, User: user}
}

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, data SignUpData) Result {
	if err := validation.Email(data.Email); err != nil {
		return Result{Error: Message("INVALID_EMAIL", "")}
	}
	if err := validation.Password(data.Password); err != nil {
		return Result{Error: Message("WEAK_PASSWORD", "")}
	}

	var resp authResponse
	err := c.post(ctx, "accounts:signUp", passwordRequest{
		Email:             data.Email,
		Password:          data.Password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		c.logger.Warn("sign up failed", zap.String("email", data.Email), zap.Error(err))
		return failure(err)
	}

	if data.DisplayName != "" {
		var upd authResponse
		err := c.post(ctx, "accounts:update", updateProfileRequest{
			IDToken:     resp.IDToken,
			DisplayName: data.DisplayName,
		}, &upd)
		if err != nil {
			// the account exists; a missing display name is not worth failing sign-up over
			c.logger.Warn("failed to set display name", zap.Error(err))
		} else {
			resp.DisplayName = data.DisplayName
		}
	}

	user := c.establish(resp)
	c.logger.Info("signed up", zap.String("uid", user.UID))
	return Result{Success: true, User: user}
}

// SignOut forgets the identity session.
func (c *Client) SignOut(_ context.Context) {
	c.mu.Lock()
	had := c.currentLocked() != nil
	c.cred = nil
	c.loaded = true
	c.mu.Unlock()

	c.store.ClearIdentity()
	if had {
		c.logger.Info("signed out")
	}
	c.notify(nil)
}

// ResetPassword asks the provider to email a reset link.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	if err := validation.Email(email); err != nil {
		return err
	}
	var out map[string]any
	if err := c.post(ctx, "accounts:sendOobCode", oobRequest{RequestType: "PASSWORD_RESET", Email: email}, &out); err != nil {
		return err
	}
	c.logger.Info("password reset requested", zap.String("email", email))
	return nil
}

// CurrentUser returns the signed-in identity user or nil.
func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	cred := c.currentLocked()
	if cred == nil {
		return nil
	}
	return &User{UID: cred.UID, Email: cred.Email, DisplayName: cred.DisplayName}
}

// GetIDToken returns an identity token, or "" when nobody is signed in. A
// cached token is reused while it is fresh unless forceRefresh is set.
func (c *Client) GetIDToken(ctx context.Context, forceRefresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred := c.currentLocked()
	if cred == nil {
		return "", nil
	}
	if !forceRefresh && cred.IDToken != "" && c.now().Add(tokenSkew).Before(cred.IDTokenExp) {
		return cred.IDToken, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		c.logger.Warn("identity token refresh failed", zap.String("uid", cred.UID), zap.Error(err))
		return "", fmt.Errorf("%w: %v", xerrors.ErrRefreshFailed, refreshFailure(err))
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return "", fmt.Errorf("%w: provider returned no id_token", xerrors.ErrRefreshFailed)
	}
	if err := c.verify(ctx, idToken); err != nil {
		return "", fmt.Errorf("%w: %v", xerrors.ErrRefreshFailed, err)
	}

	next := *cred
	next.IDToken = idToken
	next.IDTokenExp = tok.Expiry.UTC()
	if next.IDTokenExp.IsZero() {
		next.IDTokenExp = c.now().Add(time.Hour).UTC()
	}
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	c.cred = &next
	c.store.SaveIdentity(&next)

	c.logger.Debug("identity token refreshed",
		zap.String("uid", next.UID),
		zap.Bool("forced", forceRefresh),
		zap.Time("expires_at", next.IDTokenExp),
	)
	return idToken, nil
}

// OnAuthStateChanged registers fn for sign-in and sign-out notifications.
// Notifications are delivered in order on a background goroutine.
func (c *Client) OnAuthStateChanged(fn Listener) (unsubscribe func()) {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.lmu.Unlock()

	return func() {
		c.lmu.Lock()
		delete(c.listeners, id)
		c.lmu.Unlock()
	}
}

// --- Helper functions ---

func (c *Client) currentLocked() *session.IdentityCredential {
	if !c.loaded {
		c.cred = c.store.LoadIdentity()
		c.loaded = true
	}
	return c.cred
}

func (c *Client) establish(resp authResponse) *User {
	cred := &session.IdentityCredential{
		UID:          resp.LocalID,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		RefreshToken: resp.RefreshToken,
		IDToken:      resp.IDToken,
		IDTokenExp:   c.now().Add(parseExpiresIn(resp.ExpiresIn)).UTC(),
	}

	c.mu.Lock()
	c.cred = cred
	c.loaded = true
	c.mu.Unlock()

	c.store.SaveIdentity(cred)
	user := &User{UID: cred.UID, Email: cred.Email, DisplayName: cred.DisplayName}
	c.notify(user)
	return user
}

func (c *Client) notify(user *User) {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	c.queue = append(c.queue, user)
	if c.draining {
		return
	}
	c.draining = true
	go c.drain()
}

func (c *Client) drain() {
	for {
		c.lmu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.lmu.Unlock()
			return
		}
		user := c.queue[0]
		c.queue = c.queue[1:]
		fns := make([]Listener, 0, len(c.listeners))
		for _, fn := range c.listeners {
			fns = append(fns, fn)
		}
		c.lmu.Unlock()

		for _, fn := range fns {
			c.safeCall(fn, user)
		}
	}
}

func (c *Client) safeCall(fn Listener, user *User) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("auth state listener panicked", zap.Any("panic", r))
		}
	}()
	fn(user)
}

func (c *Client) post(ctx context.Context, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/v1/%s?key=%s", c.cfg.APIBase, method, url.QueryEscape(c.cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if httpx.IsTimeout(err) {
			return xerrors.ErrRequestTimeout
		}
		return fmt.Errorf("%w: %s", xerrors.ErrNetwork, method)
	}
	defer resp.Body.Close()

	data, err := httpx.ReadResponse(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s", xerrors.ErrNetwork, method)
	}
	if resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// verify checks the identity token signature when verification is enabled.
func (c *Client) verify(ctx context.Context, idToken string) error {
	if !c.cfg.VerifyTokens {
		return nil
	}
	c.verifierOnce.Do(func() {
		keyCtx := oidc.ClientContext(context.Background(), c.httpClient)
		keys := oidc.NewRemoteKeySet(keyCtx, c.cfg.KeySetURL)
		c.verifier = oidc.NewVerifier(issuerPrefix+c.cfg.ProjectID, keys, &oidc.Config{
			ClientID: c.cfg.ProjectID,
			Now:      c.now,
		})
	})
	if _, err := c.verifier.Verify(ctx, idToken); err != nil {
		return fmt.Errorf("identity token verification: %w", err)
	}
	return nil
}

func failure(err error) Result {
	var ierr *Error
	if errors.As(err, &ierr) {
		return Result{Error: ierr.Message}
	}
	switch {
	case errors.Is(err, xerrors.ErrRequestTimeout):
		return Result{Error: xerrors.MsgRequestTimeout}
	case errors.Is(err, xerrors.ErrNetwork):
		return Result{Error: xerrors.MsgNetwork}
	}
	return Result{Error: "Authentication failed"}
}

// refreshFailure reduces an oauth2 error to the provider's code.
func refreshFailure(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return parseError(re.Response.StatusCode, re.Body)
	}
	if httpx.IsTimeout(err) {
		return xerrors.ErrRequestTimeout
	}
	return xerrors.ErrNetwork
}

func parseExpiresIn(s string) time.Duration {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return time.Hour
}
