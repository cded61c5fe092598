package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	xerrors "dispatch-console/internal/pkg/errors"
	"dispatch-console/internal/pkg/httpx"
	"dispatch-console/internal/pkg/response"
	"dispatch-console/internal/pkg/session"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TokenStore is the slice of the token store the client needs.
type TokenStore interface {
	GetToken() string
	GetTokenData() *session.Session
	SetTokenData(*session.Session) error
	ClearTokenData()
}

// IdentitySource mints identity tokens for the session exchange.
type IdentitySource interface {
	GetIDToken(ctx context.Context, forceRefresh bool) (string, error)
}

type Config struct {
	BaseURL      string
	ExchangePath string
	Timeout      time.Duration
	RefreshEvery time.Duration
}

const (
	DefaultTimeout      = 30 * time.Second
	DefaultRefreshEvery = 50 * time.Minute
	DefaultExchangePath = "/api/auth/verify-token"
)

// Client is the authenticated REST client. Every request attaches the
// current session token and, on a first 401, refreshes the session once
// and retries.
type Client struct {
	cfg      Config
	http     *http.Client
	store    TokenStore
	identity IdentitySource
	logger   *zap.Logger
	now      func() time.Time

	uploadTypes []string
	group       singleflight.Group
	onExpired   []func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithUploadTypes overrides the file extensions Upload accepts.
func WithUploadTypes(exts ...string) Option {
	return func(c *Client) {
		c.uploadTypes = exts
	}
}

// OnSessionExpired registers a hook run after the client clears an
// unrecoverable session.
func OnSessionExpired(fn func()) Option {
	return func(c *Client) {
		c.onExpired = append(c.onExpired, fn)
	}
}

func NewClient(cfg Config, store TokenStore, identity IdentitySource, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ExchangePath == "" {
		cfg.ExchangePath = DefaultExchangePath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RefreshEvery <= 0 {
		cfg.RefreshEvery = DefaultRefreshEvery
	}

	c := &Client{
		cfg:      cfg,
		http:     &http.Client{},
		store:    store,
		identity: identity,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches endpoint and decodes the envelope data into out.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, out any) error {
	return c.request(ctx, http.MethodGet, endpoint, query, nil, out)
}

func (c *Client) Post(ctx context.Context, endpoint string, in, out any) error {
	return c.request(ctx, http.MethodPost, endpoint, nil, jsonPayload(in), out)
}

func (c *Client) Put(ctx context.Context, endpoint string, in, out any) error {
	return c.request(ctx, http.MethodPut, endpoint, nil, jsonPayload(in), out)
}

func (c *Client) Patch(ctx context.Context, endpoint string, in, out any) error {
	return c.request(ctx, http.MethodPatch, endpoint, nil, jsonPayload(in), out)
}

func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.request(ctx, http.MethodDelete, endpoint, nil, nil, out)
}

// Do sends a JSON request and returns the raw envelope.
func (c *Client) Do(ctx context.Context, method, endpoint string, query url.Values, in any) (*response.Envelope, error) {
	var body payload
	if in != nil {
		body = jsonPayload(in)
	}
	return c.do(ctx, method, endpoint, query, body)
}

func (c *Client) request(ctx context.Context, method, endpoint string, query url.Values, body payload, out any) error {
	env, err := c.do(ctx, method, endpoint, query, body)
	if err != nil {
		return err
	}
	if err := env.DecodeData(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

// do runs the attach/send/evaluate loop. The second pass only happens after
// a successful refresh; a 401 on it ends the session.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body payload) (*response.Envelope, error) {
	token := c.store.GetToken()

	for attempt := 0; attempt < 2; attempt++ {
		res, err := c.send(ctx, method, endpoint, query, body, token)
		if err != nil {
			return nil, err
		}
		if res.status != http.StatusUnauthorized {
			return res.envelope()
		}

		if attempt > 0 {
			c.logger.Warn("request unauthorized after refresh, ending session",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
			)
			break
		}

		token, err = c.refresh(ctx, token, false)
		if err != nil {
			c.logger.Warn("session refresh failed", zap.String("endpoint", endpoint), zap.Error(err))
			break
		}
	}

	c.expire()
	return nil, xerrors.ErrSessionExpired
}

type result struct {
	status int
	body   []byte
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, body payload, token string) (*result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	target := c.cfg.BaseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var (
		req *http.Request
		err error
	)
	if body != nil {
		reader, contentType, perr := body()
		if perr != nil {
			return nil, perr
		}
		req, err = http.NewRequestWithContext(reqCtx, method, target, reader)
		if err == nil {
			req.Header.Set("Content-Type", contentType)
		}
	} else {
		req, err = http.NewRequestWithContext(reqCtx, method, target, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, endpoint, err)
	}

	requestID := ulid.Make().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, method, endpoint, requestID, err)
	}
	defer resp.Body.Close()

	data, err := httpx.ReadResponse(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, method, endpoint, requestID, err)
	}

	c.logger.Debug("api request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)
	return &result{status: resp.StatusCode, body: data}, nil
}

// transportError hides transport detail behind the fixed timeout and network
// errors. A caller that cancelled gets its own context error back.
func (c *Client) transportError(ctx context.Context, method, endpoint, requestID string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	c.logger.Debug("api transport failure",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Error(err),
	)
	if httpx.IsTimeout(err) {
		return xerrors.ErrRequestTimeout
	}
	return xerrors.ErrNetwork
}

// envelope interprets a non-401 response. Backend errors come back as
// *xerrors.APIError with the backend's own code and message.
func (r *result) envelope() (*response.Envelope, error) {
	env, ok := response.Decode(r.body)
	success := r.status >= 200 && r.status < 300

	if success {
		switch {
		case !ok:
			// bare JSON payloads and empty bodies
			env = response.Envelope{Success: true}
			if len(r.body) > 0 {
				env.Data = r.body
			}
		case env.Error != nil:
			return nil, xerrors.NewAPIError(r.status, env.Error.Code, env.Error.Message)
		case !env.Success:
			// some routes report failure with a 200
			return nil, xerrors.NewAPIError(r.status, "", env.Message)
		}
		return &env, nil
	}

	if ok && env.Error != nil {
		return nil, xerrors.NewAPIError(r.status, env.Error.Code, env.Error.Message)
	}
	if ok && env.Message != "" {
		return nil, xerrors.NewAPIError(r.status, "", env.Message)
	}
	return nil, xerrors.NewAPIError(r.status, "", "")
}

func (c *Client) expire() {
	c.store.ClearTokenData()
	for _, fn := range c.onExpired {
		fn()
	}
}
