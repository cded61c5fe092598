package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dispatch-console/internal/domain/auth"
	xerrors "dispatch-console/internal/pkg/errors"
	"dispatch-console/internal/pkg/jwt"
	"dispatch-console/internal/pkg/session"

	"go.uber.org/zap"
)

const refreshKey = "refresh"

// ExchangeSession trades an identity token for a backend session and
// persists it. The session exchange itself never retries.
func (c *Client) ExchangeSession(ctx context.Context, idToken string) (*session.Session, error) {
	if idToken == "" {
		return nil, xerrors.ErrNoIdentity
	}

	res, err := c.send(ctx, http.MethodPost, c.cfg.ExchangePath, nil, jsonPayload(auth.VerifyTokenRequest{IDToken: idToken}), "")
	if err != nil {
		return nil, err
	}
	env, err := res.envelope()
	if err != nil {
		return nil, err
	}

	var data auth.SessionResponse
	if err := env.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("decode session exchange: %w", err)
	}
	if data.Token == "" {
		return nil, fmt.Errorf("%w: exchange returned no token", xerrors.ErrRefreshFailed)
	}

	user := data.User
	if user == nil {
		// refresh responses may omit the profile; keep the one we have
		if cur := c.store.GetTokenData(); cur != nil {
			user = cur.User
		}
	}
	if user == nil {
		return nil, fmt.Errorf("%w: exchange returned no user", xerrors.ErrRefreshFailed)
	}
	user.LastLogin = c.now().UTC()

	sess := &session.Session{
		Token:     data.Token,
		ExpiresAt: c.expiryOf(data),
		User:      user,
	}
	if err := c.store.SetTokenData(sess); err != nil {
		return nil, err
	}

	c.logger.Info("session exchanged",
		zap.String("user_id", user.ID),
		zap.Time("expires_at", sess.ExpiresAt),
	)
	return sess, nil
}

// RefreshSession forces a session exchange. It shares the single flight
// with 401-triggered refreshes.
func (c *Client) RefreshSession(ctx context.Context) error {
	_, err := c.refresh(ctx, "", true)
	return err
}

// refresh returns a usable session token. failed is the token that was just
// rejected: when the store already holds a different one, another caller
// refreshed in the meantime and no exchange is made.
func (c *Client) refresh(ctx context.Context, failed string, force bool) (string, error) {
	v, err, shared := c.group.Do(refreshKey, func() (any, error) {
		if !force {
			if cur := c.store.GetToken(); cur != "" && cur != failed {
				return cur, nil
			}
		}

		// the exchange outlives any single caller's cancellation
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()

		idToken, err := c.identity.GetIDToken(fctx, true)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", xerrors.ErrRefreshFailed, err)
		}
		if idToken == "" {
			return nil, xerrors.ErrNoIdentity
		}
		sess, err := c.ExchangeSession(fctx, idToken)
		if err != nil {
			return nil, err
		}
		return sess.Token, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug("joined in-flight session refresh")
	}
	return v.(string), nil
}

// StartAutoRefresh keeps a live session warm by exchanging it on a fixed
// interval until ctx is done. A failed refresh ends the session.
func (c *Client) StartAutoRefresh(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.RefreshEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.store.GetToken() == "" {
					continue
				}
				if err := c.RefreshSession(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					c.logger.Warn("background session refresh failed, ending session", zap.Error(err))
					c.expire()
					continue
				}
				c.logger.Debug("background session refresh complete")
			}
		}
	}()
}

func (c *Client) expiryOf(data auth.SessionResponse) time.Time {
	switch {
	case data.ExpiresAt != nil && !data.ExpiresAt.IsZero():
		return data.ExpiresAt.UTC()
	case data.ExpiresIn > 0:
		return c.now().Add(time.Duration(data.ExpiresIn) * time.Second).UTC()
	}
	if exp, err := jwt.ExpiryOf(data.Token); err == nil {
		return exp
	}
	return c.now().Add(session.DefaultTTL).UTC()
}
