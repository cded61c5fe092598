// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL applies when a cache is built with a zero ttl.
const DefaultTTL = 5 * time.Minute

// ErrMiss is returned by a Backend when a key holds nothing.
var ErrMiss = errors.New("cache miss")

// Entry is one cached response.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTL       time.Duration   `json:"ttl"`
}

// Fresh reports whether the entry is still within its TTL at now.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.Timestamp.Add(e.TTL))
}

// Backend stores entries by key.
type Backend interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Cache is a read-through TTL cache over a Backend. Backend failures are
// logged and treated as misses.
type Cache struct {
	backend Backend
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
	scope   func() string
}

type Option func(*Cache)

func WithNowFunc(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithScope keys every entry under scope(), typically the signed-in user's
// ID. While scope() is empty nothing is read from or written to the cache.
func WithScope(scope func() string) Option {
	return func(c *Cache) { c.scope = scope }
}

func New(backend Backend, ttl time.Duration, logger *zap.Logger, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{backend: backend, ttl: ttl, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds a cache key from an endpoint and its query parameters.
func Key(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

// Invalidate drops every entry in the current scope whose key starts with
// prefix.
func (c *Cache) Invalidate(ctx context.Context, prefix string) {
	full, ok := c.scoped(prefix)
	if !ok {
		return
	}
	c.deletePrefix(ctx, full)
}

// Purge drops every entry of every scope.
func (c *Cache) Purge(ctx context.Context) {
	c.deletePrefix(ctx, "")
}

func (c *Cache) deletePrefix(ctx context.Context, prefix string) {
	if err := c.backend.DeletePrefix(ctx, prefix); err != nil {
		c.logger.Warn("cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		return
	}
	c.logger.Debug("cache invalidated", zap.String("prefix", prefix))
}

// scoped returns key inside the current scope. ok is false when a scope is
// configured but nobody is signed in.
func (c *Cache) scoped(key string) (string, bool) {
	if c.scope == nil {
		return key, true
	}
	s := c.scope()
	if s == "" {
		return "", false
	}
	return "user:" + s + ":" + key, true
}

// Remember returns the fresh cached value for key or calls fetch and caches
// its result. Fetch errors are returned and never cached.
func Remember[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var out T

	key, ok := c.scoped(key)
	if !ok {
		return fetch(ctx)
	}

	entry, err := c.backend.Get(ctx, key)
	switch {
	case err == nil && entry.Fresh(c.now()):
		if err := json.Unmarshal(entry.Data, &out); err == nil {
			c.logger.Debug("cache hit", zap.String("key", key))
			return out, nil
		}
		c.logger.Warn("cache entry unreadable", zap.String("key", key))
	case err != nil && !errors.Is(err, ErrMiss):
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	out, err = fetch(ctx)
	if err != nil {
		return out, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return out, nil
	}
	entry = &Entry{Data: data, Timestamp: c.now(), TTL: c.ttl}
	if err := c.backend.Set(ctx, key, entry); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}
