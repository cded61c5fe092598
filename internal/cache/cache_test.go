package cache

import (
	"context"
	"errors"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type driver struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func counter(calls *int, status string) func(context.Context) ([]driver, error) {
	return func(context.Context) ([]driver, error) {
		*calls++
		return []driver{{ID: "d1", Status: status}}, nil
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "/api/admin/drivers", Key("/api/admin/drivers", nil))
	assert.Equal(t, "/api/admin/drivers?page=2&status=active",
		Key("/api/admin/drivers", url.Values{"status": {"active"}, "page": {"2"}}))
}

func TestRemember_HitsWithinTTL(t *testing.T) {
	clk := &clock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	c := New(NewMemoryBackend(), time.Minute, nil, WithNowFunc(clk.now))
	ctx := context.Background()

	calls := 0
	first, err := Remember(ctx, c, "drivers", counter(&calls, "active"))
	require.NoError(t, err)
	second, err := Remember(ctx, c, "drivers", counter(&calls, "changed"))
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	clk.advance(time.Minute)
	third, err := Remember(ctx, c, "drivers", counter(&calls, "changed"))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "changed", third[0].Status)
}

func TestRemember_InvalidatePrefix(t *testing.T) {
	backend := NewMemoryBackend()
	c := New(backend, time.Hour, nil)
	ctx := context.Background()

	calls := 0
	_, err := Remember(ctx, c, "/api/admin/drivers?page=1", counter(&calls, "a"))
	require.NoError(t, err)
	_, err = Remember(ctx, c, "/api/admin/drivers/d1", counter(&calls, "a"))
	require.NoError(t, err)
	_, err = Remember(ctx, c, "/api/admin/system/health", counter(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, 3, backend.Len())

	c.Invalidate(ctx, "/api/admin/drivers")
	assert.Equal(t, 1, backend.Len())

	_, err = Remember(ctx, c, "/api/admin/drivers?page=1", counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestRemember_ErrorsAreNotCached(t *testing.T) {
	backend := NewMemoryBackend()
	c := New(backend, time.Hour, nil)
	boom := errors.New("backend down")

	_, err := Remember(context.Background(), c, "k", func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, backend.Len())
}

type brokenBackend struct{}

func (brokenBackend) Get(context.Context, string) (*Entry, error) { return nil, errors.New("down") }
func (brokenBackend) Set(context.Context, string, *Entry) error { return errors.New("down") }
func (brokenBackend) DeletePrefix(context.Context, string) error { return errors.New("down") }

func TestRemember_BackendFailureFallsThrough(t *testing.T) {
	c := New(brokenBackend{}, time.Hour, nil)
	calls := 0
	out, err := Remember(context.Background(), c, "k", counter(&calls, "live"))
	require.NoError(t, err)
	assert.Equal(t, "live", out[0].Status)
	c.Invalidate(context.Background(), "k")
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	backend := NewRedisBackend(client, "dispatch-console-test:cache")
	require.NoError(t, backend.DeletePrefix(ctx, ""))

	c := New(backend, time.Minute, nil)
	calls := 0
	_, err := Remember(ctx, c, "/api/admin/drivers?page=1", counter(&calls, "a"))
	require.NoError(t, err)
	_, err = Remember(ctx, c, "/api/admin/drivers?page=1", counter(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	c.Invalidate(ctx, "/api/admin/drivers")
	_, err = backend.Get(ctx, "/api/admin/drivers?page=1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRemember_ScopedByUser(t *testing.T) {
	user := "adm_1"
	backend := NewMemoryBackend()
	c := New(backend, time.Minute, nil, WithScope(func() string { return user }))
	ctx := context.Background()

	calls := 0
	_, err := Remember(ctx, c, "drivers", counter(&calls, "active"))
	require.NoError(t, err)
	_, err = Remember(ctx, c, "drivers", counter(&calls, "active"))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// another operator never sees the first one's entries
	user = "adm_2"
	_, err = Remember(ctx, c, "drivers", counter(&calls, "active"))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	// signed out: always fetched, never stored
	user = ""
	for i := 0; i < 2; i++ {
		_, err = Remember(ctx, c, "drivers", counter(&calls, "active"))
		require.NoError(t, err)
	}
	assert.Equal(t, 4, calls)
	assert.Equal(t, 2, backend.Len())

	c.Invalidate(ctx, "drivers")
	assert.Equal(t, 2, backend.Len())

	c.Purge(ctx)
	assert.Equal(t, 0, backend.Len())
}
