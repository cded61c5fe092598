package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps sealed blobs in Redis under a namespace, so several
// console hosts can share one operator login. Sharing only works with a
// PassphraseCipher; a FingerprintCipher key is bound to the sealing host.
type RedisBackend struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisBackend stores keys as "<namespace>:<key>". A zero ttl keeps keys
// until they are cleared.
func NewRedisBackend(client *redis.Client, namespace string, ttl time.Duration) *RedisBackend {
	if namespace == "" {
		namespace = "console"
	}
	return &RedisBackend{client: client, namespace: namespace, ttl: ttl}
}

func (r *RedisBackend) key(k string) string {
	return fmt.Sprintf("%s:%s", r.namespace, k)
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.client.Del(ctx, full...).Err()
}
