package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultNamespace = "trolley"

type cmdable interface {
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// RedisStore reads credentials shared through Redis, e.g. by a login helper
// running on the same host.
type RedisStore struct {
	store     cmdable
	raw       *redis.Client
	namespace string
}

// NewRedisStore connects to rawURL and verifies connectivity.
func NewRedisStore(ctx context.Context, rawURL, namespace string) (*RedisStore, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s := newRedisStore(raw, namespace)
	s.raw = raw
	return s, nil
}

func newRedisStore(store cmdable, namespace string) *RedisStore {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &RedisStore{store: store, namespace: namespace}
}

// Key returns the namespaced redis key for a credential name.
func (s *RedisStore) Key(name string) string {
	return s.namespace + ":" + name
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, s.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

// Set stores value with an optional TTL (zero keeps it forever).
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.store.Set(ctx, s.Key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.store.Del(ctx, s.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool, if this store owns one.
func (s *RedisStore) Close() error {
	if s.raw == nil {
		return nil
	}
	return s.raw.Close()
}
