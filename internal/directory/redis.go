package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"formcheck/pkg/platform/sentinel"
)

const (
	// DefaultKeyPrefix namespaces the per-context sets.
	DefaultKeyPrefix = "formcheck:taken:"
	// defaultContextKey stands in for the empty context in key names.
	defaultContextKey = "_"
)

// Redis looks names up in one Redis set per context:
// SISMEMBER <prefix><context> <name>.
type Redis struct {
	client redis.Cmdable
	prefix string
}

type RedisOption func(*Redis)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

func NewRedis(client redis.Cmdable, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	r := &Redis{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Exists reports whether value is a member of the context's set. Connection
// and server errors wrap sentinel.ErrUnavailable.
func (r *Redis) Exists(ctx context.Context, value, domain string) (bool, error) {
	key := r.key(domain)
	ok, err := r.client.SIsMember(ctx, key, normalize(value)).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return ok, nil
}

// Add marks value as taken within domain.
func (r *Redis) Add(ctx context.Context, value, domain string) error {
	key := r.key(domain)
	if err := r.client.SAdd(ctx, key, normalize(value)).Err(); err != nil {
		return fmt.Errorf("redis sadd %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

// Remove frees value within domain.
func (r *Redis) Remove(ctx context.Context, value, domain string) error {
	key := r.key(domain)
	if err := r.client.SRem(ctx, key, normalize(value)).Err(); err != nil {
		return fmt.Errorf("redis srem %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) key(domain string) string {
	if domain == "" {
		domain = defaultContextKey
	}
	return r.prefix + domain
}
