package directory

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formcheck/pkg/platform/sentinel"
)

func TestNewRedisRequiresClient(t *testing.T) {
	_, err := NewRedis(nil)
	require.Error(t, err)
}

func TestRedisKey(t *testing.T) {
	r, err := NewRedis(redis.NewClient(&redis.Options{}), WithKeyPrefix("test:"))
	require.NoError(t, err)

	assert.Equal(t, "test:example.org", r.key("example.org"))
	assert.Equal(t, "test:_", r.key(""))
}

func TestRedisUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	r, err := NewRedis(client)
	require.NoError(t, err)

	_, err = r.Exists(context.Background(), "alice", "example.org")
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)

	err = r.Add(context.Background(), "alice", "example.org")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}
