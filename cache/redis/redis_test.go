//go:build integration
// +build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"photosearch/cache"
	"photosearch/cache/redis"

	"github.com/mediocregopher/radix/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	address  = "127.0.0.1:6380"
	poolSize = 10
)

func TestRedis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := redis.New(ctx, address, poolSize, time.Minute)
	require.NoError(t, err)

	cfg := radix.PoolConfig{}
	client, err := cfg.New(ctx, "tcp", address)
	require.NoError(t, err)
	defer client.Close()

	t.Run("get item", func(t *testing.T) {
		require.NoError(t, provider.Set(ctx, "foo", []byte("bar")))

		data, err := provider.Get(ctx, "foo")
		require.NoError(t, err)
		assert.Equal(t, "bar", string(data))
	})

	t.Run("item expires", func(t *testing.T) {
		var ttl int
		require.NoError(t, client.Do(ctx, radix.Cmd(&ttl, "PTTL", "foo")))
		assert.Greater(t, ttl, 0)
	})

	t.Run("get nonexistent item", func(t *testing.T) {
		_, err := provider.Get(ctx, "notfound")
		assert.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("get error", func(t *testing.T) {
		provider.Shutdown()
		_, err := provider.Get(ctx, "notfound")
		assert.Error(t, err)
	})

	client.Do(ctx, radix.Cmd(nil, "FLUSHALL"))
}

func TestNew(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := redis.New(ctx, "", 10, 0)
	assert.Error(t, err)
}
