package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewCache(client)
}

type sample struct {
	Token string `json:"token"`
	N     int    `json:"n"`
}

func TestCache_SetGet(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", sample{Token: "abc", N: 3}, time.Minute))

	var got sample
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, sample{Token: "abc", N: 3}, got)
}

func TestCache_MissAndExpiry(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		var got sample
		assert.ErrorIs(t, c.Get(ctx, "missing", &got), ErrMiss)
	})

	t.Run("expired key", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", sample{N: 1}, time.Second))
		mr.FastForward(2 * time.Second)

		var got sample
		assert.ErrorIs(t, c.Get(ctx, "short", &got), ErrMiss)
	})
}

func TestCache_DeleteExistsTTL(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, time.Hour))

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err := c.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	require.NoError(t, c.Delete(ctx, "k"))

	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err = c.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}
