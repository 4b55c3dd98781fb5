package embedcache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFromClient(client)
}

func TestCacheMissThenHit(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "text-embedding-3-small", "hello world")
	assert.False(t, ok)

	c.Put(ctx, "text-embedding-3-small", "hello world", []float32{0.1, 0.2, 0.3})

	vec, ok := c.Get(ctx, "text-embedding-3-small", "hello world")
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestCacheKeyedByModel(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Put(ctx, "model-a", "same text", []float32{1, 2})

	_, ok := c.Get(ctx, "model-b", "same text")
	assert.False(t, ok, "different model must not share a cache key for the same text")
}

func TestCacheReadFailureIsSwallowed(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Close())

	_, ok := c.Get(context.Background(), "model", "text")
	assert.False(t, ok, "a Redis error must surface as a miss, not an error")
}
