package reportcache

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

type testReport struct {
	Count int `json:"count"`
}

func TestCache_MissPutHitInvalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var out testReport
	assert.False(t, c.Get(ctx, "proj-1", "task_metrics", &out))

	c.Put(ctx, "proj-1", "task_metrics", testReport{Count: 7})

	ok := c.Get(ctx, "proj-1", "task_metrics", &out)
	require.True(t, ok)
	assert.Equal(t, 7, out.Count)

	c.Invalidate(ctx, "proj-1", "task_metrics")
	assert.False(t, c.Get(ctx, "proj-1", "task_metrics", &out))
}

func TestCache_KeyedByProjectAndReportName(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Put(ctx, "proj-1", "task_metrics", testReport{Count: 1})
	c.Put(ctx, "proj-2", "task_metrics", testReport{Count: 2})

	var out testReport
	require.True(t, c.Get(ctx, "proj-1", "task_metrics", &out))
	assert.Equal(t, 1, out.Count)
	require.True(t, c.Get(ctx, "proj-2", "task_metrics", &out))
	assert.Equal(t, 2, out.Count)
}
