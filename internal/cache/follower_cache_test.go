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

func setupCache(t *testing.T) *FollowerCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFollowerCache(client, time.Minute)
}

func TestFollowerCache_MissThenHit(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	_, ok := c.Page(ctx, "u1", 0, 10)
	assert.False(t, ok)

	c.StoreIndex(ctx, "u1", []string{"a", "b", "c"})

	ids, ok := c.Page(ctx, "u1", 0, 10)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, StripEmpty(ids))
}

func TestFollowerCache_PageRange(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	c.StoreIndex(ctx, "u1", []string{"a", "b", "c", "d", "e"})

	ids, ok := c.Page(ctx, "u1", 2, 2)
	require.True(t, ok)
	assert.Equal(t, []string{"c", "d"}, ids)

	// past the end yields an empty page, still a hit
	ids, ok = c.Page(ctx, "u1", 10, 2)
	require.True(t, ok)
	assert.Empty(t, ids)
}

func TestFollowerCache_EmptyListIsCached(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	c.StoreIndex(ctx, "u1", nil)

	ids, ok := c.Page(ctx, "u1", 0, 10)
	require.True(t, ok)
	assert.Empty(t, StripEmpty(ids))
}

func TestFollowerCache_Invalidate(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	c.StoreIndex(ctx, "u1", []string{"a"})
	c.Invalidate(ctx, "u1")

	_, ok := c.Page(ctx, "u1", 0, 10)
	assert.False(t, ok)
}
