package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type cachedValue struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCache_TTLAndInvalidate(t *testing.T) {
	now := testNow
	cache := NewMemoryCache()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	key := CacheKey("guidance", uuid.New())
	require.NoError(t, cache.Set(ctx, key, cachedValue{Name: "a", Count: 1}, time.Minute))

	var got cachedValue
	hit, err := cache.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, cachedValue{Name: "a", Count: 1}, got)

	now = now.Add(time.Minute)
	hit, err = cache.Get(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.Set(ctx, key, cachedValue{Name: "b"}, time.Minute))
	require.NoError(t, cache.Invalidate(ctx, key, "missing"))
	hit, err = cache.Get(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestMemoryCache_Sweep(t *testing.T) {
	now := testNow
	cache := NewMemoryCache()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", 1, time.Second))
	require.NoError(t, cache.Set(ctx, "long", 2, time.Hour))
	require.Equal(t, 2, cache.Len())

	now = now.Add(time.Minute)
	require.Equal(t, 1, cache.Sweep())
	require.Equal(t, 1, cache.Len())
	require.Equal(t, 0, cache.Sweep())
}

func TestRedisCache(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	cache, err := NewRedisCache(ctx, srv.Addr(), "", 0)
	require.NoError(t, err)
	defer cache.Close()

	key := CacheKey("milestones", uuid.New())
	require.NoError(t, cache.Set(ctx, key, []cachedValue{{Name: "x", Count: 3}}, time.Minute))
	require.True(t, srv.Exists("thesis:"+key))

	var got []cachedValue
	hit, err := cache.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []cachedValue{{Name: "x", Count: 3}}, got)

	srv.FastForward(2 * time.Minute)
	hit, err = cache.Get(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.Set(ctx, key, cachedValue{Name: "y"}, time.Minute))
	require.NoError(t, cache.Invalidate(ctx, key))
	require.False(t, srv.Exists("thesis:"+key))
	require.NoError(t, cache.Invalidate(ctx))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisCache(context.Background(), addr, "", 0)
	require.Error(t, err)
}
