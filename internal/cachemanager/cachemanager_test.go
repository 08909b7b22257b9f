package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryCacheManager_SetGet(t *testing.T) {
	cache := NewInMemoryCacheManager[string, bool]("removable", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "8:16", true, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "8:16")
	require.True(t, ok)
	require.True(t, got)

	_, ok = cache.Get(context.Background(), "8:32")
	require.False(t, ok)
}

func TestInMemoryCacheManager_WrongTypeIsMiss(t *testing.T) {
	cache := NewInMemoryCacheManager[string, bool]("removable", DefaultExpiration, DefaultCleanupInterval)
	cache.cache.Set("8:16", "yes", DefaultExpiration)

	got, ok := cache.Get(context.Background(), "8:16")
	require.False(t, ok)
	require.False(t, got)
}

func TestInMemoryCacheManager_Expires(t *testing.T) {
	cache := NewInMemoryCacheManager[string, int]("test", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "k", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := cache.Get(context.Background(), "k")
	require.False(t, ok)
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	cache := NewInMemoryCacheManager[string, int]("test", DefaultExpiration, DefaultCleanupInterval)

	_, ok := cache.GetWithRefresh(context.Background(), "k", time.Minute)
	require.False(t, ok)

	cache.Set(context.Background(), "k", 7, time.Minute)
	got, ok := cache.GetWithRefresh(context.Background(), "k", time.Hour)
	require.True(t, ok)
	require.Equal(t, 7, got)
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	cache := NewInMemoryCacheManager[string, int]("test", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()
	cache.Set(ctx, "a", 1, time.Minute)
	cache.Set(ctx, "b", 2, time.Minute)

	require.NoError(t, cache.Delete(ctx))
	require.NoError(t, cache.Delete(ctx, "a"))
	_, ok := cache.Get(ctx, "a")
	require.False(t, ok)

	require.NoError(t, cache.Flush(ctx))
	_, ok = cache.Get(ctx, "b")
	require.False(t, ok)
}

func TestReadThroughCache_LoadsOnceAndCaches(t *testing.T) {
	calls := 0
	rt := NewReadThroughCache[string, bool, string](
		NewInMemoryCacheManager[string, bool]("removable", DefaultExpiration, DefaultCleanupInterval),
		func(ctx context.Context, dev string) (bool, error) {
			calls++
			return dev == "sdb", nil
		},
		false,
	)

	for i := 0; i < 3; i++ {
		got, err := rt.Get(context.Background(), "8:16", "sdb", time.Minute)
		require.NoError(t, err)
		require.True(t, got)
	}
	require.Equal(t, 1, calls)
}

func TestReadThroughCache_SkipCache(t *testing.T) {
	calls := 0
	rt := NewReadThroughCache[string, int, int](
		NewInMemoryCacheManager[string, int]("test", DefaultExpiration, DefaultCleanupInterval),
		func(ctx context.Context, in int) (int, error) {
			calls++
			return in * 2, nil
		},
		true,
	)

	_, _ = rt.Get(context.Background(), "k", 1, time.Minute)
	got, err := rt.Get(context.Background(), "k", 2, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 4, got)
	require.Equal(t, 2, calls)
}

func TestReadThroughCache_ErrorsAreNotCached(t *testing.T) {
	calls := 0
	rt := NewReadThroughCache[string, bool, string](
		NewInMemoryCacheManager[string, bool]("test", DefaultExpiration, DefaultCleanupInterval),
		func(ctx context.Context, in string) (bool, error) {
			calls++
			if calls == 1 {
				return false, errors.New("sysfs unavailable")
			}
			return true, nil
		},
		false,
	)

	_, err := rt.Get(context.Background(), "k", "x", time.Minute)
	require.Error(t, err)
	got, err := rt.Get(context.Background(), "k", "x", time.Minute)
	require.NoError(t, err)
	require.True(t, got)
}
