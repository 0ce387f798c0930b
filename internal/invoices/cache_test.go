package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, time.Minute), mr
}

func sampleStats() Stats {
	return Stats{
		TotalCount:  3,
		TotalAmount: decimal.RequireFromString("1234.56"),
		ByStatus: map[Status]StatusStat{
			StatusDraft: {Count: 1, Amount: decimal.RequireFromString("100")},
			StatusPaid:  {Count: 2, Amount: decimal.RequireFromString("1134.56")},
		},
	}
}

func TestStatsCacheFetchPopulatesAndReuses(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (Stats, error) {
		loads++
		return sampleStats(), nil
	}

	first, err := cache.Fetch(ctx, 1, loader)
	require.NoError(t, err)
	require.Equal(t, 3, first.TotalCount)
	require.Equal(t, 1, loads)

	second, err := cache.Fetch(ctx, 1, loader)
	require.NoError(t, err)
	require.Equal(t, 1, loads, "second fetch must hit the cache")
	require.Equal(t, first.TotalCount, second.TotalCount)
	require.True(t, first.TotalAmount.Equal(second.TotalAmount))
	require.Equal(t, first.ByStatus[StatusPaid].Count, second.ByStatus[StatusPaid].Count)
}

func TestStatsCacheKeysScopedPerOwner(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (Stats, error) {
		loads++
		return sampleStats(), nil
	}

	_, err := cache.Fetch(ctx, 1, loader)
	require.NoError(t, err)
	_, err = cache.Fetch(ctx, 2, loader)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}

func TestStatsCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (Stats, error) {
		loads++
		return sampleStats(), nil
	}

	_, err := cache.Fetch(ctx, 1, loader)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, 1))

	_, err = cache.Fetch(ctx, 1, loader)
	require.NoError(t, err)
	require.Equal(t, 2, loads, "invalidation must force a reload")
}

func TestStatsCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (Stats, error) {
		loads++
		return sampleStats(), nil
	}

	_, err := cache.Fetch(ctx, 1, loader)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cache.Fetch(ctx, 1, loader)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}

func TestStatsCacheNilFallsThrough(t *testing.T) {
	var cache *StatsCache
	stats, err := cache.Fetch(context.Background(), 1, func(context.Context) (Stats, error) {
		return sampleStats(), nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalCount)
}
