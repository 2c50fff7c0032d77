package postal

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpires(t *testing.T) {
	t.Parallel()
	cache := NewMemoryCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	addr := Address{Zipcode: "1500001", Prefecture: "東京都", City: "渋谷区神宮前"}
	require.NoError(t, cache.Set(context.Background(), "1500001", addr))

	got, ok, err := cache.Get(context.Background(), "1500001")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, addr, got)

	now = now.Add(2 * time.Minute)
	_, ok, err = cache.Get(context.Background(), "1500001")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	t.Parallel()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRedisCache(client, "test:postal", time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "1500001")
	require.NoError(t, err)
	require.False(t, ok)

	addr := Address{Zipcode: "1500001", Prefecture: "東京都", City: "渋谷区神宮前"}
	require.NoError(t, cache.Set(ctx, "1500001", addr))
	require.True(t, srv.Exists("test:postal:1500001"))
	require.Equal(t, time.Hour, srv.TTL("test:postal:1500001"))

	got, ok, err := cache.Get(ctx, "1500001")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, addr, got)

	srv.FastForward(2 * time.Hour)
	_, ok, err = cache.Get(ctx, "1500001")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCachedLookuperCachesSuccessOnly(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	upstream := LookuperFunc(func(ctx context.Context, zipcode string) (Address, error) {
		calls.Add(1)
		if zipcode == "0000000" {
			return Address{}, ErrNotFound
		}
		return Address{Zipcode: zipcode, Prefecture: "東京都", City: "渋谷区"}, nil
	})
	lookuper := NewCachedLookuper(upstream, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := lookuper.Lookup(ctx, "1500001")
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, calls.Load())

	for i := 0; i < 2; i++ {
		_, err := lookuper.Lookup(ctx, "0000000")
		require.ErrorIs(t, err, ErrNotFound)
	}
	require.EqualValues(t, 3, calls.Load())
}

func TestCachedLookuperCollapsesConcurrentCalls(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	release := make(chan struct{})
	upstream := LookuperFunc(func(ctx context.Context, zipcode string) (Address, error) {
		calls.Add(1)
		<-release
		return Address{Zipcode: zipcode, Prefecture: "大阪府"}, nil
	})
	lookuper := NewCachedLookuper(upstream, NewMemoryCache(time.Minute))

	const callers = 5
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	results := make([]Address, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], errs[i] = lookuper.Lookup(context.Background(), "5300001")
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	require.EqualValues(t, 1, calls.Load())
	for i, addr := range results {
		require.NoError(t, errs[i])
		require.Equal(t, "大阪府", addr.Prefecture)
	}
}

func TestCachedLookuperHonoursCallerCancel(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	upstream := LookuperFunc(func(ctx context.Context, zipcode string) (Address, error) {
		<-release
		return Address{Zipcode: zipcode}, nil
	})
	lookuper := NewCachedLookuper(upstream, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lookuper.Lookup(ctx, "1500001")
	require.ErrorIs(t, err, context.Canceled)
}
