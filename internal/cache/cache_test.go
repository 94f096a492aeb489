package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(zaptest.NewLogger(t))
	t.Cleanup(c.Close)
	return c
}

func TestExecute_CacheHit(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	producer := func(ctx context.Context) (string, error) {
		calls++
		return "value", nil
	}

	v, err := Execute(ctx, c, "key", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	v, err = Execute(ctx, c, "key", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)
}

func TestExecute_DistinctKeys(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	producer := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	a, err := Execute(ctx, c, "a", time.Minute, producer)
	require.NoError(t, err)
	b, err := Execute(ctx, c, "b", time.Minute, producer)
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestExecute_TTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	producer := func(ctx context.Context) (string, error) {
		calls++
		return "value", nil
	}

	_, err := Execute(ctx, c, "key", 20*time.Millisecond, producer)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = Execute(ctx, c, "key", 20*time.Millisecond, producer)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestEvictExpired_RemovesExpiredEntry(t *testing.T) {
	c := newTestCache(t)

	c.set("key", "stale", 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	c.evictExpired("key")
	assert.Equal(t, 0, c.Len())
}

func TestEvictExpired_KeepsRefreshedEntry(t *testing.T) {
	c := newTestCache(t)

	// A reader saw an expired entry, then a writer refreshed the key
	// before the reader got around to evicting it. The eviction must
	// re-check expiry and leave the fresh entry alone.
	c.set("key", "fresh", time.Minute)
	c.evictExpired("key")

	v, ok := c.get("key")
	require.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func TestExecute_ErrorNotCached(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	producer := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("network down")
		}
		return "recovered", nil
	}

	_, err := Execute(ctx, c, "key", time.Minute, producer)
	require.Error(t, err)

	v, err := Execute(ctx, c, "key", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 2, calls)
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	producer := func(ctx context.Context) (string, error) {
		calls++
		return "value", nil
	}

	_, err := Execute(ctx, c, "key", time.Minute, producer)
	require.NoError(t, err)

	c.Invalidate("key")

	_, err = Execute(ctx, c, "key", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidatePattern(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	producer := func(ctx context.Context) (string, error) {
		return "value", nil
	}

	for _, key := range []string{"cashier-1", "cashier-2", "terminal-status-1"} {
		_, err := Execute(ctx, c, key, time.Minute, producer)
		require.NoError(t, err)
	}
	require.Equal(t, 3, c.Len())

	c.InvalidatePattern("cashier")

	assert.Equal(t, 1, c.Len())

	// The surviving entry is still served from cache.
	calls := 0
	_, err := Execute(ctx, c, "terminal-status-1", time.Minute, func(ctx context.Context) (string, error) {
		calls++
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestExecute_SingleFlight(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	const goroutines = 10

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	producer := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Execute(ctx, c, "key", time.Minute, producer)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	// All callers are now either in flight behind the first producer or
	// about to join it.
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestClose_Idempotent(t *testing.T) {
	c := New(zaptest.NewLogger(t))
	c.Close()
	c.Close()
}
