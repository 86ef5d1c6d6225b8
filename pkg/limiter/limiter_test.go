package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, limit int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return &Limiter{Redis: rdb, Limit: limit}, mr
}

func TestLimiter(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiter(t, 2)
	user := uuid.New()
	key := l.userCounterKey(user)

	_, ok, err := l.Acquire(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = l.Acquire(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = l.Acquire(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)

	counter, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "2", counter, "rejected acquire doesn't take a slot")
	assert.Equal(t, time.Hour, mr.TTL(key))

	_, ok, err = l.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, ok, "other users have their own counters")
}

func TestLimiterRelease(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiter(t, 1)
	user := uuid.New()

	release, ok, err := l.Acquire(ctx, user)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(l.userCounterKey(user)))

	_, ok, err = l.Acquire(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiterConcurrentAcquire(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, 3)
	user := uuid.New()

	var (
		wg    sync.WaitGroup
		taken atomic.Int32
	)

	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, ok, err := l.Acquire(ctx, user)
			if assert.NoError(t, err) && ok {
				taken.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), taken.Load())
}

func TestLimiterResetsEveryHour(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, 1)
	user := uuid.New()

	now := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	l.Now = func() time.Time { return now }

	_, ok, err := l.Acquire(ctx, user)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)

	_, ok, err = l.Acquire(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiterRedisDown(t *testing.T) {
	l, mr := newLimiter(t, 1)
	mr.Close()

	_, _, err := l.Acquire(context.Background(), uuid.New())
	assert.Error(t, err)
}
