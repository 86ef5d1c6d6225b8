package limiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "limiter:keeps:"

const redisTimeout = 300 * time.Millisecond

// Limiter counts user's keeps within the current hour.
type Limiter struct {
	Redis *redis.Client
	Limit int
	Now   func() time.Time
}

// ReleaseFunc gives a taken slot back.
type ReleaseFunc func(ctx context.Context) error

// Acquire takes one of user's slots of the current hour. The counter is incremented atomically, so concurrent
// callers can't take more than Limit slots together. If no slot is left, ok is false and the counter is unchanged.
// The slot is held until the hour ends unless release is called.
func (l *Limiter) Acquire(ctx context.Context, userID uuid.UUID) (release ReleaseFunc, ok bool, err error) {
	key := l.userCounterKey(userID)

	n, err := l.increment(ctx, key)
	if err != nil {
		return nil, false, err
	}

	release = func(ctx context.Context) error {
		return l.decrement(ctx, key)
	}

	if n > l.Limit {
		if err := release(ctx); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	return release, true, nil
}

func (l *Limiter) increment(ctx context.Context, key string) (int, error) {
	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	val, err := l.Redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("can't increment user's counter: %w", err)
	}

	if val == 1 {
		if err := l.Redis.Expire(ctx, key, time.Hour).Err(); err != nil {
			return 0, fmt.Errorf("can't set counter expiration: %w", err)
		}
	}

	return int(val), nil
}

func (l *Limiter) decrement(ctx context.Context, key string) error {
	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	val, err := l.Redis.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("can't decrement user's counter: %w", err)
	}

	// the counter has expired in between, don't leave a key without TTL behind
	if val <= 0 {
		if err := l.Redis.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("can't delete user's counter: %w", err)
		}
	}

	return nil
}

// userCounterKey builds key which is used to store count of user's keeps.
// It consists of user's ID concatenated to current timestamp rounded down to current hour.
func (l *Limiter) userCounterKey(userID uuid.UUID) string {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}

	return cacheKeyPrefix + userID.String() + ":" + strconv.FormatInt(now.Truncate(time.Hour).Unix(), 10)
}
