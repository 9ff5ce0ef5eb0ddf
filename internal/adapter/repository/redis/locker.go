package redis

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/iho/sarathi/internal/usecase"
)

// Locker implements usecase.Locker with redislock.
type Locker struct {
	client *redislock.Client
	prefix string
	retry  redislock.RetryStrategy
}

// NewLocker creates a Locker that waits up to about a second for a busy key.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{
		client: redislock.New(client),
		prefix: "sarathi:lock:",
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	}
}

// Acquire obtains the lock for key. A key still held when retries run out
// fails with usecase.ErrScopeBusy.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, l.prefix+key, ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, usecase.ErrScopeBusy
	}
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// Expired under a slow scope; nothing left to release.
			return nil
		}
		return err
	}, nil
}
