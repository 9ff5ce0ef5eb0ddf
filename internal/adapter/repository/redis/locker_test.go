package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bsm/redislock"

	"github.com/iho/sarathi/internal/usecase"
)

func TestLocker_AcquireAndRelease(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	locker := NewLocker(client)
	locker.retry = redislock.NoRetry()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "scope:user:user-1", time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !mr.Exists(locker.prefix + "scope:user:user-1") {
		t.Fatalf("expected lock key to exist")
	}

	if _, err := locker.Acquire(ctx, "scope:user:user-1", time.Minute); !errors.Is(err, usecase.ErrScopeBusy) {
		t.Fatalf("expected ErrScopeBusy while held, got %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	release, err = locker.Acquire(ctx, "scope:user:user-1", time.Minute)
	if err != nil {
		t.Fatalf("expected lock to be free after release: %v", err)
	}
	_ = release(ctx)
}

func TestLocker_ReleaseAfterExpiry(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	locker := NewLocker(client)
	locker.retry = redislock.NoRetry()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "scope:escrow:e-1", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if err := release(ctx); err != nil {
		t.Fatalf("releasing an expired lock should be a no-op, got %v", err)
	}
}
