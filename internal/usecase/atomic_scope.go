package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/infrastructure/metrics"
)

// ErrScopeBusy is returned when a sequential scope cannot take one of its locks.
var ErrScopeBusy = errors.New("scope busy: another operation holds the lock")

// ScopeMode says how a scope's writes reach the store.
type ScopeMode string

const (
	// ScopeModeAtomic commits all writes of a scope as one transaction.
	ScopeModeAtomic ScopeMode = "atomic"
	// ScopeModeSequential commits each write on its own. A failure mid-scope
	// leaves earlier writes in place.
	ScopeModeSequential ScopeMode = "sequential"
)

// ScopeFunc is the body of a coordinator scope. All writes must go through tx.
type ScopeFunc func(ctx context.Context, tx Transaction) error

type scopeOptions struct {
	name     string
	lockKeys []string
}

// ScopeOption configures a single scope.
type ScopeOption func(*scopeOptions)

// WithLockKeys names the resources a sequential scope serialises on.
func WithLockKeys(keys ...string) ScopeOption {
	return func(o *scopeOptions) {
		o.lockKeys = append(o.lockKeys, keys...)
	}
}

// WithScopeName labels the scope in logs.
func WithScopeName(name string) ScopeOption {
	return func(o *scopeOptions) {
		o.name = name
	}
}

// CoordinatorConfig wires a Coordinator.
type CoordinatorConfig struct {
	TxManager       TransactionManager
	Retrier         Retrier // optional
	Locker          Locker  // optional; used only in sequential mode
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
	Timeout         time.Duration
	LockTTL         time.Duration
	ForceSequential bool
}

// Coordinator runs multi-record operations inside an atomic scope when the
// store supports it, and falls back to sequential execution when it does not.
type Coordinator struct {
	txManager TransactionManager
	retrier   Retrier
	locker    Locker
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	lockTTL   time.Duration

	sequential atomic.Bool
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTransactionTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultScopeLockTTL
	}

	c := &Coordinator{
		txManager: cfg.TxManager,
		retrier:   cfg.Retrier,
		locker:    cfg.Locker,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		timeout:   cfg.Timeout,
		lockTTL:   cfg.LockTTL,
	}
	c.sequential.Store(cfg.ForceSequential)

	return c
}

// Mode reports how the next scope will run.
func (c *Coordinator) Mode() ScopeMode {
	if c.sequential.Load() {
		return ScopeModeSequential
	}
	return ScopeModeAtomic
}

// Run executes fn inside a scope and returns fn's error unchanged.
//
// In atomic mode, fn runs in one store transaction that is rolled back on any
// error. Transient store errors are retried through the Retrier. If the store
// reports that it cannot run multi-statement transactions, the coordinator
// switches to sequential mode for the rest of the process lifetime and runs fn
// once more without atomicity.
func (c *Coordinator) Run(ctx context.Context, fn ScopeFunc, opts ...ScopeOption) error {
	var o scopeOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.Mode() == ScopeModeAtomic {
		start := time.Now()
		err := c.retry(ctx, func() error { return c.runAtomic(ctx, fn) })
		if err == nil || !c.txManager.IsAtomicUnsupported(err) {
			c.observe(ScopeModeAtomic, start, err)
			return err
		}

		c.sequential.Store(true)
		c.logger.Warn().
			Err(err).
			Str("scope", o.name).
			Msg("store does not support atomic scopes, continuing in sequential mode")
		if c.metrics != nil {
			c.metrics.ScopeFallbacks.Inc()
		}
	}

	start := time.Now()
	err := c.runSequential(ctx, fn, o)
	c.observe(ScopeModeSequential, start, err)

	return err
}

// RunInScope is Run for scope bodies that produce a value.
func RunInScope[T any](ctx context.Context, c *Coordinator, fn func(ctx context.Context, tx Transaction) (T, error), opts ...ScopeOption) (T, error) {
	var result T
	err := c.Run(ctx, func(ctx context.Context, tx Transaction) error {
		v, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		result = v
		return nil
	}, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func (c *Coordinator) runAtomic(ctx context.Context, fn ScopeFunc) error {
	tx, err := c.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (c *Coordinator) runSequential(ctx context.Context, fn ScopeFunc, o scopeOptions) error {
	release, err := c.lock(ctx, o.lockKeys)
	if err != nil {
		return err
	}
	defer release()

	tx, err := c.txManager.BeginSequential(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// lock takes every key in sorted order so concurrent scopes cannot deadlock.
func (c *Coordinator) lock(ctx context.Context, keys []string) (func(), error) {
	if c.locker == nil || len(keys) == 0 {
		return func() {}, nil
	}

	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	releases := make([]func(context.Context) error, 0, len(keys))
	releaseAll := func() {
		rctx := context.WithoutCancel(ctx)
		for i := len(releases) - 1; i >= 0; i-- {
			if err := releases[i](rctx); err != nil {
				c.logger.Warn().Err(err).Msg("failed to release scope lock")
			}
		}
	}

	for _, key := range keys {
		release, err := c.locker.Acquire(ctx, "scope:"+key, c.lockTTL)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		releases = append(releases, release)
	}

	return releaseAll, nil
}

func (c *Coordinator) retry(ctx context.Context, op func() error) error {
	if c.retrier == nil {
		return op()
	}
	return c.retrier.Retry(ctx, op)
}

func (c *Coordinator) observe(mode ScopeMode, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	c.metrics.ScopeExecutions.WithLabelValues(string(mode), result).Inc()
	c.metrics.ScopeDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
}

func userLockKey(userID string) string     { return "user:" + userID }
func escrowLockKey(escrowID string) string { return "escrow:" + escrowID }
func loanLockKey(loanID string) string     { return "loan:" + loanID }
