package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration of one coordinator scope.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultScopeLockTTL bounds per-key locks taken in sequential mode.
	DefaultScopeLockTTL = 15 * time.Second

	// DefaultScoreTTL is how long a score snapshot is served without recomputing.
	DefaultScoreTTL = 24 * time.Hour

	// DefaultScoreRefreshTimeout bounds one background recompute.
	DefaultScoreRefreshTimeout = 15 * time.Second

	// ScoreHistoryLimit is the number of snapshots returned by score history.
	ScoreHistoryLimit = 10

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// systemActor is recorded in audit logs when no actor is present.
	systemActor = "system"
)
