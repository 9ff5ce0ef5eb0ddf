package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/domain"
)

// ScoreRecomputer recomputes and persists a score snapshot.
type ScoreRecomputer interface {
	Recompute(ctx context.Context, userID string) (*domain.Score, error)
}

// ScoreRefreshMode selects whether post-mutation recomputes block the caller.
type ScoreRefreshMode string

const (
	ScoreRefreshAsync ScoreRefreshMode = "async"
	ScoreRefreshSync  ScoreRefreshMode = "sync"
)

// ParseScoreRefreshMode validates a configured mode.
func ParseScoreRefreshMode(s string) (ScoreRefreshMode, error) {
	switch ScoreRefreshMode(s) {
	case ScoreRefreshAsync, ScoreRefreshSync:
		return ScoreRefreshMode(s), nil
	case "":
		return ScoreRefreshAsync, nil
	}
	return "", fmt.Errorf("unknown score refresh mode %q", s)
}

// BackgroundScoreRefresher implements ScoreRefresher. Failures are logged and
// never reach the operation that triggered the refresh.
type BackgroundScoreRefresher struct {
	scorer  ScoreRecomputer
	mode    ScoreRefreshMode
	timeout time.Duration
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewBackgroundScoreRefresher creates a refresher.
func NewBackgroundScoreRefresher(scorer ScoreRecomputer, mode ScoreRefreshMode, timeout time.Duration, logger zerolog.Logger) *BackgroundScoreRefresher {
	if timeout <= 0 {
		timeout = DefaultScoreRefreshTimeout
	}
	if mode == "" {
		mode = ScoreRefreshAsync
	}
	return &BackgroundScoreRefresher{
		scorer:  scorer,
		mode:    mode,
		timeout: timeout,
		logger:  logger,
	}
}

// Refresh recomputes userID's score, detached from ctx's cancellation.
func (r *BackgroundScoreRefresher) Refresh(ctx context.Context, userID string) {
	base := context.WithoutCancel(ctx)

	if r.mode == ScoreRefreshSync {
		r.run(base, userID)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(base, userID)
	}()
}

// Wait blocks until in-flight background refreshes finish.
func (r *BackgroundScoreRefresher) Wait() {
	r.wg.Wait()
}

func (r *BackgroundScoreRefresher) run(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Str("user_id", userID).Msg("score refresh panicked")
		}
	}()

	if _, err := r.scorer.Recompute(ctx, userID); err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Str("mode", string(r.mode)).Msg("score refresh failed")
	}
}
