package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/infrastructure/metrics"
)

// ScoreUseCase derives, persists and serves credit scores.
type ScoreUseCase struct {
	users   UserRepository
	txns    TransactionRepository
	loans   LoanRepository
	scores  ScoreRepository
	cache   ScoreCache
	idGen   IDGenerator
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// ScoreDeps wires a ScoreUseCase.
type ScoreDeps struct {
	Users        UserRepository
	Transactions TransactionRepository
	Loans        LoanRepository
	Scores       ScoreRepository
	Cache        ScoreCache // optional
	IDGen        IDGenerator
	TTL          time.Duration
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
}

// NewScoreUseCase creates a new ScoreUseCase.
func NewScoreUseCase(d ScoreDeps) *ScoreUseCase {
	if d.TTL <= 0 {
		d.TTL = DefaultScoreTTL
	}
	return &ScoreUseCase{
		users:   d.Users,
		txns:    d.Transactions,
		loans:   d.Loans,
		scores:  d.Scores,
		cache:   d.Cache,
		idGen:   d.IDGen,
		ttl:     d.TTL,
		logger:  d.Logger,
		metrics: d.Metrics,
	}
}

// ComputeSignals derives the user's behavioural signals as of now.
func (uc *ScoreUseCase) ComputeSignals(ctx context.Context, userID string) (domain.Signals, error) {
	_, signals, err := uc.computeSignals(ctx, userID, time.Now().UTC())
	return signals, err
}

func (uc *ScoreUseCase) computeSignals(ctx context.Context, userID string, now time.Time) (*domain.User, domain.Signals, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Signals{}, err
	}

	remits, err := uc.txns.ListByUserSince(ctx, userID, domain.TransactionTypeRemit, now.AddDate(0, -domain.SignalWindowMonths, 0))
	if err != nil {
		return nil, domain.Signals{}, err
	}

	loans, err := uc.loans.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Signals{}, err
	}

	history, err := uc.users.ListHistory(ctx, userID)
	if err != nil {
		return nil, domain.Signals{}, err
	}

	overdrafts, err := uc.users.ListOverdrafts(ctx, userID)
	if err != nil {
		return nil, domain.Signals{}, err
	}

	signals := domain.BuildSignals(now, domain.SignalInputs{
		Remittances: remits,
		Loans:       loans,
		History:     history,
		Overdrafts:  overdrafts,
	})

	return user, signals, nil
}

// Recompute derives a fresh score snapshot, persists it and refreshes the cache.
func (uc *ScoreUseCase) Recompute(ctx context.Context, userID string) (*domain.Score, error) {
	start := time.Now()
	now := start.UTC()

	user, signals, err := uc.computeSignals(ctx, userID, now)
	if err != nil {
		uc.observe("error", start)
		return nil, err
	}

	result := domain.ComputeScore(signals)
	score := &domain.Score{
		ID:          uc.idGen.Generate(),
		UserID:      userID,
		Score:       result.Score,
		Band:        result.Band,
		ReasonCodes: result.ReasonCodes,
		Signals:     signals,
		StateCode:   user.StateCode,
		CreatedAt:   now,
	}

	if err := uc.scores.Create(ctx, score); err != nil {
		uc.observe("error", start)
		return nil, err
	}

	uc.cacheScore(ctx, score)
	uc.observe("success", start)

	return score, nil
}

// GetLatestOrRecompute returns the newest snapshot if it is younger than the
// score TTL, and recomputes otherwise.
func (uc *ScoreUseCase) GetLatestOrRecompute(ctx context.Context, userID string) (*domain.Score, error) {
	now := time.Now().UTC()

	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, userID)
		if err != nil {
			uc.logger.Warn().Err(err).Str("user_id", userID).Msg("score cache read failed")
		} else if cached != nil && cached.IsFresh(now, uc.ttl) {
			uc.lookup("cache")
			return cached, nil
		}
	}

	latest, err := uc.scores.GetLatest(ctx, userID)
	switch {
	case err == nil && latest.IsFresh(now, uc.ttl):
		uc.cacheScore(ctx, latest)
		uc.lookup("store")
		return latest, nil
	case err != nil && !errors.Is(err, domain.ErrScoreNotFound):
		return nil, err
	}

	uc.lookup("recompute")
	return uc.Recompute(ctx, userID)
}

// History returns the most recent snapshots, newest first.
func (uc *ScoreUseCase) History(ctx context.Context, userID string) ([]*domain.Score, error) {
	return uc.scores.ListByUser(ctx, userID, ScoreHistoryLimit)
}

func (uc *ScoreUseCase) cacheScore(ctx context.Context, score *domain.Score) {
	if uc.cache == nil {
		return
	}
	ttl := uc.ttl - time.Since(score.CreatedAt)
	if ttl <= 0 {
		return
	}
	if err := uc.cache.Set(ctx, score, ttl); err != nil {
		uc.logger.Warn().Err(err).Str("user_id", score.UserID).Msg("score cache write failed")
	}
}

func (uc *ScoreUseCase) observe(result string, start time.Time) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.ScoreRecomputes.WithLabelValues(result).Inc()
	uc.metrics.ScoreDuration.Observe(time.Since(start).Seconds())
}

func (uc *ScoreUseCase) lookup(source string) {
	if uc.metrics != nil {
		uc.metrics.ScoreCacheHits.WithLabelValues(source).Inc()
	}
}
