package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/sarathi/internal/domain"
)

// ScoreCache implements usecase.ScoreCache using Redis.
type ScoreCache struct {
	client *redis.Client
	prefix string
}

// NewScoreCache creates a new ScoreCache.
func NewScoreCache(client *redis.Client) *ScoreCache {
	return &ScoreCache{
		client: client,
		prefix: "sarathi:score:",
	}
}

type cachedScore struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Score       int            `json:"score"`
	Band        domain.Band    `json:"band"`
	ReasonCodes []string       `json:"reason_codes"`
	Signals     domain.Signals `json:"signals"`
	StateCode   string         `json:"state_code"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Get returns the cached snapshot, or nil, nil on a miss.
func (c *ScoreCache) Get(ctx context.Context, userID string) (*domain.Score, error) {
	data, err := c.client.Get(ctx, c.prefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached cachedScore
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("decode cached score: %w", err)
	}

	codes := make([]domain.ReasonCode, len(cached.ReasonCodes))
	for i, code := range cached.ReasonCodes {
		codes[i] = domain.ReasonCode(code)
	}

	return &domain.Score{
		ID:          cached.ID,
		UserID:      cached.UserID,
		Score:       cached.Score,
		Band:        cached.Band,
		ReasonCodes: codes,
		Signals:     cached.Signals,
		StateCode:   cached.StateCode,
		CreatedAt:   cached.CreatedAt,
	}, nil
}

// Set stores score for ttl.
func (c *ScoreCache) Set(ctx context.Context, score *domain.Score, ttl time.Duration) error {
	codes := make([]string, len(score.ReasonCodes))
	for i, code := range score.ReasonCodes {
		codes[i] = string(code)
	}

	data, err := json.Marshal(cachedScore{
		ID:          score.ID,
		UserID:      score.UserID,
		Score:       score.Score,
		Band:        score.Band,
		ReasonCodes: codes,
		Signals:     score.Signals,
		StateCode:   score.StateCode,
		CreatedAt:   score.CreatedAt,
	})
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.prefix+score.UserID, data, ttl).Err()
}

// Invalidate removes the user's cached snapshot.
func (c *ScoreCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.prefix+userID).Err()
}
