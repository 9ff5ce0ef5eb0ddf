package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/sarathi/internal/domain"
)

// ScoreRepository implements usecase.ScoreRepository.
type ScoreRepository struct {
	db DBTX
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(db DBTX) *ScoreRepository {
	return &ScoreRepository{db: db}
}

const scoreColumns = `id, user_id, score, band, reason_codes, signals, state_code, created_at`

// Create stores an immutable score snapshot.
func (r *ScoreRepository) Create(ctx context.Context, score *domain.Score) error {
	signals, err := json.Marshal(score.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}

	codes := make([]string, len(score.ReasonCodes))
	for i, c := range score.ReasonCodes {
		codes[i] = string(c)
	}

	query := `
		INSERT INTO scores (` + scoreColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Exec(ctx, query,
		score.ID,
		score.UserID,
		score.Score,
		string(score.Band),
		codes,
		signals,
		score.StateCode,
		score.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

// GetLatest returns the user's newest snapshot.
func (r *ScoreRepository) GetLatest(ctx context.Context, userID string) (*domain.Score, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM scores
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	score, err := scanScore(r.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrScoreNotFound
	}
	return score, err
}

// ListByUser returns up to limit snapshots, newest first.
func (r *ScoreRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Score, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM scores
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	scores := make([]*domain.Score, 0)
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}

	return scores, rows.Err()
}

func scanScore(row pgx.Row) (*domain.Score, error) {
	var (
		score   domain.Score
		band    string
		codes   []string
		signals []byte
	)
	err := row.Scan(
		&score.ID,
		&score.UserID,
		&score.Score,
		&band,
		&codes,
		&signals,
		&score.StateCode,
		&score.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	score.Band = domain.Band(band)
	score.ReasonCodes = make([]domain.ReasonCode, len(codes))
	for i, c := range codes {
		score.ReasonCodes[i] = domain.ReasonCode(c)
	}
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &score.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal signals: %w", err)
		}
	}

	return &score, nil
}
