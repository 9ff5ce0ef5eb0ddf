package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

// ProofRepository implements usecase.ProofRepository.
type ProofRepository struct {
	db DBTX
}

// NewProofRepository creates a new ProofRepository.
func NewProofRepository(db DBTX) *ProofRepository {
	return &ProofRepository{db: db}
}

const proofColumns = `id, escrow_id, merchant_id, proof_url, description, status, reviewed_by, reviewed_at, rejection_reason, created_at`

// Create inserts a proof.
func (r *ProofRepository) Create(ctx context.Context, tx usecase.Transaction, proof *domain.Proof) error {
	query := `
		INSERT INTO safesend_proofs (` + proofColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := conn(tx, r.db).Exec(ctx, query,
		proof.ID,
		proof.EscrowID,
		proof.MerchantID,
		proof.ProofURL,
		proof.Description,
		string(proof.Status),
		proof.ReviewedBy,
		proof.ReviewedAt,
		proof.RejectionReason,
		proof.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert proof: %w", err)
	}
	return nil
}

// GetByID reads a proof without locking it.
func (r *ProofRepository) GetByID(ctx context.Context, id string) (*domain.Proof, error) {
	query := `SELECT ` + proofColumns + ` FROM safesend_proofs WHERE id = $1`

	proof, err := scanProof(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProofNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get proof: %w", err)
	}
	return proof, nil
}

// GetByIDForUpdate reads a proof, locking it in atomic mode.
func (r *ProofRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Proof, error) {
	query := `SELECT ` + proofColumns + ` FROM safesend_proofs WHERE id = $1 FOR UPDATE`

	proof, err := scanProof(conn(tx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProofNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get proof: %w", err)
	}
	return proof, nil
}

// Update records the review outcome.
func (r *ProofRepository) Update(ctx context.Context, tx usecase.Transaction, proof *domain.Proof) error {
	query := `
		UPDATE safesend_proofs
		SET status = $2, reviewed_by = $3, reviewed_at = $4, rejection_reason = $5
		WHERE id = $1
	`

	tag, err := conn(tx, r.db).Exec(ctx, query,
		proof.ID,
		string(proof.Status),
		proof.ReviewedBy,
		proof.ReviewedAt,
		proof.RejectionReason,
	)
	if err != nil {
		return fmt.Errorf("update proof: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProofNotFound
	}
	return nil
}

// ListByEscrow returns an escrow's proofs in submission order.
func (r *ProofRepository) ListByEscrow(ctx context.Context, escrowID string) ([]*domain.Proof, error) {
	query := `SELECT ` + proofColumns + ` FROM safesend_proofs WHERE escrow_id = $1 ORDER BY created_at, id`
	return r.query(ctx, query, escrowID)
}

// ListPending returns a page of proofs awaiting review, oldest first.
func (r *ProofRepository) ListPending(ctx context.Context, limit, offset int) ([]*domain.Proof, int, error) {
	status := string(domain.ProofStatusPending)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM safesend_proofs WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pending proofs: %w", err)
	}

	query := `
		SELECT ` + proofColumns + `
		FROM safesend_proofs
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`

	proofs, err := r.query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return proofs, total, nil
}

func (r *ProofRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Proof, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list proofs: %w", err)
	}
	defer rows.Close()

	proofs := make([]*domain.Proof, 0)
	for rows.Next() {
		p, err := scanProof(rows)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, p)
	}

	return proofs, rows.Err()
}

func scanProof(row pgx.Row) (*domain.Proof, error) {
	var p domain.Proof
	err := row.Scan(
		&p.ID,
		&p.EscrowID,
		&p.MerchantID,
		&p.ProofURL,
		&p.Description,
		&p.Status,
		&p.ReviewedBy,
		&p.ReviewedAt,
		&p.RejectionReason,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
