package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

// EscrowRepository implements usecase.EscrowRepository.
type EscrowRepository struct {
	db DBTX
}

// NewEscrowRepository creates a new EscrowRepository.
func NewEscrowRepository(db DBTX) *EscrowRepository {
	return &EscrowRepository{db: db}
}

const escrowColumns = `id, sender_id, merchant_id, amount, goal, status, lock_reason, transaction_id, released_at, refunded_at, created_at, updated_at`

// Create inserts an escrow.
func (r *EscrowRepository) Create(ctx context.Context, tx usecase.Transaction, escrow *domain.Escrow) error {
	query := `
		INSERT INTO safesend_escrows (` + escrowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := conn(tx, r.db).Exec(ctx, query,
		escrow.ID,
		escrow.SenderID,
		escrow.MerchantID,
		escrow.Amount,
		string(escrow.Goal),
		string(escrow.Status),
		escrow.LockReason,
		escrow.TransactionID,
		escrow.ReleasedAt,
		escrow.RefundedAt,
		escrow.CreatedAt,
		escrow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert escrow: %w", err)
	}
	return nil
}

// GetByID retrieves an escrow by ID.
func (r *EscrowRepository) GetByID(ctx context.Context, id string) (*domain.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM safesend_escrows WHERE id = $1`
	return getEscrow(r.db.QueryRow(ctx, query, id))
}

// GetByIDForUpdate reads an escrow, locking it in atomic mode.
func (r *EscrowRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM safesend_escrows WHERE id = $1 FOR UPDATE`
	return getEscrow(conn(tx, r.db).QueryRow(ctx, query, id))
}

// Update writes the escrow's status and timestamps. The row must still be
// in a state that may move into the new status; otherwise a concurrent
// transition won and ErrInvalidTransition is returned.
func (r *EscrowRepository) Update(ctx context.Context, tx usecase.Transaction, escrow *domain.Escrow) error {
	query := `
		UPDATE safesend_escrows
		SET status = $2, released_at = $3, refunded_at = $4, updated_at = $5
		WHERE id = $1 AND status = ANY($6)
	`

	tag, err := conn(tx, r.db).Exec(ctx, query,
		escrow.ID,
		string(escrow.Status),
		escrow.ReleasedAt,
		escrow.RefundedAt,
		escrow.UpdatedAt,
		escrow.Status.PriorStatuses(),
	)
	if err != nil {
		return fmt.Errorf("update escrow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// ListBySender returns a page of the sender's escrows, newest first.
func (r *EscrowRepository) ListBySender(ctx context.Context, senderID string, limit, offset int) ([]*domain.Escrow, int, error) {
	return r.listBy(ctx, "sender_id", senderID, limit, offset)
}

// ListByMerchant returns a page of the merchant's escrows, newest first.
func (r *EscrowRepository) ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*domain.Escrow, int, error) {
	return r.listBy(ctx, "merchant_id", merchantID, limit, offset)
}

// column is one of the fixed names above, never caller input.
func (r *EscrowRepository) listBy(ctx context.Context, column, value string, limit, offset int) ([]*domain.Escrow, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM safesend_escrows WHERE ` + column + ` = $1`
	if err := r.db.QueryRow(ctx, countQuery, value).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count escrows: %w", err)
	}

	query := `
		SELECT ` + escrowColumns + `
		FROM safesend_escrows
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, value, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list escrows: %w", err)
	}
	defer rows.Close()

	escrows := make([]*domain.Escrow, 0)
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, 0, err
		}
		escrows = append(escrows, e)
	}

	return escrows, total, rows.Err()
}

func getEscrow(row pgx.Row) (*domain.Escrow, error) {
	e, err := scanEscrow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get escrow: %w", err)
	}
	return e, nil
}

func scanEscrow(row pgx.Row) (*domain.Escrow, error) {
	var e domain.Escrow
	err := row.Scan(
		&e.ID,
		&e.SenderID,
		&e.MerchantID,
		&e.Amount,
		&e.Goal,
		&e.Status,
		&e.LockReason,
		&e.TransactionID,
		&e.ReleasedAt,
		&e.RefundedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
