package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

const (
	pgErrUniqueViolation = "23505"

	requestIndexName = "idx_transactions_user_request"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, type, amount, counterparty, status, reference_id, request_id, created_at`

// Create inserts txn. A second insert with the same user and request id
// fails with *domain.DuplicateRequestError.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := conn(tx, r.db).Exec(ctx, query,
		txn.ID,
		txn.UserID,
		string(txn.Type),
		txn.Amount,
		txn.Counterparty,
		string(txn.Status),
		txn.ReferenceID,
		txn.RequestID,
		txn.CreatedAt,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation && pgErr.ConstraintName == requestIndexName {
		dup := &domain.DuplicateRequestError{RequestID: txn.RequestID}
		// An aborted transaction cannot be queried; sequential scopes can look the winner up.
		if t, ok := tx.(*Tx); !ok || !t.Atomic() {
			if existing, lerr := r.GetByRequestID(ctx, tx, txn.UserID, txn.RequestID); lerr == nil {
				dup.TransactionID = existing.ID
			}
		}
		return dup
	}

	return fmt.Errorf("insert transaction: %w", err)
}

// GetByRequestID finds the transaction created for a client request id.
func (r *TransactionRepository) GetByRequestID(ctx context.Context, tx usecase.Transaction, userID, requestID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND request_id = $2`

	txn, err := scanTransaction(conn(tx, r.db).QueryRow(ctx, query, userID, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return txn, err
}

// ListByUser returns a page of the user's transactions, newest first, and the total count.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	txns, err := r.query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// ListByUserSince returns successful transactions of one type created at or after since.
func (r *TransactionRepository) ListByUserSince(ctx context.Context, userID string, txnType domain.TransactionType, since time.Time) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND type = $2 AND status = $3 AND created_at >= $4
		ORDER BY created_at
	`

	return r.query(ctx, query, userID, string(txnType), string(domain.TransactionStatusSuccess), since)
}

// SumByReference totals successful transactions of one type linked to a loan or escrow.
func (r *TransactionRepository) SumByReference(ctx context.Context, tx usecase.Transaction, referenceID string, txnType domain.TransactionType) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE reference_id = $1 AND type = $2 AND status = $3
	`

	var sum decimal.Decimal
	err := conn(tx, r.db).QueryRow(ctx, query, referenceID, string(txnType), string(domain.TransactionStatusSuccess)).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum by reference: %w", err)
	}
	return sum, nil
}

// SumSignedByUser is the net balance effect of the user's successful transactions.
func (r *TransactionRepository) SumSignedByUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE
			WHEN type IN ($2, $3, $4) THEN -amount
			WHEN type IN ($5, $6) THEN amount
			ELSE 0
		END), 0)
		FROM transactions
		WHERE user_id = $1 AND status = $7
	`

	var sum decimal.Decimal
	err := r.db.QueryRow(ctx, query,
		userID,
		string(domain.TransactionTypeRemit),
		string(domain.TransactionTypeRepay),
		string(domain.TransactionTypeSafeSendEscrow),
		string(domain.TransactionTypeLoanDisbursal),
		string(domain.TransactionTypeSafeSendRefund),
		string(domain.TransactionStatusSuccess),
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum signed transactions: %w", err)
	}
	return sum, nil
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]*domain.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Type,
		&txn.Amount,
		&txn.Counterparty,
		&txn.Status,
		&txn.ReferenceID,
		&txn.RequestID,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
