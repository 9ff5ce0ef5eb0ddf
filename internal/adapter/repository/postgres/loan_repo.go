package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

// LoanRepository implements usecase.LoanRepository.
type LoanRepository struct {
	db DBTX
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(db DBTX) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = `id, user_id, principal, apr, term_days, status, approved_at, disbursed_at, repaid_at, defaulted_at, created_at, updated_at`

// Create inserts a loan.
func (r *LoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := conn(tx, r.db).Exec(ctx, query,
		loan.ID,
		loan.UserID,
		loan.Principal,
		loan.APR,
		loan.TermDays,
		string(loan.Status),
		loan.ApprovedAt,
		loan.DisbursedAt,
		loan.RepaidAt,
		loan.DefaultedAt,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

// GetByIDForUpdate reads a loan, locking it in atomic mode.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, conn(tx, r.db), query, id)
}

// GetActiveByUser returns the user's approved or disbursed loan.
func (r *LoanRepository) GetActiveByUser(ctx context.Context, tx usecase.Transaction, userID string) (*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE user_id = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, conn(tx, r.db), query, userID,
		string(domain.LoanStatusApproved), string(domain.LoanStatusDisbursed))
}

// Update writes the loan's status and lifecycle timestamps.
func (r *LoanRepository) Update(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET status = $2, approved_at = $3, disbursed_at = $4, repaid_at = $5, defaulted_at = $6, updated_at = $7
		WHERE id = $1
	`

	tag, err := conn(tx, r.db).Exec(ctx, query,
		loan.ID,
		string(loan.Status),
		loan.ApprovedAt,
		loan.DisbursedAt,
		loan.RepaidAt,
		loan.DefaultedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

// ListByUser returns every loan of the user, oldest first.
func (r *LoanRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	loans := make([]*domain.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}

	return loans, rows.Err()
}

func (r *LoanRepository) getOne(ctx context.Context, db DBTX, query string, args ...any) (*domain.Loan, error) {
	loan, err := scanLoan(db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return loan, nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var loan domain.Loan
	err := row.Scan(
		&loan.ID,
		&loan.UserID,
		&loan.Principal,
		&loan.APR,
		&loan.TermDays,
		&loan.Status,
		&loan.ApprovedAt,
		&loan.DisbursedAt,
		&loan.RepaidAt,
		&loan.DefaultedAt,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &loan, nil
}
