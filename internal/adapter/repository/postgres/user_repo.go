package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, phone, state_code, is_admin, balance, opening_balance, version, history_seq, created_at, updated_at`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Phone,
		user.StateCode,
		user.IsAdmin,
		user.Balance,
		user.OpeningBalance,
		user.Version,
		user.HistorySeq,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByIDTx reads the user inside a scope, locking the row in atomic mode.
// NO KEY UPDATE still admits foreign-key checks from the overdraft scope
// that runs while this lock is held.
func (r *UserRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR NO KEY UPDATE`
	return scanUser(conn(tx, r.db).QueryRow(ctx, query, id))
}

// List retrieves users with pagination, oldest first.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// ApplyBalanceDelta adds delta in one conditional update. A missing or legacy
// NULL balance counts as domain.DefaultBalance.
func (r *UserRepository) ApplyBalanceDelta(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, at time.Time) (domain.BalanceChange, error) {
	db := conn(tx, r.db)

	query := `
		UPDATE users
		SET balance = COALESCE(balance, $4) + $2,
		    version = version + 1,
		    history_seq = history_seq + 1,
		    updated_at = $3
		WHERE id = $1 AND COALESCE(balance, $4) + $2 >= 0
		RETURNING balance - $2, balance, history_seq
	`

	var change domain.BalanceChange
	err := db.QueryRow(ctx, query, id, delta, at, domain.DefaultBalance).
		Scan(&change.Previous, &change.Current, &change.Seq)
	if err == nil {
		return change, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.BalanceChange{}, fmt.Errorf("apply balance delta: %w", err)
	}

	// Nothing matched: either the user is gone or the floor would be crossed.
	user, err := scanUser(db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return domain.BalanceChange{}, err
	}
	return domain.BalanceChange{}, &domain.InsufficientFundsError{
		UserID:    id,
		Attempted: delta.Abs(),
		Available: user.CurrentBalance(),
	}
}

// AppendHistory writes entry into its ring slot, overwriting the oldest entry once full.
func (r *UserRepository) AppendHistory(ctx context.Context, tx usecase.Transaction, userID string, entry domain.HistoryEntry) error {
	query := `
		INSERT INTO balance_history (
			user_id, slot, seq, occurred_at, amount, direction, transaction_type,
			counterparty, description, balance_after, transaction_id, risk_level
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, slot) DO UPDATE SET
			seq = EXCLUDED.seq,
			occurred_at = EXCLUDED.occurred_at,
			amount = EXCLUDED.amount,
			direction = EXCLUDED.direction,
			transaction_type = EXCLUDED.transaction_type,
			counterparty = EXCLUDED.counterparty,
			description = EXCLUDED.description,
			balance_after = EXCLUDED.balance_after,
			transaction_id = EXCLUDED.transaction_id,
			risk_level = EXCLUDED.risk_level
	`

	_, err := conn(tx, r.db).Exec(ctx, query,
		userID,
		domain.RingSlot(entry.Seq, domain.HistoryCap),
		entry.Seq,
		entry.OccurredAt,
		entry.Amount,
		string(entry.Direction),
		string(entry.TransactionType),
		entry.Counterparty,
		entry.Description,
		entry.BalanceAfter,
		entry.TransactionID,
		string(entry.RiskLevel),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListHistory returns the retained history, oldest first.
func (r *UserRepository) ListHistory(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	query := `
		SELECT seq, occurred_at, amount, direction, transaction_type, counterparty,
		       description, balance_after, transaction_id, risk_level
		FROM balance_history
		WHERE user_id = $1
		ORDER BY seq
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var e domain.HistoryEntry
		var direction, txnType, riskLevel string
		err := rows.Scan(
			&e.Seq,
			&e.OccurredAt,
			&e.Amount,
			&direction,
			&txnType,
			&e.Counterparty,
			&e.Description,
			&e.BalanceAfter,
			&e.TransactionID,
			&riskLevel,
		)
		if err != nil {
			return nil, err
		}
		e.Direction = domain.Direction(direction)
		e.TransactionType = domain.TransactionType(txnType)
		e.RiskLevel = domain.RiskLevel(riskLevel)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// AppendOverdraft advances the user's overdraft head and writes the event
// into its ring slot. The head lives outside the users row so recording an
// overdraft never waits on the scope that was refused.
func (r *UserRepository) AppendOverdraft(ctx context.Context, tx usecase.Transaction, userID string, event domain.OverdraftEvent) error {
	db := conn(tx, r.db)

	var seq int64
	err := db.QueryRow(ctx, `
		INSERT INTO overdraft_heads (user_id, seq) VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET seq = overdraft_heads.seq + 1
		RETURNING seq
	`, userID).Scan(&seq)
	if err != nil {
		return fmt.Errorf("advance overdraft head: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO overdraft_events (user_id, slot, seq, occurred_at, attempted_amount, available_balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, slot) DO UPDATE SET
			seq = EXCLUDED.seq,
			occurred_at = EXCLUDED.occurred_at,
			attempted_amount = EXCLUDED.attempted_amount,
			available_balance = EXCLUDED.available_balance
	`,
		userID,
		domain.RingSlot(seq, domain.OverdraftCap),
		seq,
		event.OccurredAt,
		event.AttemptedAmount,
		event.AvailableBalance,
	)
	if err != nil {
		return fmt.Errorf("append overdraft: %w", err)
	}
	return nil
}

// ListOverdrafts returns the retained overdraft events, oldest first.
func (r *UserRepository) ListOverdrafts(ctx context.Context, userID string) ([]domain.OverdraftEvent, error) {
	query := `
		SELECT seq, occurred_at, attempted_amount, available_balance
		FROM overdraft_events
		WHERE user_id = $1
		ORDER BY seq
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list overdrafts: %w", err)
	}
	defer rows.Close()

	events := make([]domain.OverdraftEvent, 0)
	for rows.Next() {
		var e domain.OverdraftEvent
		if err := rows.Scan(&e.Seq, &e.OccurredAt, &e.AttemptedAmount, &e.AvailableBalance); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Phone,
		&user.StateCode,
		&user.IsAdmin,
		&user.Balance,
		&user.OpeningBalance,
		&user.Version,
		&user.HistorySeq,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
