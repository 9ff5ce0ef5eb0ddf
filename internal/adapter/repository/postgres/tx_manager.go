package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/sarathi/internal/usecase"
)

// pgErrFeatureNotSupported is raised by poolers and proxies that reject BEGIN.
const pgErrFeatureNotSupported = "0A000"

// DBTX is the query surface shared by the pool and an open transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxPool interface {
	DBTX
	Begin(context.Context) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	pool pgxPool
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManagerWithPool(pool)
}

func newTxManagerWithPool(pool pgxPool) *TxManager {
	return &TxManager{pool: pool}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	return &Tx{db: tx, tx: tx}, nil
}

// BeginSequential returns a Tx whose statements run directly on the pool,
// each committing on its own.
func (m *TxManager) BeginSequential(_ context.Context) (usecase.Transaction, error) {
	return &Tx{db: m.pool}, nil
}

// IsAtomicUnsupported reports whether err says the connection cannot hold a
// multi-statement transaction, as with PgBouncer in statement pooling mode.
func (m *TxManager) IsAtomicUnsupported(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrFeatureNotSupported {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "transaction blocks not allowed") ||
		strings.Contains(msg, "statement pooling mode")
}

// Tx wraps a pgx transaction, or the bare pool for sequential scopes.
type Tx struct {
	db DBTX
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if t.tx == nil {
		return nil
	}
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction. It is a no-op once committed.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// Atomic reports whether writes through t commit as one unit.
func (t *Tx) Atomic() bool {
	return t.tx != nil
}

// PgxTx returns the underlying pgx.Tx, nil in sequential mode.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}

// conn picks the executor for a repository call: the scope's connection when
// one is open, otherwise the repository's pool.
func conn(tx usecase.Transaction, db DBTX) DBTX {
	if t, ok := tx.(*Tx); ok && t != nil && t.db != nil {
		return t.db
	}
	return db
}
