package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
)

// UserRepository defines data access for users, their balance and bounded histories.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDTx(ctx context.Context, tx Transaction, id string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
	// ApplyBalanceDelta adds delta to the balance only if the result stays non-negative.
	// It returns *domain.InsufficientFundsError when the floor would be crossed.
	ApplyBalanceDelta(ctx context.Context, tx Transaction, id string, delta decimal.Decimal, at time.Time) (domain.BalanceChange, error)
	AppendHistory(ctx context.Context, tx Transaction, userID string, entry domain.HistoryEntry) error
	ListHistory(ctx context.Context, userID string) ([]domain.HistoryEntry, error)
	AppendOverdraft(ctx context.Context, tx Transaction, userID string, event domain.OverdraftEvent) error
	ListOverdrafts(ctx context.Context, userID string) ([]domain.OverdraftEvent, error)
}

// TransactionRepository defines data access for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByRequestID(ctx context.Context, tx Transaction, userID, requestID string) (*domain.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, int, error)
	ListByUserSince(ctx context.Context, userID string, txnType domain.TransactionType, since time.Time) ([]*domain.Transaction, error)
	SumByReference(ctx context.Context, tx Transaction, referenceID string, txnType domain.TransactionType) (decimal.Decimal, error)
	SumSignedByUser(ctx context.Context, userID string) (decimal.Decimal, error)
}

// ScoreRepository defines data access for score snapshots.
type ScoreRepository interface {
	Create(ctx context.Context, score *domain.Score) error
	GetLatest(ctx context.Context, userID string) (*domain.Score, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Score, error)
}

// ScoreCache holds the latest snapshot per user.
type ScoreCache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, userID string) (*domain.Score, error)
	Set(ctx context.Context, score *domain.Score, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}

// LoanRepository defines data access for loans.
type LoanRepository interface {
	Create(ctx context.Context, tx Transaction, loan *domain.Loan) error
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Loan, error)
	GetActiveByUser(ctx context.Context, tx Transaction, userID string) (*domain.Loan, error)
	Update(ctx context.Context, tx Transaction, loan *domain.Loan) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Loan, error)
}

// MerchantRepository defines data access for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, tx Transaction, merchant *domain.Merchant) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Merchant, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Merchant, error)
	SetVerified(ctx context.Context, tx Transaction, id string, verified bool, at time.Time) error
	List(ctx context.Context, filter domain.MerchantFilter) ([]*domain.Merchant, error)
}

// EscrowRepository defines data access for SafeSend escrows.
type EscrowRepository interface {
	Create(ctx context.Context, tx Transaction, escrow *domain.Escrow) error
	GetByID(ctx context.Context, id string) (*domain.Escrow, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Escrow, error)
	Update(ctx context.Context, tx Transaction, escrow *domain.Escrow) error
	ListBySender(ctx context.Context, senderID string, limit, offset int) ([]*domain.Escrow, int, error)
	ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*domain.Escrow, int, error)
}

// ProofRepository defines data access for escrow proofs.
type ProofRepository interface {
	Create(ctx context.Context, tx Transaction, proof *domain.Proof) error
	GetByID(ctx context.Context, id string) (*domain.Proof, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Proof, error)
	Update(ctx context.Context, tx Transaction, proof *domain.Proof) error
	ListByEscrow(ctx context.Context, escrowID string) ([]*domain.Proof, error)
	ListPending(ctx context.Context, limit, offset int) ([]*domain.Proof, int, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id, reason string, dead bool, at time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a unit of work against the store.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	// Atomic reports whether writes made through this transaction commit as one unit.
	Atomic() bool
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
	// BeginSequential returns a Transaction whose writes commit independently.
	BeginSequential(ctx context.Context) (Transaction, error)
	// IsAtomicUnsupported reports whether err means the store cannot run multi-statement transactions.
	IsAtomicUnsupported(err error) bool
}

// Retrier retries an operation on transient store errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Locker takes a distributed lock on key for at most ttl.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// ScoreRefresher recomputes a user's score after a balance-affecting operation.
type ScoreRefresher interface {
	Refresh(ctx context.Context, userID string)
}

// Notifier delivers a text message to a person.
type Notifier interface {
	Send(ctx context.Context, recipient, message string) error
}
