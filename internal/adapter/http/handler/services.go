package handler

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

// LedgerService is the ledger surface used by LedgerHandler.
type LedgerService interface {
	Remit(ctx context.Context, actor domain.Actor, in usecase.RemitInput) (*usecase.RemitResult, error)
	GetAccount(ctx context.Context, actor domain.Actor) (*usecase.AccountView, error)
	ListTransactions(ctx context.Context, actor domain.Actor, page, limit int) (domain.Page[*domain.Transaction], error)
}

// ScoreService is the scoring surface used by ScoreHandler.
type ScoreService interface {
	GetLatestOrRecompute(ctx context.Context, userID string) (*domain.Score, error)
	History(ctx context.Context, userID string) ([]*domain.Score, error)
}

// LoanService is the loan surface used by LoanHandler.
type LoanService interface {
	Decide(ctx context.Context, actor domain.Actor, amount decimal.Decimal) (*domain.LoanDecision, error)
	Accept(ctx context.Context, actor domain.Actor, loanID string) (*domain.Loan, error)
	Repay(ctx context.Context, actor domain.Actor, in usecase.RepayInput) (*usecase.RepayResult, error)
	GetActiveLoan(ctx context.Context, actor domain.Actor) (*usecase.ActiveLoan, error)
	MarkDefaulted(ctx context.Context, actor domain.Actor, loanID string) (*domain.Loan, error)
}

// MerchantService is the merchant surface used by SafeSendHandler.
type MerchantService interface {
	Create(ctx context.Context, actor domain.Actor, in usecase.CreateMerchantInput) (*domain.Merchant, error)
	Verify(ctx context.Context, actor domain.Actor, merchantID string) (*domain.Merchant, error)
	List(ctx context.Context, filter domain.MerchantFilter) ([]*domain.Merchant, error)
}

// EscrowService is the escrow surface used by SafeSendHandler.
type EscrowService interface {
	Create(ctx context.Context, actor domain.Actor, in usecase.CreateEscrowInput) (*domain.Escrow, error)
	SubmitProof(ctx context.Context, actor domain.Actor, in usecase.SubmitProofInput) (*domain.Proof, error)
	ReviewProof(ctx context.Context, actor domain.Actor, in usecase.ReviewProofInput) (*usecase.ReviewResult, error)
	Refund(ctx context.Context, actor domain.Actor, escrowID string) (*domain.Escrow, error)
	GetEscrow(ctx context.Context, actor domain.Actor, escrowID string) (*domain.EscrowDetails, error)
	ListBySender(ctx context.Context, actor domain.Actor, page, limit int) (domain.Page[*domain.Escrow], error)
	ListByMerchant(ctx context.Context, actor domain.Actor, merchantID string, page, limit int) (domain.Page[*domain.Escrow], error)
	ListPendingProofs(ctx context.Context, actor domain.Actor, page, limit int) (domain.Page[*domain.Proof], error)
}

// ReconciliationService is the admin reconciliation surface.
type ReconciliationService interface {
	ReconcileUser(ctx context.Context, actor domain.Actor, userID string) (*usecase.ReconciliationResult, error)
	GenerateReport(ctx context.Context, actor domain.Actor, limit, offset int) (*usecase.ReconciliationReport, error)
}

// AuditService lists the privileged-action trail.
type AuditService interface {
	List(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}
