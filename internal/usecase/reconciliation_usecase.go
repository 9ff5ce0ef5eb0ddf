package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
)

// ReconciliationUseCase handles balance reconciliation operations
type ReconciliationUseCase struct {
	users UserRepository
	txns  TransactionRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(users UserRepository, txns TransactionRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		users: users,
		txns:  txns,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	UserID            string
	OpeningBalance    decimal.Decimal
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileUser compares the stored balance with the opening balance plus
// every successful transaction's signed amount.
func (uc *ReconciliationUseCase) ReconcileUser(ctx context.Context, actor domain.Actor, userID string) (*ReconciliationResult, error) {
	if actor.UserID != userID {
		if err := actor.RequireAdmin(); err != nil {
			return nil, err
		}
	}
	return uc.reconcile(ctx, userID)
}

func (uc *ReconciliationUseCase) reconcile(ctx context.Context, userID string) (*ReconciliationResult, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	net, err := uc.txns.SumSignedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	recorded := user.CurrentBalance()
	calculated := user.OpeningBalance.Add(net)
	diff := recorded.Sub(calculated)

	return &ReconciliationResult{
		UserID:            userID,
		OpeningBalance:    user.OpeningBalance,
		RecordedBalance:   recorded,
		CalculatedBalance: calculated,
		Difference:        diff,
		IsReconciled:      diff.IsZero(),
		LastChecked:       time.Now().UTC(),
	}, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalUsers      int
	ReconciledUsers int
	Discrepancies   []*ReconciliationResult
	CheckedAt       time.Time
}

// GenerateReport reconciles up to limit users starting at offset. Admin only.
func (uc *ReconciliationUseCase) GenerateReport(ctx context.Context, actor domain.Actor, limit, offset int) (*ReconciliationReport, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	users, err := uc.users.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		TotalUsers:    len(users),
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     time.Now().UTC(),
	}

	for _, u := range users {
		result, err := uc.reconcile(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile user %s: %w", u.ID, err)
		}
		if result.IsReconciled {
			report.ReconciledUsers++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
