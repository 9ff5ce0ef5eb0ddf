package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

func TestReconciliationUseCase_ReconcileUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.ledger.Remit(ctx, sender, usecase.RemitInput{Amount: decimal.NewFromInt(700), Counterparty: "+919811122233"}); err != nil {
		t.Fatalf("remit: %v", err)
	}

	uc := usecase.NewReconciliationUseCase(f.users, f.txns)

	result, err := uc.ReconcileUser(ctx, sender, senderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsReconciled {
		t.Errorf("expected reconciled, difference %s", result.Difference)
	}
	if !result.CalculatedBalance.Equal(decimal.NewFromInt(4300)) {
		t.Errorf("expected calculated 4300, got %s", result.CalculatedBalance)
	}

	if _, err := uc.ReconcileUser(ctx, domain.Actor{UserID: "someone"}, senderID); !errors.Is(err, domain.ErrAdminRequired) {
		t.Errorf("expected ErrAdminRequired for another user, got %v", err)
	}
	if _, err := uc.ReconcileUser(ctx, admin, senderID); err != nil {
		t.Errorf("admin should reconcile any user: %v", err)
	}
}

func TestReconciliationUseCase_GenerateReport(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// A transaction recorded without a matching balance change.
	f.txns.Add(&domain.Transaction{
		ID:     "orphan",
		UserID: senderID,
		Type:   domain.TransactionTypeRemit,
		Amount: decimal.NewFromInt(50),
		Status: domain.TransactionStatusSuccess,
	})
	// Failed rows never count.
	f.txns.Add(&domain.Transaction{
		ID:     "failed",
		UserID: adminID,
		Type:   domain.TransactionTypeRemit,
		Amount: decimal.NewFromInt(50),
		Status: domain.TransactionStatusFailed,
	})

	uc := usecase.NewReconciliationUseCase(f.users, f.txns)

	if _, err := uc.GenerateReport(ctx, sender, 100, 0); !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}

	report, err := uc.GenerateReport(ctx, admin, 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalUsers != 2 || report.ReconciledUsers != 1 {
		t.Errorf("expected 1 of 2 reconciled, got %d of %d", report.ReconciledUsers, report.TotalUsers)
	}
	if len(report.Discrepancies) != 1 || report.Discrepancies[0].UserID != senderID {
		t.Fatalf("expected discrepancy for sender, got %+v", report.Discrepancies)
	}
	if !report.Discrepancies[0].Difference.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected difference 50, got %s", report.Discrepancies[0].Difference)
	}
}
