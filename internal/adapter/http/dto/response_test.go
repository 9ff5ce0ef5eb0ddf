package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

func TestAccountFromUseCase(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	view := &usecase.AccountView{
		User:    &domain.User{ID: "u-1", Phone: "+919876543210", StateCode: "KA"},
		Balance: decimal.NewFromInt(4500),
		History: []domain.HistoryEntry{{
			Seq:             1,
			OccurredAt:      now,
			Amount:          decimal.NewFromInt(500),
			Direction:       domain.DirectionDebit,
			TransactionType: domain.TransactionTypeRemit,
			BalanceAfter:    decimal.NewFromInt(4500),
			RiskLevel:       domain.RiskLow,
		}},
	}

	resp := AccountFromUseCase(view)
	if resp.UserID != "u-1" || !resp.Balance.Equal(decimal.NewFromInt(4500)) {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.History) != 1 || resp.History[0].Type != "debit" || resp.History[0].TransactionType != "remit" {
		t.Fatalf("unexpected history: %+v", resp.History)
	}
	if resp.Overdrafts == nil || len(resp.Overdrafts) != 0 {
		t.Fatalf("expected empty overdraft list, got %v", resp.Overdrafts)
	}
}

func TestLoanDecisionFromDomain(t *testing.T) {
	decision := &domain.LoanDecision{
		Approved:    true,
		Score:       685,
		Band:        domain.BandA,
		ReasonCodes: []domain.ReasonCode{domain.ReasonRemitHistory},
		Loan:        &domain.Loan{ID: "loan-1", Principal: decimal.NewFromInt(3000), APR: 18, TermDays: 30, Status: domain.LoanStatusPreapproved},
		Offer:       &domain.LoanOffer{Principal: decimal.NewFromInt(3000), APR: 18, TermDays: 30, TotalDue: decimal.NewFromInt(3045)},
	}

	resp := LoanDecisionFromDomain(decision)
	if !resp.Approved || resp.Band != "A" || resp.ReasonCodes[0] != "R1_REM_HISTORY" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !resp.Loan.TotalDue.Equal(decimal.NewFromInt(3045)) || !resp.Offer.TotalDue.Equal(decimal.NewFromInt(3045)) {
		t.Fatalf("unexpected total due: %+v %+v", resp.Loan, resp.Offer)
	}

	rejected := LoanDecisionFromDomain(&domain.LoanDecision{Band: domain.BandC})
	if rejected.Loan != nil || rejected.Offer != nil {
		t.Fatalf("expected rejection without loan or offer, got %+v", rejected)
	}
}

func TestPageFromDomain(t *testing.T) {
	page := domain.NewPage([]*domain.Transaction{
		{ID: "t-1", Type: domain.TransactionTypeRemit, Status: domain.TransactionStatusSuccess},
	}, 41, 20, 20)

	resp := PageFromDomain(page, TransactionFromDomain)
	if resp.Page != 2 || resp.Pages != 3 || resp.Total != 41 || len(resp.Items) != 1 {
		t.Fatalf("unexpected page: %+v", resp)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	items := decoded["items"].([]any)
	if items[0].(map[string]any)["type"] != "remit" {
		t.Fatalf("unexpected item json: %s", body)
	}
}

func TestEscrowDetailsFromDomain(t *testing.T) {
	resp := EscrowDetailsFromDomain(&domain.EscrowDetails{
		Escrow: &domain.Escrow{ID: "esc-1", Goal: domain.GoalMedical, Status: domain.EscrowStatusUnderReview},
		Proofs: []*domain.Proof{{ID: "p-1", Status: domain.ProofStatusPending}},
	})

	if resp.Escrow.Goal != "medical" || resp.Merchant != nil || len(resp.Proofs) != 1 {
		t.Fatalf("unexpected details: %+v", resp)
	}
}
