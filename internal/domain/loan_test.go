package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCalculateEMI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		principal int64
		apr       int
		days      int
		want      int64
	}{
		{5000, 18, 60, 5148},
		{3000, 18, 30, 3045},
		{1000, 18, 30, 1015},
		{100, 0, 30, 100},
	}

	for _, tt := range tests {
		got := CalculateEMI(decimal.NewFromInt(tt.principal), tt.apr, tt.days)
		if !got.Equal(decimal.NewFromInt(tt.want)) {
			t.Fatalf("CalculateEMI(%d, %d, %d) = %s, want %d", tt.principal, tt.apr, tt.days, got, tt.want)
		}
	}
}

func TestEvaluateLoanPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       LoanPolicyInput
		approved bool
		term     int
		totalDue int64
	}{
		{
			name:     "band A at limit gets 60 days",
			in:       LoanPolicyInput{Amount: decimal.NewFromInt(5000), Score: 700, Band: BandA},
			approved: true, term: 60, totalDue: 5148,
		},
		{
			name:     "band A below limit gets 30 days",
			in:       LoanPolicyInput{Amount: decimal.NewFromInt(2000), Score: 700, Band: BandA},
			approved: true, term: 30, totalDue: 2030,
		},
		{
			name: "band A above limit",
			in:   LoanPolicyInput{Amount: decimal.NewFromInt(5001), Score: 700, Band: BandA},
		},
		{
			name:     "band B at limit",
			in:       LoanPolicyInput{Amount: decimal.NewFromInt(3000), Score: 650, Band: BandB},
			approved: true, term: 30, totalDue: 3045,
		},
		{
			name: "band B above limit",
			in:   LoanPolicyInput{Amount: decimal.NewFromInt(3500), Score: 650, Band: BandB},
		},
		{
			name:     "band C with history",
			in:       LoanPolicyInput{Amount: decimal.NewFromInt(1000), Score: 610, Band: BandC, RemitMonthsIn6Mo: 3},
			approved: true, term: 30, totalDue: 1015,
		},
		{
			name: "band C low score",
			in:   LoanPolicyInput{Amount: decimal.NewFromInt(1000), Score: 599, Band: BandC, RemitMonthsIn6Mo: 6},
		},
		{
			name: "band C thin history",
			in:   LoanPolicyInput{Amount: decimal.NewFromInt(500), Score: 620, Band: BandC, RemitMonthsIn6Mo: 2},
		},
		{
			name: "non-positive amount",
			in:   LoanPolicyInput{Amount: decimal.Zero, Score: 800, Band: BandA},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer, ok := EvaluateLoanPolicy(tt.in)
			if ok != tt.approved {
				t.Fatalf("approved = %v, want %v", ok, tt.approved)
			}
			if !ok {
				return
			}
			if offer.TermDays != tt.term {
				t.Fatalf("term = %d, want %d", offer.TermDays, tt.term)
			}
			if offer.APR != LoanAPR {
				t.Fatalf("apr = %d, want %d", offer.APR, LoanAPR)
			}
			if !offer.TotalDue.Equal(decimal.NewFromInt(tt.totalDue)) {
				t.Fatalf("total due = %s, want %d", offer.TotalDue, tt.totalDue)
			}
		})
	}
}

func TestLoanTransition(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("full lifecycle stamps timestamps", func(t *testing.T) {
		l := &Loan{Status: LoanStatusPreapproved, Principal: decimal.NewFromInt(1000), APR: 18, TermDays: 30}
		for _, to := range []LoanStatus{LoanStatusApproved, LoanStatusDisbursed, LoanStatusRepaid} {
			if err := l.Transition(to, at); err != nil {
				t.Fatalf("transition to %s: %v", to, err)
			}
		}
		if l.ApprovedAt == nil || l.DisbursedAt == nil || l.RepaidAt == nil {
			t.Fatalf("expected lifecycle timestamps to be set: %+v", l)
		}
		if !l.RepaidOnTime() {
			t.Fatal("expected loan repaid on disbursal day to be on time")
		}
	})

	illegal := []struct{ from, to LoanStatus }{
		{LoanStatusPreapproved, LoanStatusDisbursed},
		{LoanStatusApproved, LoanStatusRepaid},
		{LoanStatusRejected, LoanStatusApproved},
		{LoanStatusRepaid, LoanStatusDefaulted},
		{LoanStatusDefaulted, LoanStatusRepaid},
	}
	for _, tt := range illegal {
		l := &Loan{Status: tt.from}
		if err := l.Transition(tt.to, at); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", tt.from, tt.to, err)
		}
		if l.Status != tt.from {
			t.Fatalf("status changed on rejected transition: %s", l.Status)
		}
	}
}

func TestLoanIsOverdue(t *testing.T) {
	t.Parallel()

	disbursed := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	l := &Loan{Status: LoanStatusDisbursed, TermDays: 30, DisbursedAt: &disbursed}

	if l.IsOverdue(disbursed.AddDate(0, 0, 30)) {
		t.Fatal("loan should not be overdue on its due date")
	}
	if !l.IsOverdue(disbursed.AddDate(0, 0, 31)) {
		t.Fatal("loan should be overdue after its due date")
	}
	if !LoanStatusApproved.IsActive() || !LoanStatusDisbursed.IsActive() || LoanStatusRepaid.IsActive() {
		t.Fatal("unexpected IsActive result")
	}
}
