package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/infrastructure/metrics"
)

// ScoreProvider returns a user's current score snapshot.
type ScoreProvider interface {
	GetLatestOrRecompute(ctx context.Context, userID string) (*domain.Score, error)
}

// LoanUseCase handles loan decisions and the loan lifecycle.
type LoanUseCase struct {
	coordinator *Coordinator
	users       UserRepository
	loans       LoanRepository
	txns        TransactionRepository
	ledger      BalanceAdjuster
	scores      ScoreProvider
	events      eventWriter
	audit       auditWriter
	idGen       IDGenerator
	refresher   ScoreRefresher
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// LoanDeps wires a LoanUseCase.
type LoanDeps struct {
	Coordinator  *Coordinator
	Users        UserRepository
	Loans        LoanRepository
	Transactions TransactionRepository
	Ledger       BalanceAdjuster
	Scores       ScoreProvider
	Outbox       OutboxRepository
	Audit        AuditRepository
	IDGen        IDGenerator
	Refresher    ScoreRefresher
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
}

// NewLoanUseCase creates a new LoanUseCase.
func NewLoanUseCase(d LoanDeps) *LoanUseCase {
	return &LoanUseCase{
		coordinator: d.Coordinator,
		users:       d.Users,
		loans:       d.Loans,
		txns:        d.Transactions,
		ledger:      d.Ledger,
		scores:      d.Scores,
		events:      eventWriter{outbox: d.Outbox, idGen: d.IDGen},
		audit:       auditWriter{repo: d.Audit, idGen: d.IDGen, metrics: d.Metrics},
		idGen:       d.IDGen,
		refresher:   d.Refresher,
		logger:      d.Logger,
		metrics:     d.Metrics,
	}
}

// CalculateEMI returns the total due for a simple-interest loan.
func (uc *LoanUseCase) CalculateEMI(principal decimal.Decimal, apr, termDays int) decimal.Decimal {
	return domain.CalculateEMI(principal, apr, termDays)
}

// Decide evaluates a loan request against the actor's score band and persists
// the outcome. A policy mismatch is a rejected decision, not an error.
func (uc *LoanUseCase) Decide(ctx context.Context, actor domain.Actor, amount decimal.Decimal) (*domain.LoanDecision, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	if err := uc.ensureNoActiveLoan(ctx, nil, actor.UserID); err != nil {
		return nil, err
	}

	score, err := uc.scores.GetLatestOrRecompute(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	remits, err := uc.txns.ListByUserSince(ctx, actor.UserID, domain.TransactionTypeRemit, now.AddDate(0, -domain.SignalWindowMonths, 0))
	if err != nil {
		return nil, err
	}

	offer, approved := domain.EvaluateLoanPolicy(domain.LoanPolicyInput{
		Amount:           amount,
		Score:            score.Score,
		Band:             score.Band,
		RemitMonthsIn6Mo: domain.DistinctRemitMonths(remits, now.AddDate(0, -domain.SignalWindowMonths, 0)),
	})

	loan := &domain.Loan{
		ID:        uc.idGen.Generate(),
		UserID:    actor.UserID,
		Principal: amount,
		Status:    domain.LoanStatusRejected,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if approved {
		loan.APR = offer.APR
		loan.TermDays = offer.TermDays
		loan.Status = domain.LoanStatusPreapproved
	}

	err = uc.coordinator.Run(ctx, func(ctx context.Context, tx Transaction) error {
		// Re-check inside the scope so two racing requests cannot both pass.
		if err := uc.ensureNoActiveLoan(ctx, tx, actor.UserID); err != nil {
			return err
		}
		if err := uc.loans.Create(ctx, tx, loan); err != nil {
			return err
		}

		payload := map[string]any{
			"loan_id":      loan.ID,
			"user_id":      loan.UserID,
			"amount":       amount.String(),
			"approved":     approved,
			"score":        score.Score,
			"band":         string(score.Band),
			"reason_codes": reasonStrings(score.ReasonCodes),
		}
		if err := uc.events.emit(ctx, tx, domain.AggregateTypeLoan, loan.ID, domain.EventTypeLoanDecision, payload); err != nil {
			return err
		}

		msg := fmt.Sprintf("Sarathi: your loan request for Rs %s was declined (score %d, band %s).",
			amount.StringFixed(0), score.Score, score.Band)
		if approved {
			msg = fmt.Sprintf("Sarathi: you are pre-approved for Rs %s at %d%% APR. Repay Rs %s within %d days.",
				offer.Principal.StringFixed(0), offer.APR, offer.TotalDue.StringFixed(0), offer.TermDays)
		}
		phone := recipientPhone(ctx, uc.users, tx, actor.UserID, actor.Phone)
		return uc.events.notify(ctx, tx, domain.AggregateTypeLoan, loan.ID, phone, msg)
	}, WithLockKeys(userLockKey(actor.UserID)), WithScopeName("loan_decide"))
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		outcome := "rejected"
		if approved {
			outcome = "approved"
		}
		uc.metrics.LoanDecisions.WithLabelValues(outcome, string(score.Band)).Inc()
	}

	decision := &domain.LoanDecision{
		Loan:        loan,
		Approved:    approved,
		Score:       score.Score,
		Band:        score.Band,
		ReasonCodes: score.ReasonCodes,
	}
	if approved {
		decision.Offer = &offer
	}
	return decision, nil
}

func (uc *LoanUseCase) ensureNoActiveLoan(ctx context.Context, tx Transaction, userID string) error {
	_, err := uc.loans.GetActiveByUser(ctx, tx, userID)
	switch {
	case err == nil:
		return domain.ErrActiveLoanExists
	case errors.Is(err, domain.ErrLoanNotFound):
		return nil
	default:
		return err
	}
}

// Accept approves a pre-approved loan and disburses its principal to the borrower.
func (uc *LoanUseCase) Accept(ctx context.Context, actor domain.Actor, loanID string) (*domain.Loan, error) {
	loan, err := RunInScope(ctx, uc.coordinator, func(ctx context.Context, tx Transaction) (*domain.Loan, error) {
		loan, err := uc.ownedLoan(ctx, tx, actor, loanID)
		if err != nil {
			return nil, err
		}
		if loan.Status == domain.LoanStatusPreapproved {
			if err := uc.ensureNoActiveLoan(ctx, tx, loan.UserID); err != nil {
				return nil, err
			}
		}

		now := time.Now().UTC()
		if err := loan.Transition(domain.LoanStatusApproved, now); err != nil {
			return nil, err
		}
		if err := uc.loans.Update(ctx, tx, loan); err != nil {
			return nil, err
		}

		txn := &domain.Transaction{
			ID:           uc.idGen.Generate(),
			UserID:       loan.UserID,
			Type:         domain.TransactionTypeLoanDisbursal,
			Amount:       loan.Principal,
			Counterparty: "sarathi",
			Status:       domain.TransactionStatusSuccess,
			ReferenceID:  loan.ID,
			CreatedAt:    now,
		}
		change, err := uc.ledger.AdjustBalance(ctx, tx, AdjustBalanceInput{
			UserID: loan.UserID,
			Delta:  loan.Principal,
			At:     now,
			Meta: domain.BalanceMeta{
				TransactionType: txn.Type,
				TransactionID:   txn.ID,
				Counterparty:    txn.Counterparty,
				Description:     "loan disbursal",
			},
		})
		if err != nil {
			return nil, err
		}
		if err := uc.txns.Create(ctx, tx, txn); err != nil {
			return nil, err
		}

		if err := loan.Transition(domain.LoanStatusDisbursed, now); err != nil {
			return nil, err
		}
		if err := uc.loans.Update(ctx, tx, loan); err != nil {
			return nil, err
		}

		if err := uc.events.emit(ctx, tx, domain.AggregateTypeLoan, loan.ID, domain.EventTypeLoanDisbursed, map[string]any{
			"loan_id":        loan.ID,
			"user_id":        loan.UserID,
			"principal":      loan.Principal.String(),
			"total_due":      loan.TotalDue().String(),
			"transaction_id": txn.ID,
		}); err != nil {
			return nil, err
		}

		msg := fmt.Sprintf("Sarathi: Rs %s credited to your balance. Repay Rs %s by %s. Balance Rs %s.",
			loan.Principal.StringFixed(0), loan.TotalDue().StringFixed(0),
			loan.DueDate().Format("02 Jan 2006"), change.Current.StringFixed(2))
		phone := recipientPhone(ctx, uc.users, tx, loan.UserID, actor.Phone)
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeLoan, loan.ID, phone, msg); err != nil {
			return nil, err
		}

		return loan, nil
	}, WithLockKeys(userLockKey(actor.UserID), loanLockKey(loanID)), WithScopeName("loan_accept"))
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LoanDisbursals.Inc()
	}
	uc.refresh(ctx, loan.UserID)

	return loan, nil
}

// RepayInput represents input for a loan repayment.
type RepayInput struct {
	LoanID    string
	Amount    decimal.Decimal
	RequestID string
}

// RepayResult is a recorded repayment.
type RepayResult struct {
	Loan        *domain.Loan
	Transaction *domain.Transaction
	Remaining   decimal.Decimal
	Balance     decimal.Decimal
}

// Repay debits a repayment and closes the loan once nothing remains.
func (uc *LoanUseCase) Repay(ctx context.Context, actor domain.Actor, in RepayInput) (*RepayResult, error) {
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}

	result, err := RunInScope(ctx, uc.coordinator, func(ctx context.Context, tx Transaction) (*RepayResult, error) {
		if err := checkDuplicate(ctx, uc.txns, tx, actor.UserID, in.RequestID); err != nil {
			return nil, err
		}

		loan, err := uc.ownedLoan(ctx, tx, actor, in.LoanID)
		if err != nil {
			return nil, err
		}
		if loan.Status != domain.LoanStatusDisbursed {
			return nil, domain.ErrInvalidTransition
		}

		repaid, err := uc.txns.SumByReference(ctx, tx, loan.ID, domain.TransactionTypeRepay)
		if err != nil {
			return nil, err
		}
		remaining := loan.TotalDue().Sub(repaid)
		if in.Amount.GreaterThan(remaining) {
			return nil, fmt.Errorf("%w: remaining %s", domain.ErrRepaymentExceedsRemaining, remaining.String())
		}

		now := time.Now().UTC()
		txn := &domain.Transaction{
			ID:           uc.idGen.Generate(),
			UserID:       loan.UserID,
			Type:         domain.TransactionTypeRepay,
			Amount:       in.Amount,
			Counterparty: "sarathi",
			Status:       domain.TransactionStatusSuccess,
			ReferenceID:  loan.ID,
			RequestID:    in.RequestID,
			CreatedAt:    now,
		}
		change, err := uc.ledger.AdjustBalance(ctx, tx, AdjustBalanceInput{
			UserID: loan.UserID,
			Delta:  in.Amount.Neg(),
			At:     now,
			Meta: domain.BalanceMeta{
				TransactionType: txn.Type,
				TransactionID:   txn.ID,
				Counterparty:    txn.Counterparty,
				Description:     "loan repayment",
			},
		})
		if err != nil {
			return nil, err
		}
		if err := uc.txns.Create(ctx, tx, txn); err != nil {
			return nil, err
		}

		remaining = remaining.Sub(in.Amount)
		eventType := domain.EventTypeLoanRepayment
		msg := fmt.Sprintf("Sarathi: repayment of Rs %s received. Rs %s remaining.",
			in.Amount.StringFixed(2), remaining.StringFixed(2))

		if !remaining.IsPositive() {
			if err := loan.Transition(domain.LoanStatusRepaid, now); err != nil {
				return nil, err
			}
			if err := uc.loans.Update(ctx, tx, loan); err != nil {
				return nil, err
			}
			eventType = domain.EventTypeLoanRepaid
			msg = fmt.Sprintf("Sarathi: your loan of Rs %s is fully repaid. Thank you!", loan.Principal.StringFixed(0))
		}

		if err := uc.events.emit(ctx, tx, domain.AggregateTypeLoan, loan.ID, eventType, map[string]any{
			"loan_id":        loan.ID,
			"user_id":        loan.UserID,
			"amount":         in.Amount.String(),
			"remaining":      remaining.String(),
			"transaction_id": txn.ID,
		}); err != nil {
			return nil, err
		}

		phone := recipientPhone(ctx, uc.users, tx, loan.UserID, actor.Phone)
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeLoan, loan.ID, phone, msg); err != nil {
			return nil, err
		}

		return &RepayResult{Loan: loan, Transaction: txn, Remaining: remaining, Balance: change.Current}, nil
	}, WithLockKeys(userLockKey(actor.UserID), loanLockKey(in.LoanID)), WithScopeName("loan_repay"))
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LoanRepayments.Inc()
	}
	uc.refresh(ctx, actor.UserID)

	return result, nil
}

// ActiveLoan is an approved or disbursed loan with its repayment position.
type ActiveLoan struct {
	Loan      *domain.Loan
	TotalDue  decimal.Decimal
	Repaid    decimal.Decimal
	Remaining decimal.Decimal
	DueDate   *time.Time
}

// GetActiveLoan returns the actor's approved or disbursed loan.
func (uc *LoanUseCase) GetActiveLoan(ctx context.Context, actor domain.Actor) (*ActiveLoan, error) {
	loan, err := uc.loans.GetActiveByUser(ctx, nil, actor.UserID)
	if err != nil {
		return nil, err
	}

	repaid, err := uc.txns.SumByReference(ctx, nil, loan.ID, domain.TransactionTypeRepay)
	if err != nil {
		return nil, err
	}

	total := loan.TotalDue()
	return &ActiveLoan{
		Loan:      loan,
		TotalDue:  total,
		Repaid:    repaid,
		Remaining: total.Sub(repaid),
		DueDate:   loan.DueDate(),
	}, nil
}

// MarkDefaulted moves a disbursed loan to defaulted. Admin only.
func (uc *LoanUseCase) MarkDefaulted(ctx context.Context, actor domain.Actor, loanID string) (*domain.Loan, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	loan, err := RunInScope(ctx, uc.coordinator, func(ctx context.Context, tx Transaction) (*domain.Loan, error) {
		loan, err := uc.loans.GetByIDForUpdate(ctx, tx, loanID)
		if err != nil {
			return nil, err
		}
		before := *loan

		if err := loan.Transition(domain.LoanStatusDefaulted, time.Now().UTC()); err != nil {
			return nil, err
		}
		if err := uc.loans.Update(ctx, tx, loan); err != nil {
			return nil, err
		}

		if err := uc.audit.record(ctx, tx, actor, domain.AuditActionLoanDefault, domain.AggregateTypeLoan, loan.ID, before, loan); err != nil {
			return nil, err
		}
		if err := uc.events.emit(ctx, tx, domain.AggregateTypeLoan, loan.ID, domain.EventTypeLoanDefaulted, map[string]any{
			"loan_id": loan.ID,
			"user_id": loan.UserID,
		}); err != nil {
			return nil, err
		}

		phone := recipientPhone(ctx, uc.users, tx, loan.UserID, "")
		msg := fmt.Sprintf("Sarathi: your loan of Rs %s is overdue and has been marked as defaulted.", loan.Principal.StringFixed(0))
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeLoan, loan.ID, phone, msg); err != nil {
			return nil, err
		}

		return loan, nil
	}, WithLockKeys(loanLockKey(loanID)), WithScopeName("loan_default"))
	if err != nil {
		return nil, err
	}

	uc.refresh(ctx, loan.UserID)
	return loan, nil
}

// ownedLoan locks the loan and hides other users' loans as not found.
func (uc *LoanUseCase) ownedLoan(ctx context.Context, tx Transaction, actor domain.Actor, loanID string) (*domain.Loan, error) {
	loan, err := uc.loans.GetByIDForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.UserID != actor.UserID {
		return nil, domain.ErrLoanNotFound
	}
	return loan, nil
}

func (uc *LoanUseCase) refresh(ctx context.Context, userID string) {
	if uc.refresher != nil {
		uc.refresher.Refresh(ctx, userID)
	}
}

func reasonStrings(codes []domain.ReasonCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
