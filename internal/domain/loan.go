package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the state of a loan.
type LoanStatus string

const (
	LoanStatusPreapproved LoanStatus = "preapproved"
	LoanStatusApproved    LoanStatus = "approved"
	LoanStatusDisbursed   LoanStatus = "disbursed"
	LoanStatusRepaid      LoanStatus = "repaid"
	LoanStatusDefaulted   LoanStatus = "defaulted"
	LoanStatusRejected    LoanStatus = "rejected"
)

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusPreapproved: {LoanStatusApproved, LoanStatusRejected},
	LoanStatusApproved:    {LoanStatusDisbursed},
	LoanStatusDisbursed:   {LoanStatusRepaid, LoanStatusDefaulted},
}

// CanTransitionTo reports whether the loan state machine allows s -> to.
func (s LoanStatus) CanTransitionTo(to LoanStatus) bool {
	return allowed(loanTransitions, s, to)
}

// IsActive reports whether the loan blocks a new request.
func (s LoanStatus) IsActive() bool {
	return s == LoanStatusApproved || s == LoanStatusDisbursed
}

// LoanAPR is the fixed annual rate, in percent, of every approved offer.
const LoanAPR = 18

// Loan is a short-term loan and its lifecycle timestamps.
type Loan struct {
	ID          string
	UserID      string
	Principal   decimal.Decimal
	APR         int
	TermDays    int
	Status      LoanStatus
	ApprovedAt  *time.Time
	DisbursedAt *time.Time
	RepaidAt    *time.Time
	DefaultedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Transition moves the loan to status to, stamping the matching timestamp.
func (l *Loan) Transition(to LoanStatus, at time.Time) error {
	if !l.Status.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	switch to {
	case LoanStatusApproved:
		l.ApprovedAt = &at
	case LoanStatusDisbursed:
		l.DisbursedAt = &at
	case LoanStatusRepaid:
		l.RepaidAt = &at
	case LoanStatusDefaulted:
		l.DefaultedAt = &at
	}
	l.Status = to
	l.UpdatedAt = at
	return nil
}

// TotalDue is the EMI owed at term end.
func (l *Loan) TotalDue() decimal.Decimal {
	return CalculateEMI(l.Principal, l.APR, l.TermDays)
}

// DueDate is disbursal plus the term; nil until disbursed.
func (l *Loan) DueDate() *time.Time {
	if l.DisbursedAt == nil {
		return nil
	}
	due := l.DisbursedAt.AddDate(0, 0, l.TermDays)
	return &due
}

// RepaidOnTime reports whether a repaid loan was settled by its due date.
func (l *Loan) RepaidOnTime() bool {
	due := l.DueDate()
	if l.RepaidAt == nil || due == nil {
		return false
	}
	return !l.RepaidAt.After(*due)
}

// IsOverdue reports whether a disbursed loan is past due at now.
func (l *Loan) IsOverdue(now time.Time) bool {
	due := l.DueDate()
	return l.Status == LoanStatusDisbursed && due != nil && now.After(*due)
}

var daysPercentPerYear = decimal.NewFromInt(365 * 100)

// CalculateEMI returns ceil(principal + principal*apr*termDays/36500).
func CalculateEMI(principal decimal.Decimal, apr, termDays int) decimal.Decimal {
	interest := principal.
		Mul(decimal.NewFromInt(int64(apr))).
		Mul(decimal.NewFromInt(int64(termDays))).
		Div(daysPercentPerYear)
	return principal.Add(interest).Ceil()
}

// LoanOffer is an approved offer's terms.
type LoanOffer struct {
	Principal decimal.Decimal
	APR       int
	TermDays  int
	TotalDue  decimal.Decimal
}

// LoanPolicyInput is what the policy needs to decide.
type LoanPolicyInput struct {
	Amount           decimal.Decimal
	Score            int
	Band             Band
	RemitMonthsIn6Mo int
}

var (
	bandALimit = decimal.NewFromInt(5000)
	bandBLimit = decimal.NewFromInt(3000)
	bandCLimit = decimal.NewFromInt(1000)
)

const (
	bandCMinScore       = 600
	bandCMinRemitMonths = 3
)

// EvaluateLoanPolicy returns the offer for in, or false when no band rule matches.
func EvaluateLoanPolicy(in LoanPolicyInput) (LoanOffer, bool) {
	if !in.Amount.IsPositive() {
		return LoanOffer{}, false
	}

	term := 0
	switch in.Band {
	case BandA:
		if in.Amount.LessThanOrEqual(bandALimit) {
			term = 30
			if in.Amount.Equal(bandALimit) {
				term = 60
			}
		}
	case BandB:
		if in.Amount.LessThanOrEqual(bandBLimit) {
			term = 30
		}
	case BandC:
		if in.Amount.LessThanOrEqual(bandCLimit) &&
			in.Score >= bandCMinScore &&
			in.RemitMonthsIn6Mo >= bandCMinRemitMonths {
			term = 30
		}
	}

	if term == 0 {
		return LoanOffer{}, false
	}

	return LoanOffer{
		Principal: in.Amount,
		APR:       LoanAPR,
		TermDays:  term,
		TotalDue:  CalculateEMI(in.Amount, LoanAPR, term),
	}, true
}

// LoanDecision is the outcome of a loan request.
type LoanDecision struct {
	Loan        *Loan
	Approved    bool
	Score       int
	Band        Band
	ReasonCodes []ReasonCode
	Offer       *LoanOffer
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
