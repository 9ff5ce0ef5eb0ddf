package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// EscrowStatus is the state of a SafeSend escrow.
type EscrowStatus string

const (
	EscrowStatusPending       EscrowStatus = "pending"
	EscrowStatusAwaitingProof EscrowStatus = "awaiting_proof"
	EscrowStatusUnderReview   EscrowStatus = "under_review"
	EscrowStatusReleased      EscrowStatus = "released"
	EscrowStatusRefunded      EscrowStatus = "refunded"
	EscrowStatusRejected      EscrowStatus = "rejected"
)

var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusPending:       {EscrowStatusAwaitingProof},
	EscrowStatusAwaitingProof: {EscrowStatusUnderReview, EscrowStatusRefunded},
	EscrowStatusUnderReview:   {EscrowStatusReleased, EscrowStatusAwaitingProof, EscrowStatusRefunded},
}

// CanTransitionTo reports whether the escrow state machine allows s -> to.
func (s EscrowStatus) CanTransitionTo(to EscrowStatus) bool {
	return allowed(escrowTransitions, s, to)
}

// PriorStatuses lists the states that may move into s, sorted.
func (s EscrowStatus) PriorStatuses() []string {
	var prior []string
	for from, targets := range escrowTransitions {
		for _, to := range targets {
			if to == s {
				prior = append(prior, string(from))
				break
			}
		}
	}
	sort.Strings(prior)
	return prior
}

// IsTerminal reports whether no further transition is possible.
func (s EscrowStatus) IsTerminal() bool {
	return len(escrowTransitions[s]) == 0
}

// EscrowGoal is what the escrowed funds are meant for.
type EscrowGoal string

const (
	GoalEducation EscrowGoal = "education"
	GoalMedical   EscrowGoal = "medical"
	GoalRent      EscrowGoal = "rent"
	GoalBusiness  EscrowGoal = "business"
	GoalOther     EscrowGoal = "other"
)

// IsValid reports whether g is a known goal.
func (g EscrowGoal) IsValid() bool {
	switch g {
	case GoalEducation, GoalMedical, GoalRent, GoalBusiness, GoalOther:
		return true
	}
	return false
}

// Escrow holds sender funds until a merchant's proof is approved.
type Escrow struct {
	ID            string
	SenderID      string
	MerchantID    string
	Amount        decimal.Decimal
	Goal          EscrowGoal
	Status        EscrowStatus
	LockReason    string
	TransactionID string // the debit recorded at creation
	ReleasedAt    *time.Time
	RefundedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Transition moves the escrow to status to.
func (e *Escrow) Transition(to EscrowStatus, at time.Time) error {
	if !e.Status.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	switch to {
	case EscrowStatusReleased:
		e.ReleasedAt = &at
	case EscrowStatusRefunded:
		e.RefundedAt = &at
	}
	e.Status = to
	e.UpdatedAt = at
	return nil
}

// ProofStatus is the review state of a proof.
type ProofStatus string

const (
	ProofStatusPending  ProofStatus = "pending"
	ProofStatusApproved ProofStatus = "approved"
	ProofStatusRejected ProofStatus = "rejected"
)

var proofTransitions = map[ProofStatus][]ProofStatus{
	ProofStatusPending: {ProofStatusApproved, ProofStatusRejected},
}

// CanTransitionTo reports whether the proof state machine allows s -> to.
func (s ProofStatus) CanTransitionTo(to ProofStatus) bool {
	return allowed(proofTransitions, s, to)
}

// Proof is a merchant's proof of purchase for an escrow.
type Proof struct {
	ID              string
	EscrowID        string
	MerchantID      string
	ProofURL        string
	Description     string
	Status          ProofStatus
	ReviewedBy      string
	ReviewedAt      *time.Time
	RejectionReason string
	CreatedAt       time.Time
}

// Review records a reviewer's verdict.
func (p *Proof) Review(reviewer string, approved bool, reason string, at time.Time) error {
	to := ProofStatusApproved
	if !approved {
		to = ProofStatusRejected
	}
	if !p.Status.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	if !approved && reason == "" {
		return ErrRejectionReasonRequired
	}
	p.Status = to
	p.ReviewedBy = reviewer
	p.ReviewedAt = &at
	if !approved {
		p.RejectionReason = reason
	}
	return nil
}

// Merchant may receive escrowed funds once verified.
type Merchant struct {
	ID        string
	Name      string
	Phone     string // E.164
	Category  string
	StateCode string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MerchantFilter narrows merchant listings.
type MerchantFilter struct {
	StateCode string
	Verified  *bool
	Limit     int
}

// EscrowDetails is an escrow with its merchant and proofs.
type EscrowDetails struct {
	Escrow   *Escrow
	Merchant *Merchant
	Proofs   []*Proof
}
