package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error taxonomy roots. Every business error wraps exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPolicyRejected    = errors.New("policy rejected")
)

var (
	// Not found
	ErrUserNotFound        = fmt.Errorf("%w: user", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("%w: transaction", ErrNotFound)
	ErrScoreNotFound       = fmt.Errorf("%w: score", ErrNotFound)
	ErrLoanNotFound        = fmt.Errorf("%w: loan", ErrNotFound)
	ErrMerchantNotFound    = fmt.Errorf("%w: merchant", ErrNotFound)
	ErrEscrowNotFound      = fmt.Errorf("%w: escrow", ErrNotFound)
	ErrProofNotFound       = fmt.Errorf("%w: proof", ErrNotFound)

	// Unauthorized
	ErrAdminRequired    = fmt.Errorf("%w: admin required", ErrUnauthorized)
	ErrNotEscrowParty   = fmt.Errorf("%w: actor is not a party to this escrow", ErrUnauthorized)
	ErrMerchantMismatch = fmt.Errorf("%w: merchant does not own this escrow", ErrUnauthorized)
	ErrInvalidToken     = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrExpiredToken     = fmt.Errorf("%w: token has expired", ErrUnauthorized)

	// Invalid input
	ErrInvalidAmount             = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	ErrInvalidTransition         = fmt.Errorf("%w: transition not allowed from current state", ErrInvalidInput)
	ErrMerchantNotVerified       = fmt.Errorf("%w: merchant is not verified", ErrInvalidInput)
	ErrRepaymentExceedsRemaining = fmt.Errorf("%w: repayment exceeds remaining amount", ErrInvalidInput)
	ErrRejectionReasonRequired   = fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
	ErrInvalidGoal               = fmt.Errorf("%w: unknown escrow goal", ErrInvalidInput)
	ErrInvalidPhone              = fmt.Errorf("%w: invalid phone number", ErrInvalidInput)
	ErrInvalidProofURL           = fmt.Errorf("%w: invalid proof url", ErrInvalidInput)
	ErrMissingCounterparty       = fmt.Errorf("%w: counterparty is required", ErrInvalidInput)
	ErrDuplicateRequest          = fmt.Errorf("%w: request already processed", ErrInvalidInput)
	ErrMerchantExists            = fmt.Errorf("%w: merchant with this phone already exists", ErrInvalidInput)

	// Policy
	ErrActiveLoanExists = fmt.Errorf("%w: an approved or disbursed loan already exists", ErrPolicyRejected)
)

// ErrUndeliverable marks a delivery the receiving side refused outright.
// The outbox dead-letters such events instead of retrying them.
var ErrUndeliverable = errors.New("undeliverable")

// InsufficientFundsError reports a refused debit together with the amounts involved.
type InsufficientFundsError struct {
	UserID    string
	Attempted decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: user %s attempted %s with %s available",
		e.UserID, e.Attempted.String(), e.Available.String())
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// DuplicateRequestError is returned when a request id was already used by the same user.
type DuplicateRequestError struct {
	RequestID     string
	TransactionID string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("request %s already processed as transaction %s", e.RequestID, e.TransactionID)
}

func (e *DuplicateRequestError) Unwrap() error {
	return ErrDuplicateRequest
}
