package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the category of a ledger record.
type TransactionType string

const (
	TransactionTypeRemit           TransactionType = "remit"
	TransactionTypeRepay           TransactionType = "repay"
	TransactionTypeLoanDisbursal   TransactionType = "loan_disbursal"
	TransactionTypeSafeSendEscrow  TransactionType = "safesend_escrow"
	TransactionTypeSafeSendRelease TransactionType = "safesend_release"
	TransactionTypeSafeSendRefund  TransactionType = "safesend_refund"
)

// Sign returns how a transaction of this type moves the owner's balance:
// -1 debit, +1 credit, 0 for audit-only records.
func (t TransactionType) Sign() int {
	switch t {
	case TransactionTypeRemit, TransactionTypeRepay, TransactionTypeSafeSendEscrow:
		return -1
	case TransactionTypeLoanDisbursal, TransactionTypeSafeSendRefund:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether t is a known type.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeRemit, TransactionTypeRepay, TransactionTypeLoanDisbursal,
		TransactionTypeSafeSendEscrow, TransactionTypeSafeSendRelease, TransactionTypeSafeSendRefund:
		return true
	}
	return false
}

// TransactionStatus of a ledger record.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// Transaction is an append-only ledger record. Only Status may change after creation.
type Transaction struct {
	ID           string
	UserID       string
	Type         TransactionType
	Amount       decimal.Decimal
	Counterparty string
	Status       TransactionStatus
	ReferenceID  string // loan or escrow the record belongs to
	RequestID    string // client request id, empty when not supplied
	CreatedAt    time.Time
}

// SignedAmount is the balance effect of the transaction.
func (t *Transaction) SignedAmount() decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromInt(int64(t.Type.Sign())))
}

// MonthKey returns the calendar month (UTC) the time falls into, e.g. "2025-03".
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
