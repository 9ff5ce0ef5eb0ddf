package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

// RemitRequest represents a request to send money.
type RemitRequest struct {
	Amount       decimal.Decimal `json:"amount"       validate:"required,gt=0"`
	Counterparty string          `json:"counterparty" validate:"required,max=64"`
	Description  string          `json:"description"  validate:"max=500"`
}

// ToUseCaseInput converts to use case input.
func (r *RemitRequest) ToUseCaseInput(requestID string) usecase.RemitInput {
	return usecase.RemitInput{
		Amount:       r.Amount,
		Counterparty: r.Counterparty,
		Description:  r.Description,
		RequestID:    requestID,
	}
}

// LoanRequest asks for a loan decision.
type LoanRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// RepayRequest represents a loan repayment.
type RepayRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// ToUseCaseInput converts to use case input.
func (r *RepayRequest) ToUseCaseInput(loanID, requestID string) usecase.RepayInput {
	return usecase.RepayInput{
		LoanID:    loanID,
		Amount:    r.Amount,
		RequestID: requestID,
	}
}

// CreateMerchantRequest registers a merchant.
type CreateMerchantRequest struct {
	Name      string `json:"name"       validate:"required,max=120"`
	Phone     string `json:"phone"      validate:"required,max=32"`
	Category  string `json:"category"   validate:"required,max=60"`
	StateCode string `json:"state_code" validate:"omitempty,len=2,alpha"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateMerchantRequest) ToUseCaseInput() usecase.CreateMerchantInput {
	return usecase.CreateMerchantInput{
		Name:      r.Name,
		Phone:     r.Phone,
		Category:  r.Category,
		StateCode: r.StateCode,
	}
}

// CreateEscrowRequest funds a SafeSend escrow.
type CreateEscrowRequest struct {
	MerchantID string          `json:"merchant_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Goal       string          `json:"goal"        validate:"required,oneof=education medical rent business other"`
	LockReason string          `json:"lock_reason" validate:"max=500"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEscrowRequest) ToUseCaseInput(requestID string) usecase.CreateEscrowInput {
	return usecase.CreateEscrowInput{
		MerchantID: r.MerchantID,
		Amount:     r.Amount,
		Goal:       domain.EscrowGoal(r.Goal),
		LockReason: r.LockReason,
		RequestID:  requestID,
	}
}

// SubmitProofRequest attaches a proof of purchase to an escrow.
type SubmitProofRequest struct {
	ProofURL    string `json:"proof_url"   validate:"required,url"`
	Description string `json:"description" validate:"max=500"`
}

// ToUseCaseInput converts to use case input.
func (r *SubmitProofRequest) ToUseCaseInput(escrowID string) usecase.SubmitProofInput {
	return usecase.SubmitProofInput{
		EscrowID:    escrowID,
		ProofURL:    r.ProofURL,
		Description: r.Description,
	}
}

// ReviewProofRequest approves or rejects a proof.
type ReviewProofRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Reason   string `json:"reason"   validate:"max=500"`
}

// ToUseCaseInput converts to use case input.
func (r *ReviewProofRequest) ToUseCaseInput(proofID string) usecase.ReviewProofInput {
	return usecase.ReviewProofInput{
		ProofID:  proofID,
		Approved: r.Approved != nil && *r.Approved,
		Reason:   r.Reason,
	}
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
