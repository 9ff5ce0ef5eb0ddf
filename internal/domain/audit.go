package domain

import (
	"encoding/json"
	"time"
)

// AuditLog is an audit trail entry for privileged actions.
type AuditLog struct {
	ID           string
	UserID       string // who performed the action
	Action       string
	ResourceType string
	ResourceID   string
	RequestID    string
	BeforeState  JSON
	AfterState   JSON
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is free-form audit state.
type JSON map[string]any

// AuditAction names an auditable action.
type AuditAction string

const (
	AuditActionMerchantCreate AuditAction = "merchant.create"
	AuditActionMerchantVerify AuditAction = "merchant.verify"
	AuditActionProofReview    AuditAction = "proof.review"
	AuditActionEscrowRefund   AuditAction = "escrow.refund"
	AuditActionLoanDefault    AuditAction = "loan.default"
)

// AuditStatus is the outcome of an audited action.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// MarshalState converts a domain object to JSON for audit logging.
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Limit        int
	Offset       int
}
