package domain

import "time"

// Event types
const (
	EventTypeNotificationSMS   = "notification.sms"
	EventTypeRemitCompleted    = "transaction.remit"
	EventTypeLoanDecision      = "loan.decision"
	EventTypeLoanDisbursed     = "loan.disbursed"
	EventTypeLoanRepayment     = "loan.repayment"
	EventTypeLoanRepaid        = "loan.repaid"
	EventTypeLoanDefaulted     = "loan.defaulted"
	EventTypeEscrowCreated     = "safesend.escrow_created"
	EventTypeProofSubmitted    = "safesend.proof_submitted"
	EventTypeEscrowReleased    = "safesend.escrow_released"
	EventTypeProofRejected     = "safesend.proof_rejected"
	EventTypeEscrowRefunded    = "safesend.escrow_refunded"
	EventTypeMerchantVerified  = "safesend.merchant_verified"
	EventTypeOverdraftRecorded = "ledger.overdraft"
)

// Aggregate types
const (
	AggregateTypeUser        = "user"
	AggregateTypeTransaction = "transaction"
	AggregateTypeLoan        = "loan"
	AggregateTypeEscrow      = "escrow"
	AggregateTypeProof       = "proof"
	AggregateTypeMerchant    = "merchant"
)

// OutboxEvent represents an event to be published after its scope commits.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
	Attempts      int // failed delivery attempts so far
	LastError     string
	FailedAt      *time.Time // set once the event is dead-lettered
}

// IsNotification reports whether the event is addressed to a person rather than a sink.
func (e *OutboxEvent) IsNotification() bool {
	return e.EventType == EventTypeNotificationSMS
}

// SMSNotification payload
type SMSNotification struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// NotificationFromEvent extracts the SMS payload of a notification event.
func NotificationFromEvent(e *OutboxEvent) (SMSNotification, bool) {
	if !e.IsNotification() {
		return SMSNotification{}, false
	}
	recipient, _ := e.Payload["recipient"].(string)
	message, _ := e.Payload["message"].(string)
	if recipient == "" || message == "" {
		return SMSNotification{}, false
	}
	return SMSNotification{Recipient: recipient, Message: message}, true
}
