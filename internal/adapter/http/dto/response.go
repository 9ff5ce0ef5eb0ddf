package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// PageResponse is one page of a listing.
type PageResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// PageFromDomain converts a domain page, mapping each item with conv.
func PageFromDomain[D, T any](p domain.Page[D], conv func(D) T) PageResponse[T] {
	items := make([]T, len(p.Items))
	for i, item := range p.Items {
		items[i] = conv(item)
	}
	return PageResponse[T]{
		Items: items,
		Total: p.Total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: p.Pages(),
	}
}

// HistoryEntryResponse is one balance history entry.
type HistoryEntryResponse struct {
	Seq             int64           `json:"seq"`
	OccurredAt      time.Time       `json:"occurred_at"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"`
	TransactionType string          `json:"transaction_type"`
	Counterparty    string          `json:"counterparty,omitempty"`
	Description     string          `json:"description,omitempty"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	RiskLevel       string          `json:"risk_level"`
}

// OverdraftResponse is one refused debit.
type OverdraftResponse struct {
	Seq              int64           `json:"seq"`
	OccurredAt       time.Time       `json:"occurred_at"`
	AttemptedAmount  decimal.Decimal `json:"attempted_amount"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

// AccountResponse is the caller's balance and histories.
type AccountResponse struct {
	UserID     string                 `json:"user_id"`
	Phone      string                 `json:"phone,omitempty"`
	StateCode  string                 `json:"state_code,omitempty"`
	IsAdmin    bool                   `json:"is_admin"`
	Balance    decimal.Decimal        `json:"balance"`
	History    []HistoryEntryResponse `json:"history"`
	Overdrafts []OverdraftResponse    `json:"overdrafts"`
}

// AccountFromUseCase converts an account view to response.
func AccountFromUseCase(v *usecase.AccountView) *AccountResponse {
	history := make([]HistoryEntryResponse, len(v.History))
	for i, h := range v.History {
		history[i] = HistoryEntryResponse{
			Seq:             h.Seq,
			OccurredAt:      h.OccurredAt,
			Amount:          h.Amount,
			Type:            string(h.Direction),
			TransactionType: string(h.TransactionType),
			Counterparty:    h.Counterparty,
			Description:     h.Description,
			BalanceAfter:    h.BalanceAfter,
			TransactionID:   h.TransactionID,
			RiskLevel:       string(h.RiskLevel),
		}
	}

	overdrafts := make([]OverdraftResponse, len(v.Overdrafts))
	for i, o := range v.Overdrafts {
		overdrafts[i] = OverdraftResponse{
			Seq:              o.Seq,
			OccurredAt:       o.OccurredAt,
			AttemptedAmount:  o.AttemptedAmount,
			AvailableBalance: o.AvailableBalance,
		}
	}

	return &AccountResponse{
		UserID:     v.User.ID,
		Phone:      v.User.Phone,
		StateCode:  v.User.StateCode,
		IsAdmin:    v.User.IsAdmin,
		Balance:    v.Balance,
		History:    history,
		Overdrafts: overdrafts,
	}
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Counterparty string          `json:"counterparty,omitempty"`
	Status       string          `json:"status"`
	ReferenceID  string          `json:"reference_id,omitempty"`
	RequestID    string          `json:"request_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:           t.ID,
		Type:         string(t.Type),
		Amount:       t.Amount,
		Counterparty: t.Counterparty,
		Status:       string(t.Status),
		ReferenceID:  t.ReferenceID,
		RequestID:    t.RequestID,
		CreatedAt:    t.CreatedAt,
	}
}

// RemitResponse is a completed remittance.
type RemitResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Balance     decimal.Decimal     `json:"balance"`
}

// ScoreResponse represents a score snapshot.
type ScoreResponse struct {
	ID          string         `json:"id"`
	Score       int            `json:"score"`
	Band        string         `json:"band"`
	ReasonCodes []string       `json:"reason_codes"`
	Signals     domain.Signals `json:"signals"`
	StateCode   string         `json:"state_code,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ScoreFromDomain converts domain score to response.
func ScoreFromDomain(s *domain.Score) ScoreResponse {
	return ScoreResponse{
		ID:          s.ID,
		Score:       s.Score,
		Band:        string(s.Band),
		ReasonCodes: reasonStrings(s.ReasonCodes),
		Signals:     s.Signals,
		StateCode:   s.StateCode,
		CreatedAt:   s.CreatedAt,
	}
}

func reasonStrings(codes []domain.ReasonCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	ID          string          `json:"id"`
	Principal   decimal.Decimal `json:"principal"`
	APR         int             `json:"apr"`
	TermDays    int             `json:"term_days"`
	Status      string          `json:"status"`
	TotalDue    decimal.Decimal `json:"total_due"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	DisbursedAt *time.Time      `json:"disbursed_at,omitempty"`
	RepaidAt    *time.Time      `json:"repaid_at,omitempty"`
	DefaultedAt *time.Time      `json:"defaulted_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LoanFromDomain converts domain loan to response.
func LoanFromDomain(l *domain.Loan) *LoanResponse {
	if l == nil {
		return nil
	}
	return &LoanResponse{
		ID:          l.ID,
		Principal:   l.Principal,
		APR:         l.APR,
		TermDays:    l.TermDays,
		Status:      string(l.Status),
		TotalDue:    l.TotalDue(),
		ApprovedAt:  l.ApprovedAt,
		DisbursedAt: l.DisbursedAt,
		RepaidAt:    l.RepaidAt,
		DefaultedAt: l.DefaultedAt,
		CreatedAt:   l.CreatedAt,
	}
}

// LoanOfferResponse is the offer attached to a preapproval.
type LoanOfferResponse struct {
	Principal decimal.Decimal `json:"principal"`
	APR       int             `json:"apr"`
	TermDays  int             `json:"term_days"`
	TotalDue  decimal.Decimal `json:"total_due"`
}

// LoanDecisionResponse is the outcome of a loan request.
type LoanDecisionResponse struct {
	Approved    bool               `json:"approved"`
	Score       int                `json:"score"`
	Band        string             `json:"band"`
	ReasonCodes []string           `json:"reason_codes"`
	Loan        *LoanResponse      `json:"loan,omitempty"`
	Offer       *LoanOfferResponse `json:"offer,omitempty"`
}

// LoanDecisionFromDomain converts a decision to response.
func LoanDecisionFromDomain(d *domain.LoanDecision) *LoanDecisionResponse {
	resp := &LoanDecisionResponse{
		Approved:    d.Approved,
		Score:       d.Score,
		Band:        string(d.Band),
		ReasonCodes: reasonStrings(d.ReasonCodes),
		Loan:        LoanFromDomain(d.Loan),
	}
	if d.Offer != nil {
		resp.Offer = &LoanOfferResponse{
			Principal: d.Offer.Principal,
			APR:       d.Offer.APR,
			TermDays:  d.Offer.TermDays,
			TotalDue:  d.Offer.TotalDue,
		}
	}
	return resp
}

// ActiveLoanResponse is the caller's open loan with repayment progress.
type ActiveLoanResponse struct {
	Loan      *LoanResponse   `json:"loan"`
	TotalDue  decimal.Decimal `json:"total_due"`
	Repaid    decimal.Decimal `json:"repaid"`
	Remaining decimal.Decimal `json:"remaining"`
	DueDate   *time.Time      `json:"due_date,omitempty"`
}

// ActiveLoanFromUseCase converts an active loan view to response.
func ActiveLoanFromUseCase(a *usecase.ActiveLoan) *ActiveLoanResponse {
	return &ActiveLoanResponse{
		Loan:      LoanFromDomain(a.Loan),
		TotalDue:  a.TotalDue,
		Repaid:    a.Repaid,
		Remaining: a.Remaining,
		DueDate:   a.DueDate,
	}
}

// RepayResponse is a recorded repayment.
type RepayResponse struct {
	Loan        *LoanResponse       `json:"loan"`
	Transaction TransactionResponse `json:"transaction"`
	Remaining   decimal.Decimal     `json:"remaining"`
	Balance     decimal.Decimal     `json:"balance"`
}

// RepayFromUseCase converts a repayment to response.
func RepayFromUseCase(r *usecase.RepayResult) *RepayResponse {
	return &RepayResponse{
		Loan:        LoanFromDomain(r.Loan),
		Transaction: TransactionFromDomain(r.Transaction),
		Remaining:   r.Remaining,
		Balance:     r.Balance,
	}
}

// MerchantResponse represents a merchant in API responses.
type MerchantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Category  string    `json:"category"`
	StateCode string    `json:"state_code,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// MerchantFromDomain converts domain merchant to response.
func MerchantFromDomain(m *domain.Merchant) *MerchantResponse {
	if m == nil {
		return nil
	}
	return &MerchantResponse{
		ID:        m.ID,
		Name:      m.Name,
		Phone:     m.Phone,
		Category:  m.Category,
		StateCode: m.StateCode,
		Verified:  m.Verified,
		CreatedAt: m.CreatedAt,
	}
}

// MerchantsFromDomain converts domain merchants to responses.
func MerchantsFromDomain(merchants []*domain.Merchant) []*MerchantResponse {
	result := make([]*MerchantResponse, len(merchants))
	for i, m := range merchants {
		result[i] = MerchantFromDomain(m)
	}
	return result
}

// EscrowResponse represents an escrow in API responses.
type EscrowResponse struct {
	ID            string          `json:"id"`
	SenderID      string          `json:"sender_id"`
	MerchantID    string          `json:"merchant_id"`
	Amount        decimal.Decimal `json:"amount"`
	Goal          string          `json:"goal"`
	Status        string          `json:"status"`
	LockReason    string          `json:"lock_reason,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	ReleasedAt    *time.Time      `json:"released_at,omitempty"`
	RefundedAt    *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// EscrowFromDomain converts domain escrow to response.
func EscrowFromDomain(e *domain.Escrow) *EscrowResponse {
	return &EscrowResponse{
		ID:            e.ID,
		SenderID:      e.SenderID,
		MerchantID:    e.MerchantID,
		Amount:        e.Amount,
		Goal:          string(e.Goal),
		Status:        string(e.Status),
		LockReason:    e.LockReason,
		TransactionID: e.TransactionID,
		ReleasedAt:    e.ReleasedAt,
		RefundedAt:    e.RefundedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// ProofResponse represents a proof in API responses.
type ProofResponse struct {
	ID              string     `json:"id"`
	EscrowID        string     `json:"escrow_id"`
	MerchantID      string     `json:"merchant_id"`
	ProofURL        string     `json:"proof_url"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ProofFromDomain converts domain proof to response.
func ProofFromDomain(p *domain.Proof) *ProofResponse {
	return &ProofResponse{
		ID:              p.ID,
		EscrowID:        p.EscrowID,
		MerchantID:      p.MerchantID,
		ProofURL:        p.ProofURL,
		Description:     p.Description,
		Status:          string(p.Status),
		ReviewedBy:      p.ReviewedBy,
		ReviewedAt:      p.ReviewedAt,
		RejectionReason: p.RejectionReason,
		CreatedAt:       p.CreatedAt,
	}
}

// EscrowDetailsResponse is an escrow with its merchant and proofs.
type EscrowDetailsResponse struct {
	Escrow   *EscrowResponse   `json:"escrow"`
	Merchant *MerchantResponse `json:"merchant,omitempty"`
	Proofs   []*ProofResponse  `json:"proofs"`
}

// EscrowDetailsFromDomain converts escrow details to response.
func EscrowDetailsFromDomain(d *domain.EscrowDetails) *EscrowDetailsResponse {
	proofs := make([]*ProofResponse, len(d.Proofs))
	for i, p := range d.Proofs {
		proofs[i] = ProofFromDomain(p)
	}
	return &EscrowDetailsResponse{
		Escrow:   EscrowFromDomain(d.Escrow),
		Merchant: MerchantFromDomain(d.Merchant),
		Proofs:   proofs,
	}
}

// ReviewResponse is a reviewed proof and its escrow.
type ReviewResponse struct {
	Proof  *ProofResponse  `json:"proof"`
	Escrow *EscrowResponse `json:"escrow"`
}

// ReconciliationResponse is one user's reconciliation result.
type ReconciliationResponse struct {
	UserID            string          `json:"user_id"`
	OpeningBalance    decimal.Decimal `json:"opening_balance"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
	LastChecked       time.Time       `json:"last_checked"`
}

// ReconciliationFromUseCase converts a reconciliation result to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		UserID:            r.UserID,
		OpeningBalance:    r.OpeningBalance,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		Difference:        r.Difference,
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// ReconciliationReportResponse summarises a batch reconciliation.
type ReconciliationReportResponse struct {
	TotalUsers      int                       `json:"total_users"`
	ReconciledUsers int                       `json:"reconciled_users"`
	Discrepancies   []*ReconciliationResponse `json:"discrepancies"`
	CheckedAt       time.Time                 `json:"checked_at"`
}

// ReconciliationReportFromUseCase converts a report to response.
func ReconciliationReportFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromUseCase(d)
	}
	return &ReconciliationReportResponse{
		TotalUsers:      r.TotalUsers,
		ReconciledUsers: r.ReconciledUsers,
		Discrepancies:   discrepancies,
		CheckedAt:       r.CheckedAt,
	}
}

// AuditLogResponse is one privileged-action record.
type AuditLogResponse struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	RequestID    string         `json:"request_id,omitempty"`
	BeforeState  map[string]any `json:"before_state,omitempty"`
	AfterState   map[string]any `json:"after_state,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditLogsFromDomain converts audit entries to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	out := make([]*AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, &AuditLogResponse{
			ID:           l.ID,
			UserID:       l.UserID,
			Action:       l.Action,
			ResourceType: l.ResourceType,
			ResourceID:   l.ResourceID,
			RequestID:    l.RequestID,
			BeforeState:  l.BeforeState,
			AfterState:   l.AfterState,
			Status:       l.Status,
			ErrorMessage: l.ErrorMessage,
			CreatedAt:    l.CreatedAt,
		})
	}
	return out
}
