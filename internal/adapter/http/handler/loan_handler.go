package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/sarathi/internal/adapter/http/dto"
	"github.com/iho/sarathi/internal/adapter/http/middleware"
)

// LoanHandler handles loan requests.
type LoanHandler struct {
	loans LoanService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loans LoanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

// Request evaluates a loan request. A rejection is still a 200 with approved=false.
func (h *LoanHandler) Request(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.LoanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	decision, err := h.loans.Decide(r.Context(), actor, req.Amount)
	if err != nil {
		writeDomainError(w, r, "failed to evaluate loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanDecisionFromDomain(decision))
}

// Accept disburses an approved loan.
func (h *LoanHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	loan, err := h.loans.Accept(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to accept loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// Repay applies a repayment to a disbursed loan.
func (h *LoanHandler) Repay(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.RepayRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.loans.Repay(r.Context(), actor, req.ToUseCaseInput(chi.URLParam(r, "id"), middleware.IdempotencyKey(r)))
	if err != nil {
		writeDomainError(w, r, "failed to repay loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RepayFromUseCase(result))
}

// Active returns the caller's outstanding loan.
func (h *LoanHandler) Active(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	active, err := h.loans.GetActiveLoan(r.Context(), actor)
	if err != nil {
		writeDomainError(w, r, "failed to get active loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ActiveLoanFromUseCase(active))
}

// Default marks a loan as defaulted.
func (h *LoanHandler) Default(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	loan, err := h.loans.MarkDefaulted(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to mark loan defaulted", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}
