package handler

import (
	"net/http"

	"github.com/iho/sarathi/internal/adapter/http/dto"
	"github.com/iho/sarathi/internal/adapter/http/middleware"
	"github.com/iho/sarathi/internal/domain"
)

// LedgerHandler handles balance and remittance requests.
type LedgerHandler struct {
	ledger LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Me returns the caller's balance with recent history and overdrafts.
func (h *LedgerHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	view, err := h.ledger.GetAccount(r.Context(), actor)
	if err != nil {
		writeDomainError(w, r, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromUseCase(view))
}

// Transactions lists the caller's transactions, newest first.
func (h *LedgerHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	page, limit := pagination(r)
	result, err := h.ledger.ListTransactions(r.Context(), actor, page, limit)
	if err != nil {
		writeDomainError(w, r, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PageFromDomain(result, func(t *domain.Transaction) dto.TransactionResponse {
		return dto.TransactionFromDomain(t)
	}))
}

// Remit sends money out of the caller's balance.
func (h *LedgerHandler) Remit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.RemitRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.ledger.Remit(r.Context(), actor, req.ToUseCaseInput(middleware.IdempotencyKey(r)))
	if err != nil {
		writeDomainError(w, r, "failed to remit", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RemitResponse{
		Transaction: dto.TransactionFromDomain(result.Transaction),
		Balance:     result.Balance,
	})
}
