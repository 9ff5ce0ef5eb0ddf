package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/sarathi/internal/adapter/http/dto"
	"github.com/iho/sarathi/internal/adapter/http/middleware"
	"github.com/iho/sarathi/internal/domain"
)

// SafeSendHandler handles merchants, escrows and proofs.
type SafeSendHandler struct {
	merchants MerchantService
	escrows   EscrowService
}

// NewSafeSendHandler creates a new SafeSendHandler.
func NewSafeSendHandler(merchants MerchantService, escrows EscrowService) *SafeSendHandler {
	return &SafeSendHandler{merchants: merchants, escrows: escrows}
}

// CreateMerchant registers an unverified merchant.
func (h *SafeSendHandler) CreateMerchant(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.CreateMerchantRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	merchant, err := h.merchants.Create(r.Context(), actor, req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to create merchant", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MerchantFromDomain(merchant))
}

// ListMerchants lists merchants, optionally filtered by state and verification.
func (h *SafeSendHandler) ListMerchants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MerchantFilter{
		StateCode: q.Get("state"),
		Limit:     parseIntQuery(r, "limit", domain.DefaultPageSize),
	}
	if v := q.Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid verified filter", err.Error())
			return
		}
		filter.Verified = &verified
	}

	merchants, err := h.merchants.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, "failed to list merchants", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MerchantsFromDomain(merchants))
}

// VerifyMerchant marks a merchant verified.
func (h *SafeSendHandler) VerifyMerchant(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	merchant, err := h.merchants.Verify(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to verify merchant", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MerchantFromDomain(merchant))
}

// CreateEscrow locks funds for a verified merchant.
func (h *SafeSendHandler) CreateEscrow(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.CreateEscrowRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	escrow, err := h.escrows.Create(r.Context(), actor, req.ToUseCaseInput(middleware.IdempotencyKey(r)))
	if err != nil {
		writeDomainError(w, r, "failed to create escrow", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EscrowFromDomain(escrow))
}

// ListEscrows lists escrows sent by the caller.
func (h *SafeSendHandler) ListEscrows(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	page, limit := pagination(r)
	result, err := h.escrows.ListBySender(r.Context(), actor, page, limit)
	if err != nil {
		writeDomainError(w, r, "failed to list escrows", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PageFromDomain(result, dto.EscrowFromDomain))
}

// ListMerchantEscrows lists escrows addressed to a merchant.
func (h *SafeSendHandler) ListMerchantEscrows(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	page, limit := pagination(r)
	result, err := h.escrows.ListByMerchant(r.Context(), actor, chi.URLParam(r, "id"), page, limit)
	if err != nil {
		writeDomainError(w, r, "failed to list merchant escrows", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PageFromDomain(result, dto.EscrowFromDomain))
}

// GetEscrow returns an escrow with its merchant and proofs.
func (h *SafeSendHandler) GetEscrow(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	details, err := h.escrows.GetEscrow(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to get escrow", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EscrowDetailsFromDomain(details))
}

// SubmitProof attaches merchant proof to a locked escrow.
func (h *SafeSendHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.SubmitProofRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	proof, err := h.escrows.SubmitProof(r.Context(), actor, req.ToUseCaseInput(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, r, "failed to submit proof", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ProofFromDomain(proof))
}

// PendingProofs lists proofs awaiting review.
func (h *SafeSendHandler) PendingProofs(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	page, limit := pagination(r)
	result, err := h.escrows.ListPendingProofs(r.Context(), actor, page, limit)
	if err != nil {
		writeDomainError(w, r, "failed to list pending proofs", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PageFromDomain(result, dto.ProofFromDomain))
}

// ReviewProof approves or rejects a proof.
func (h *SafeSendHandler) ReviewProof(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.ReviewProofRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.escrows.ReviewProof(r.Context(), actor, req.ToUseCaseInput(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, r, "failed to review proof", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReviewResponse{
		Proof:  dto.ProofFromDomain(result.Proof),
		Escrow: dto.EscrowFromDomain(result.Escrow),
	})
}

// Refund returns a locked escrow's funds to the sender.
func (h *SafeSendHandler) Refund(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	escrow, err := h.escrows.Refund(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to refund escrow", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EscrowFromDomain(escrow))
}
