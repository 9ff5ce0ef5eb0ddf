package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/sarathi/internal/adapter/http/dto"
	"github.com/iho/sarathi/internal/domain"
)

// AdminHandler serves operator-only reconciliation and audit endpoints.
type AdminHandler struct {
	reconciliation ReconciliationService
	audit          AuditService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reconciliation ReconciliationService, audit AuditService) *AdminHandler {
	return &AdminHandler{reconciliation: reconciliation, audit: audit}
}

// ReconcileUser compares a user's stored balance with their transaction log.
func (h *AdminHandler) ReconcileUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	result, err := h.reconciliation.ReconcileUser(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to reconcile user", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(result))
}

// Report reconciles a page of users and returns the discrepancies.
func (h *AdminHandler) Report(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", 100)
	offset := parseIntQuery(r, "offset", 0)

	report, err := h.reconciliation.GenerateReport(r.Context(), actor, limit, offset)
	if err != nil {
		writeDomainError(w, r, "failed to generate reconciliation report", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationReportFromUseCase(report))
}

// AuditLogs lists audit entries filtered by user_id, action, resource_type
// and resource_id query parameters.
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	logs, err := h.audit.List(r.Context(), actor, domain.AuditFilter{
		UserID:       q.Get("user_id"),
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Limit:        parseIntQuery(r, "limit", 0),
		Offset:       parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, r, "failed to list audit logs", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": dto.AuditLogsFromDomain(logs)})
}
