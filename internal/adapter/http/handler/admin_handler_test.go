package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/adapter/http/dto"
	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

type reconciliationServiceStub struct {
	reconcileFn func(ctx context.Context, actor domain.Actor, userID string) (*usecase.ReconciliationResult, error)
	reportFn    func(ctx context.Context, actor domain.Actor, limit, offset int) (*usecase.ReconciliationReport, error)
}

func (s *reconciliationServiceStub) ReconcileUser(ctx context.Context, actor domain.Actor, userID string) (*usecase.ReconciliationResult, error) {
	return s.reconcileFn(ctx, actor, userID)
}

func (s *reconciliationServiceStub) GenerateReport(ctx context.Context, actor domain.Actor, limit, offset int) (*usecase.ReconciliationReport, error) {
	return s.reportFn(ctx, actor, limit, offset)
}

func TestAdminHandler_ReconcileUser(t *testing.T) {
	h := NewAdminHandler(&reconciliationServiceStub{
		reconcileFn: func(ctx context.Context, actor domain.Actor, userID string) (*usecase.ReconciliationResult, error) {
			if userID != "user-9" {
				t.Fatalf("expected user-9, got %s", userID)
			}
			return &usecase.ReconciliationResult{
				UserID:            userID,
				OpeningBalance:    decimal.NewFromInt(1000),
				RecordedBalance:   decimal.NewFromInt(900),
				CalculatedBalance: decimal.NewFromInt(850),
				Difference:        decimal.NewFromInt(50),
				IsReconciled:      false,
				LastChecked:       time.Now(),
			}, nil
		},
	}, nil)

	r := chi.NewRouter()
	r.Get("/admin/users/{id}/reconcile", h.ReconcileUser)

	req := withActor(httptest.NewRequest(http.MethodGet, "/admin/users/user-9/reconcile", nil), domain.Actor{UserID: "ops", IsAdmin: true})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp dto.ReconciliationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.IsReconciled || !resp.Difference.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected reconciliation: %+v", resp)
	}
}

func TestAdminHandler_Report(t *testing.T) {
	h := NewAdminHandler(&reconciliationServiceStub{
		reportFn: func(ctx context.Context, actor domain.Actor, limit, offset int) (*usecase.ReconciliationReport, error) {
			if limit != 10 || offset != 20 {
				t.Fatalf("expected limit=10 offset=20, got %d %d", limit, offset)
			}
			return &usecase.ReconciliationReport{TotalUsers: 10, ReconciledUsers: 10, CheckedAt: time.Now()}, nil
		},
	}, nil)

	req := withActor(httptest.NewRequest(http.MethodGet, "/admin/reconciliation?limit=10&offset=20", nil), domain.Actor{UserID: "ops", IsAdmin: true})
	rec := httptest.NewRecorder()
	h.Report(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp dto.ReconciliationReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalUsers != 10 || len(resp.Discrepancies) != 0 {
		t.Fatalf("unexpected report: %+v", resp)
	}
}

type auditServiceStub struct {
	listFn func(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

func (s *auditServiceStub) List(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	return s.listFn(ctx, actor, filter)
}

func TestAdminHandler_AuditLogs(t *testing.T) {
	var got domain.AuditFilter
	h := NewAdminHandler(nil, &auditServiceStub{
		listFn: func(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
			got = filter
			return []*domain.AuditLog{{
				ID:           "aud-1",
				UserID:       "ops",
				Action:       string(domain.AuditActionEscrowRefund),
				ResourceType: "safesend_escrow",
				ResourceID:   "esc-1",
				AfterState:   domain.JSON{"status": "refunded"},
				Status:       string(domain.AuditStatusSuccess),
				CreatedAt:    time.Now(),
			}}, nil
		},
	})

	req := withActor(httptest.NewRequest(http.MethodGet, "/admin/audit?action=escrow.refund&resource_id=esc-1&limit=5", nil), domain.Actor{UserID: "ops", IsAdmin: true})
	rec := httptest.NewRecorder()
	h.AuditLogs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Action != "escrow.refund" || got.ResourceID != "esc-1" || got.Limit != 5 {
		t.Fatalf("unexpected filter: %+v", got)
	}

	var resp struct {
		AuditLogs []dto.AuditLogResponse `json:"audit_logs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.AuditLogs) != 1 || resp.AuditLogs[0].AfterState["status"] != "refunded" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAdminHandler_AuditLogsForbidden(t *testing.T) {
	h := NewAdminHandler(nil, &auditServiceStub{
		listFn: func(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
			return nil, domain.ErrAdminRequired
		},
	})

	req := withActor(httptest.NewRequest(http.MethodGet, "/admin/audit", nil), domain.Actor{UserID: "user-1"})
	rec := httptest.NewRecorder()
	h.AuditLogs(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	ok := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name     string
		postgres Pinger
		redis    Pinger
		want     int
	}{
		{name: "all healthy", postgres: ok, redis: ok, want: http.StatusOK},
		{name: "no redis configured", postgres: ok, redis: nil, want: http.StatusOK},
		{name: "postgres down", postgres: down, redis: ok, want: http.StatusServiceUnavailable},
		{name: "redis down", postgres: ok, redis: down, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.postgres, tt.redis)
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	NewHealthHandler(down, down).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("liveness should not depend on dependencies, got %d", rec.Code)
	}
}
