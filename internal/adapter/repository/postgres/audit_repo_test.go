package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/sarathi/internal/domain"
)

func TestAuditRepository_CreateTx(t *testing.T) {
	mockPool := newMockPool(t)

	mockPool.ExpectExec("INSERT INTO audit_logs").
		WithArgs("aud-1", "admin-1", "escrow.refund", "safesend_escrow", "esc-1", "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), "success", "", fixedTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewAuditRepository(mockPool)
	err := repo.CreateTx(context.Background(), nil, &domain.AuditLog{
		ID:           "aud-1",
		UserID:       "admin-1",
		Action:       string(domain.AuditActionEscrowRefund),
		ResourceType: "safesend_escrow",
		ResourceID:   "esc-1",
		BeforeState:  domain.JSON{"status": "awaiting_proof"},
		AfterState:   domain.JSON{"status": "refunded"},
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    fixedTime,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assertExpectations(t, mockPool)
}

func TestAuditRepository_ListFilters(t *testing.T) {
	mockPool := newMockPool(t)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "action", "resource_type", "resource_id", "request_id",
		"before_state", "after_state", "status", "error_message", "created_at",
	}).AddRow(
		"aud-1", "admin-1", "escrow.refund", "safesend_escrow", "esc-1", "",
		[]byte(`{"status":"awaiting_proof"}`), []byte(`{"status":"refunded"}`), "success", "", fixedTime,
	)

	mockPool.ExpectQuery(`FROM audit_logs\s+WHERE 1=1\s+AND action = \$1\s+AND resource_id = \$2\s+ORDER BY created_at DESC\s+LIMIT \$3\s+OFFSET \$4`).
		WithArgs("escrow.refund", "esc-1", 10, 5).
		WillReturnRows(rows)

	repo := NewAuditRepository(mockPool)
	logs, err := repo.List(context.Background(), domain.AuditFilter{
		Action:     "escrow.refund",
		ResourceID: "esc-1",
		Limit:      10,
		Offset:     5,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].BeforeState["status"] != "awaiting_proof" || logs[0].AfterState["status"] != "refunded" {
		t.Fatalf("unexpected states: %+v / %+v", logs[0].BeforeState, logs[0].AfterState)
	}
	assertExpectations(t, mockPool)
}
