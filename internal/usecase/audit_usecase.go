package usecase

import (
	"context"

	"github.com/iho/sarathi/internal/domain"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditUseCase reads the privileged-action trail written by the loan,
// merchant and escrow flows.
type AuditUseCase struct {
	audit AuditRepository
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(audit AuditRepository) *AuditUseCase {
	return &AuditUseCase{audit: audit}
}

// List returns matching audit entries, newest first. Admin only.
func (uc *AuditUseCase) List(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}
	if filter.Limit > maxAuditLimit {
		filter.Limit = maxAuditLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return uc.audit.List(ctx, filter)
}
