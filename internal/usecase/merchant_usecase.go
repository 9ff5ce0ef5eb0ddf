package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/infrastructure/metrics"
)

// MerchantUseCase manages SafeSend merchants.
type MerchantUseCase struct {
	coordinator *Coordinator
	merchants   MerchantRepository
	events      eventWriter
	audit       auditWriter
	idGen       IDGenerator
	region      string
}

// NewMerchantUseCase creates a new MerchantUseCase.
func NewMerchantUseCase(
	coordinator *Coordinator,
	merchants MerchantRepository,
	outbox OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	region string,
	m *metrics.Metrics,
) *MerchantUseCase {
	return &MerchantUseCase{
		coordinator: coordinator,
		merchants:   merchants,
		events:      eventWriter{outbox: outbox, idGen: idGen},
		audit:       auditWriter{repo: auditRepo, idGen: idGen, metrics: m},
		idGen:       idGen,
		region:      region,
	}
}

// CreateMerchantInput represents input for registering a merchant.
type CreateMerchantInput struct {
	Name      string
	Phone     string
	Category  string
	StateCode string
}

// Create registers an unverified merchant. Admin only.
func (uc *MerchantUseCase) Create(ctx context.Context, actor domain.Actor, in CreateMerchantInput) (*domain.Merchant, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: merchant name is required", domain.ErrInvalidInput)
	}
	phone, err := domain.NormalizePhone(in.Phone, uc.region)
	if err != nil {
		return nil, err
	}

	if _, err := uc.merchants.GetByPhone(ctx, phone); err == nil {
		return nil, domain.ErrMerchantExists
	} else if !errors.Is(err, domain.ErrMerchantNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	merchant := &domain.Merchant{
		ID:        uc.idGen.Generate(),
		Name:      name,
		Phone:     phone,
		Category:  strings.TrimSpace(in.Category),
		StateCode: strings.ToUpper(strings.TrimSpace(in.StateCode)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = uc.coordinator.Run(ctx, func(ctx context.Context, tx Transaction) error {
		if err := uc.merchants.Create(ctx, tx, merchant); err != nil {
			return err
		}
		return uc.audit.record(ctx, tx, actor, domain.AuditActionMerchantCreate, domain.AggregateTypeMerchant, merchant.ID, nil, merchant)
	}, WithScopeName("merchant_create"))
	if err != nil {
		return nil, err
	}

	return merchant, nil
}

// Verify marks a merchant as verified and notifies them. Admin only.
func (uc *MerchantUseCase) Verify(ctx context.Context, actor domain.Actor, merchantID string) (*domain.Merchant, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	return RunInScope(ctx, uc.coordinator, func(ctx context.Context, tx Transaction) (*domain.Merchant, error) {
		merchant, err := uc.merchants.GetByID(ctx, tx, merchantID)
		if err != nil {
			return nil, err
		}
		if merchant.Verified {
			return merchant, nil
		}
		before := *merchant

		now := time.Now().UTC()
		if err := uc.merchants.SetVerified(ctx, tx, merchant.ID, true, now); err != nil {
			return nil, err
		}
		merchant.Verified = true
		merchant.UpdatedAt = now

		if err := uc.audit.record(ctx, tx, actor, domain.AuditActionMerchantVerify, domain.AggregateTypeMerchant, merchant.ID, before, merchant); err != nil {
			return nil, err
		}
		if err := uc.events.emit(ctx, tx, domain.AggregateTypeMerchant, merchant.ID, domain.EventTypeMerchantVerified, map[string]any{
			"merchant_id": merchant.ID,
			"phone":       merchant.Phone,
		}); err != nil {
			return nil, err
		}

		msg := fmt.Sprintf("Sarathi: %s is now a verified SafeSend merchant.", merchant.Name)
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeMerchant, merchant.ID, merchant.Phone, msg); err != nil {
			return nil, err
		}

		return merchant, nil
	}, WithScopeName("merchant_verify"))
}

// List returns merchants matching filter.
func (uc *MerchantUseCase) List(ctx context.Context, filter domain.MerchantFilter) ([]*domain.Merchant, error) {
	filter.StateCode = strings.ToUpper(strings.TrimSpace(filter.StateCode))
	filter.Limit, _ = domain.ValidatePagination(1, filter.Limit)
	return uc.merchants.List(ctx, filter)
}
