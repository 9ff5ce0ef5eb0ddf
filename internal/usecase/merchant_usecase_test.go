package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

func TestMerchantUseCase_Create(t *testing.T) {
	tests := []struct {
		name    string
		actor   domain.Actor
		input   usecase.CreateMerchantInput
		wantErr error
	}{
		{
			name:  "admin registers merchant",
			actor: admin,
			input: usecase.CreateMerchantInput{Name: " Vidya Books ", Phone: "98123 45678", Category: "education", StateCode: "ka"},
		},
		{
			name:    "non-admin",
			actor:   sender,
			input:   usecase.CreateMerchantInput{Name: "Shop", Phone: "9812345678"},
			wantErr: domain.ErrAdminRequired,
		},
		{
			name:    "missing name",
			actor:   admin,
			input:   usecase.CreateMerchantInput{Phone: "9812345678"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "invalid phone",
			actor:   admin,
			input:   usecase.CreateMerchantInput{Name: "Shop", Phone: "12"},
			wantErr: domain.ErrInvalidPhone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			merchant, err := f.merchant.Create(context.Background(), tt.actor, tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if merchant.Name != "Vidya Books" || merchant.Phone != merchantPhone || merchant.StateCode != "KA" {
				t.Errorf("unexpected merchant: %+v", merchant)
			}
			if merchant.Verified {
				t.Error("new merchants must start unverified")
			}
			logs, _ := f.audit.List(context.Background(), domain.AuditFilter{Action: string(domain.AuditActionMerchantCreate)})
			if len(logs) != 1 {
				t.Errorf("expected one audit log, got %d", len(logs))
			}
		})
	}
}

func TestMerchantUseCase_CreateDuplicatePhone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := usecase.CreateMerchantInput{Name: "Vidya Books", Phone: merchantPhone}
	if _, err := f.merchant.Create(ctx, admin, in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := f.merchant.Create(ctx, admin, in); !errors.Is(err, domain.ErrMerchantExists) {
		t.Fatalf("expected ErrMerchantExists, got %v", err)
	}
}

func TestMerchantUseCase_Verify(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	merchant, err := f.merchant.Create(ctx, admin, usecase.CreateMerchantInput{Name: "Vidya Books", Phone: merchantPhone})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.merchant.Verify(ctx, sender, merchant.ID); !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}

	verified, err := f.merchant.Verify(ctx, admin, merchant.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.Verified {
		t.Error("expected merchant to be verified")
	}

	// Verifying again is a no-op.
	if _, err := f.merchant.Verify(ctx, admin, merchant.ID); err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if sms := f.outbox.Notifications(); len(sms) != 1 || sms[0].Recipient != merchantPhone {
		t.Errorf("expected one SMS to the merchant, got %+v", sms)
	}

	if _, err := f.merchant.Verify(ctx, admin, "nope"); !errors.Is(err, domain.ErrMerchantNotFound) {
		t.Errorf("expected ErrMerchantNotFound, got %v", err)
	}
}

func TestMerchantUseCase_List(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_ = f.merchants.Create(ctx, nil, &domain.Merchant{ID: "m1", Name: "A", Phone: "+919811111111", StateCode: "KA", Verified: true})
	_ = f.merchants.Create(ctx, nil, &domain.Merchant{ID: "m2", Name: "B", Phone: "+919822222222", StateCode: "KA"})
	_ = f.merchants.Create(ctx, nil, &domain.Merchant{ID: "m3", Name: "C", Phone: "+919833333333", StateCode: "MH", Verified: true})

	verified := true
	got, err := f.merchant.List(ctx, domain.MerchantFilter{StateCode: "ka", Verified: &verified})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("expected only m1, got %+v", got)
	}
}
