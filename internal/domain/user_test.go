package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestUser_CurrentBalance(t *testing.T) {
	t.Parallel()

	legacy := &User{ID: "u1"}
	if !legacy.CurrentBalance().Equal(DefaultBalance) {
		t.Fatalf("legacy balance = %s, want %s", legacy.CurrentBalance(), DefaultBalance)
	}

	u := &User{ID: "u2", Balance: decimal.NewNullDecimal(decimal.NewFromInt(120))}
	if !u.CurrentBalance().Equal(decimal.NewFromInt(120)) {
		t.Fatalf("balance = %s, want 120", u.CurrentBalance())
	}
}

func TestUser_ValidateDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		balance     int64
		delta       int64
		expectError bool
	}{
		{name: "debit less than balance", balance: 100, delta: -50},
		{name: "debit exact balance", balance: 100, delta: -100},
		{name: "debit more than balance", balance: 100, delta: -150, expectError: true},
		{name: "credit", balance: 0, delta: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{ID: "u1", Balance: decimal.NewNullDecimal(decimal.NewFromInt(tt.balance))}
			err := u.ValidateDelta(decimal.NewFromInt(tt.delta))
			if !tt.expectError {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var insufficient *InsufficientFundsError
			if !errors.As(err, &insufficient) {
				t.Fatalf("expected InsufficientFundsError, got %v", err)
			}
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Fatal("expected error to wrap ErrInsufficientFunds")
			}
			if !insufficient.Attempted.Equal(decimal.NewFromInt(-tt.delta)) ||
				!insufficient.Available.Equal(decimal.NewFromInt(tt.balance)) {
				t.Fatalf("unexpected amounts: %+v", insufficient)
			}
		})
	}
}

func TestActorContext(t *testing.T) {
	t.Parallel()

	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatal("expected no actor in empty context")
	}

	ctx := ContextWithActor(context.Background(), Actor{UserID: "u1", IsAdmin: false})
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID != "u1" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
	if err := actor.RequireAdmin(); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := (Actor{IsAdmin: true}).RequireAdmin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	roots := map[error]error{
		ErrLoanNotFound:              ErrNotFound,
		ErrMerchantMismatch:          ErrUnauthorized,
		ErrRepaymentExceedsRemaining: ErrInvalidInput,
		ErrActiveLoanExists:          ErrPolicyRejected,
		&DuplicateRequestError{}:     ErrInvalidInput,
	}
	for err, root := range roots {
		if !errors.Is(err, root) {
			t.Fatalf("%v does not wrap %v", err, root)
		}
	}
}
