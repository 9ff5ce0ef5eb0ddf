package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{name: "positive", amount: "2500"},
		{name: "two decimals", amount: "10.25"},
		{name: "zero", amount: "0", wantErr: true},
		{name: "negative", amount: "-1", wantErr: true},
		{name: "too many decimals", amount: "1.001", wantErr: true},
		{name: "above maximum", amount: "10000000.01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	t.Run("national number in default region", func(t *testing.T) {
		got, err := NormalizePhone("98765 43210", "IN")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "+919876543210" {
			t.Fatalf("got %q, want +919876543210", got)
		}
	})

	t.Run("already international", func(t *testing.T) {
		got, err := NormalizePhone("+91 98765-43210", "US")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "+919876543210" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := NormalizePhone("not-a-phone", "IN"); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("expected ErrInvalidPhone, got %v", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := NormalizePhone("  ", "IN"); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("expected ErrInvalidPhone, got %v", err)
		}
	})
}

func TestNormalizeCounterparty(t *testing.T) {
	t.Parallel()

	got, err := NormalizeCounterparty("9876543210", "IN")
	if err != nil || got != "+919876543210" {
		t.Fatalf("got %q, %v", got, err)
	}

	got, err = NormalizeCounterparty("  Mother  ", "IN")
	if err != nil || got != "Mother" {
		t.Fatalf("got %q, %v", got, err)
	}

	if _, err := NormalizeCounterparty("", "IN"); !errors.Is(err, ErrMissingCounterparty) {
		t.Fatalf("expected ErrMissingCounterparty, got %v", err)
	}
}

func TestValidateProofURL(t *testing.T) {
	t.Parallel()

	valid := []string{"https://cdn.example.com/receipt.jpg", "http://example.com/x"}
	for _, u := range valid {
		if err := ValidateProofURL(u); err != nil {
			t.Fatalf("%q: unexpected error %v", u, err)
		}
	}

	invalid := []string{"", "ftp://example.com/a", "/relative/path", "https://"}
	for _, u := range invalid {
		if err := ValidateProofURL(u); !errors.Is(err, ErrInvalidProofURL) {
			t.Fatalf("%q: expected ErrInvalidProofURL, got %v", u, err)
		}
	}
}

func TestValidateDescription(t *testing.T) {
	t.Parallel()

	if err := ValidateDescription("school fees"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateDescription(strings.Repeat("x", MaxDescriptionSize+1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, limit           int
		wantLimit, wantOffset int
	}{
		{0, 0, DefaultPageSize, 0},
		{2, 10, 10, 10},
		{1, 1000, MaxPageSize, 0},
		{-3, 5, 5, 0},
	}
	for _, tt := range tests {
		limit, offset := ValidatePagination(tt.page, tt.limit)
		if limit != tt.wantLimit || offset != tt.wantOffset {
			t.Fatalf("ValidatePagination(%d, %d) = %d, %d; want %d, %d",
				tt.page, tt.limit, limit, offset, tt.wantLimit, tt.wantOffset)
		}
	}

	p := NewPage([]int{1, 2}, 25, 10, 10)
	if p.Page != 2 || p.Pages() != 3 {
		t.Fatalf("page = %d pages = %d, want 2 and 3", p.Page, p.Pages())
	}
}
