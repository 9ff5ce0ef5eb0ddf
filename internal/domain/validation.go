package domain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// Validation constants
const (
	MaxAmount          = "10000000" // one crore
	MaxDescriptionSize = 500
	MaxPageSize        = 100
	DefaultPageSize    = 20
)

var maxAmount = decimal.RequireFromString(MaxAmount)

// ValidateAmount checks that a money amount is positive and within bounds.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidInput, MaxAmount)
	}
	if amount.Exponent() < -2 {
		return fmt.Errorf("%w: at most two decimal places", ErrInvalidInput)
	}
	return nil
}

// NormalizePhone parses raw in region and returns its E.164 form.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}
	num, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

// NormalizeCounterparty returns the E.164 form when raw is a phone number,
// otherwise the trimmed identifier.
func NormalizeCounterparty(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingCounterparty
	}
	if phone, err := NormalizePhone(raw, region); err == nil {
		return phone, nil
	}
	return raw, nil
}

// ValidateProofURL accepts absolute http(s) URLs only.
func ValidateProofURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidProofURL
	}
	return nil
}

// ValidateDescription bounds free text.
func ValidateDescription(s string) error {
	if len(s) > MaxDescriptionSize {
		return fmt.Errorf("%w: description exceeds %d bytes", ErrInvalidInput, MaxDescriptionSize)
	}
	return nil
}

// ValidatePagination converts a 1-based page into limit/offset.
func ValidatePagination(page, limit int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Limit int
}

// NewPage builds a page from a limit/offset query result.
func NewPage[T any](items []T, total, limit, offset int) Page[T] {
	if items == nil {
		items = []T{}
	}
	page := 1
	if limit > 0 {
		page = offset/limit + 1
	}
	return Page[T]{Items: items, Total: total, Page: page, Limit: limit}
}

// Pages returns the number of pages.
func (p Page[T]) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}
