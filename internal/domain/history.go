package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// HistoryCap bounds the per-user balance history.
	HistoryCap = 200
	// OverdraftCap bounds the per-user overdraft history.
	OverdraftCap = 100
)

// RiskLevel tags a balance movement by size.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var (
	lowRiskCeiling    = decimal.NewFromInt(5000)
	mediumRiskCeiling = decimal.NewFromInt(20000)
)

// ClassifyRiskLevel maps an amount to a risk tier.
func ClassifyRiskLevel(amount decimal.Decimal) RiskLevel {
	amount = amount.Abs()
	switch {
	case amount.LessThanOrEqual(lowRiskCeiling):
		return RiskLow
	case amount.LessThanOrEqual(mediumRiskCeiling):
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Direction of a balance movement.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// HistoryEntry is one immutable record of a balance movement.
type HistoryEntry struct {
	Seq             int64
	OccurredAt      time.Time
	Amount          decimal.Decimal // always |delta|
	Direction       Direction
	TransactionType TransactionType
	Counterparty    string
	Description     string
	BalanceAfter    decimal.Decimal
	TransactionID   string
	RiskLevel       RiskLevel
}

// NewHistoryEntry builds the entry for an applied delta.
func NewHistoryEntry(seq int64, at time.Time, delta decimal.Decimal, balanceAfter decimal.Decimal, meta BalanceMeta) HistoryEntry {
	direction := DirectionCredit
	if delta.IsNegative() {
		direction = DirectionDebit
	}
	return HistoryEntry{
		Seq:             seq,
		OccurredAt:      at,
		Amount:          delta.Abs(),
		Direction:       direction,
		TransactionType: meta.TransactionType,
		Counterparty:    meta.Counterparty,
		Description:     meta.Description,
		BalanceAfter:    balanceAfter,
		TransactionID:   meta.TransactionID,
		RiskLevel:       ClassifyRiskLevel(delta),
	}
}

// BalanceMeta describes why a balance changes.
type BalanceMeta struct {
	TransactionType TransactionType
	TransactionID   string
	Counterparty    string
	Description     string
}

// OverdraftEvent records a refused debit.
type OverdraftEvent struct {
	Seq              int64
	OccurredAt       time.Time
	AttemptedAmount  decimal.Decimal
	AvailableBalance decimal.Decimal
}

// RingSlot maps a monotonically increasing sequence onto a fixed-capacity slot.
func RingSlot(seq int64, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	slot := seq % int64(capacity)
	if slot < 0 {
		slot += int64(capacity)
	}
	return int(slot)
}

// Ring is a fixed-capacity buffer that evicts its oldest element on overflow.
type Ring[T any] struct {
	items []T
	start int
	size  int
}

// NewRing creates a ring holding at most capacity items.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest item when full.
func (r *Ring[T]) Push(v T) {
	capacity := len(r.items)
	if r.size < capacity {
		r.items[(r.start+r.size)%capacity] = v
		r.size++
		return
	}
	r.items[r.start] = v
	r.start = (r.start + 1) % capacity
}

// Len returns the number of stored items.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.items) }

// Items returns the stored items oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(r.start+i)%len(r.items)])
	}
	return out
}
