package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBalance is the balance of a user whose balance was never initialised.
var DefaultBalance = decimal.NewFromInt(5000)

// User is the owner of a custodial balance.
type User struct {
	ID             string
	Phone          string // E.164
	StateCode      string
	IsAdmin        bool
	Balance        decimal.NullDecimal
	OpeningBalance decimal.Decimal
	Version        int64
	HistorySeq     int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CurrentBalance returns the stored balance, or DefaultBalance for legacy rows.
func (u *User) CurrentBalance() decimal.Decimal {
	if !u.Balance.Valid {
		return DefaultBalance
	}
	return u.Balance.Decimal
}

// ValidateDelta checks that applying delta keeps the balance non-negative.
func (u *User) ValidateDelta(delta decimal.Decimal) error {
	current := u.CurrentBalance()
	if current.Add(delta).IsNegative() {
		return &InsufficientFundsError{
			UserID:    u.ID,
			Attempted: delta.Abs(),
			Available: current,
		}
	}
	return nil
}

// BalanceChange is the outcome of an applied balance delta.
type BalanceChange struct {
	Previous decimal.Decimal
	Current  decimal.Decimal
	Seq      int64 // history sequence assigned to this change
}

// Actor is the authenticated caller of a core operation.
type Actor struct {
	UserID  string
	Phone   string
	IsAdmin bool
}

// RequireAdmin returns ErrAdminRequired unless the actor is an admin.
func (a Actor) RequireAdmin() error {
	if !a.IsAdmin {
		return ErrAdminRequired
	}
	return nil
}

type actorKey struct{}

// ContextWithActor stores the actor in ctx.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
