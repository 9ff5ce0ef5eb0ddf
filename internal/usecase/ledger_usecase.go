package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/infrastructure/metrics"
)

// BalanceAdjuster mutates a balance inside an open scope.
type BalanceAdjuster interface {
	AdjustBalance(ctx context.Context, tx Transaction, in AdjustBalanceInput) (domain.BalanceChange, error)
}

// LedgerUseCase owns user balances and their bounded histories.
type LedgerUseCase struct {
	coordinator *Coordinator
	users       UserRepository
	txns        TransactionRepository
	events      eventWriter
	idGen       IDGenerator
	refresher   ScoreRefresher
	region      string
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// LedgerDeps wires a LedgerUseCase.
type LedgerDeps struct {
	Coordinator  *Coordinator
	Users        UserRepository
	Transactions TransactionRepository
	Outbox       OutboxRepository
	IDGen        IDGenerator
	Refresher    ScoreRefresher
	Region       string
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(d LedgerDeps) *LedgerUseCase {
	return &LedgerUseCase{
		coordinator: d.Coordinator,
		users:       d.Users,
		txns:        d.Transactions,
		events:      eventWriter{outbox: d.Outbox, idGen: d.IDGen},
		idGen:       d.IDGen,
		refresher:   d.Refresher,
		region:      d.Region,
		logger:      d.Logger,
		metrics:     d.Metrics,
	}
}

// AdjustBalanceInput describes one balance movement.
type AdjustBalanceInput struct {
	UserID string
	Delta  decimal.Decimal
	Meta   domain.BalanceMeta
	At     time.Time
}

// AdjustBalance applies delta to the user's balance and appends a history entry.
// Debits that would take the balance below zero fail with *domain.InsufficientFundsError
// before anything is written, and an overdraft event is recorded in its own scope.
func (uc *LedgerUseCase) AdjustBalance(ctx context.Context, tx Transaction, in AdjustBalanceInput) (domain.BalanceChange, error) {
	if in.Delta.IsZero() {
		return domain.BalanceChange{}, domain.ErrInvalidAmount
	}
	if in.At.IsZero() {
		in.At = time.Now().UTC()
	}

	user, err := uc.users.GetByIDTx(ctx, tx, in.UserID)
	if err != nil {
		return domain.BalanceChange{}, err
	}

	if err := user.ValidateDelta(in.Delta); err != nil {
		uc.overdraftFrom(ctx, err)
		return domain.BalanceChange{}, err
	}

	// The conditional update re-checks the floor, so a concurrent debit that
	// slipped past the read above still cannot overdraw.
	change, err := uc.users.ApplyBalanceDelta(ctx, tx, in.UserID, in.Delta, in.At)
	if err != nil {
		uc.overdraftFrom(ctx, err)
		return domain.BalanceChange{}, err
	}

	entry := domain.NewHistoryEntry(change.Seq, in.At, in.Delta, change.Current, in.Meta)
	if err := uc.users.AppendHistory(ctx, tx, in.UserID, entry); err != nil {
		return domain.BalanceChange{}, fmt.Errorf("append history: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.BalanceAdjustments.WithLabelValues(string(entry.Direction), string(in.Meta.TransactionType)).Inc()
		uc.metrics.BalanceAmount.Observe(entry.Amount.InexactFloat64())
	}

	return change, nil
}

func (uc *LedgerUseCase) overdraftFrom(ctx context.Context, err error) {
	var insufficient *domain.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		return
	}
	// The failing scope is about to roll back; the overdraft must outlive it.
	if rerr := uc.RecordOverdraft(context.WithoutCancel(ctx), insufficient.UserID, insufficient.Attempted, insufficient.Available); rerr != nil {
		uc.logger.Error().
			Err(rerr).
			Str("user_id", insufficient.UserID).
			Str("attempted", insufficient.Attempted.String()).
			Msg("failed to record overdraft")
	}
}

// RecordOverdraft appends an overdraft event to the user's bounded overdraft history.
func (uc *LedgerUseCase) RecordOverdraft(ctx context.Context, userID string, attempted, available decimal.Decimal) error {
	now := time.Now().UTC()
	err := uc.coordinator.Run(ctx, func(ctx context.Context, tx Transaction) error {
		event := domain.OverdraftEvent{
			OccurredAt:       now,
			AttemptedAmount:  attempted,
			AvailableBalance: available,
		}
		if err := uc.users.AppendOverdraft(ctx, tx, userID, event); err != nil {
			return err
		}
		return uc.events.emit(ctx, tx, domain.AggregateTypeUser, userID, domain.EventTypeOverdraftRecorded, map[string]any{
			"user_id":           userID,
			"attempted_amount":  attempted.String(),
			"available_balance": available.String(),
		})
	}, WithScopeName("record_overdraft"))
	if err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.Overdrafts.Inc()
	}
	return nil
}

// ClassifyRiskLevel tags an amount with its risk tier.
func (uc *LedgerUseCase) ClassifyRiskLevel(amount decimal.Decimal) domain.RiskLevel {
	return domain.ClassifyRiskLevel(amount)
}

// RemitInput represents input for sending a remittance.
type RemitInput struct {
	Amount       decimal.Decimal
	Counterparty string
	Description  string
	RequestID    string
}

// RemitResult is a completed remittance.
type RemitResult struct {
	Transaction *domain.Transaction
	Balance     decimal.Decimal
}

// Remit debits the actor and records a remit transaction.
func (uc *LedgerUseCase) Remit(ctx context.Context, actor domain.Actor, in RemitInput) (*RemitResult, error) {
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	counterparty, err := domain.NormalizeCounterparty(in.Counterparty, uc.region)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(in.Description); err != nil {
		return nil, err
	}

	result, err := RunInScope(ctx, uc.coordinator, func(ctx context.Context, tx Transaction) (*RemitResult, error) {
		if err := checkDuplicate(ctx, uc.txns, tx, actor.UserID, in.RequestID); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		txn := &domain.Transaction{
			ID:           uc.idGen.Generate(),
			UserID:       actor.UserID,
			Type:         domain.TransactionTypeRemit,
			Amount:       in.Amount,
			Counterparty: counterparty,
			Status:       domain.TransactionStatusSuccess,
			RequestID:    in.RequestID,
			CreatedAt:    now,
		}

		change, err := uc.AdjustBalance(ctx, tx, AdjustBalanceInput{
			UserID: actor.UserID,
			Delta:  in.Amount.Neg(),
			At:     now,
			Meta: domain.BalanceMeta{
				TransactionType: txn.Type,
				TransactionID:   txn.ID,
				Counterparty:    counterparty,
				Description:     in.Description,
			},
		})
		if err != nil {
			return nil, err
		}

		if err := uc.txns.Create(ctx, tx, txn); err != nil {
			return nil, err
		}

		if err := uc.events.emit(ctx, tx, domain.AggregateTypeTransaction, txn.ID, domain.EventTypeRemitCompleted, map[string]any{
			"transaction_id": txn.ID,
			"user_id":        actor.UserID,
			"amount":         txn.Amount.String(),
			"counterparty":   counterparty,
		}); err != nil {
			return nil, err
		}

		phone := recipientPhone(ctx, uc.users, tx, actor.UserID, actor.Phone)
		msg := fmt.Sprintf("Sarathi: sent Rs %s to %s. Balance Rs %s. Ref %s",
			txn.Amount.StringFixed(2), counterparty, change.Current.StringFixed(2), txn.ID)
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeTransaction, txn.ID, phone, msg); err != nil {
			return nil, err
		}

		return &RemitResult{Transaction: txn, Balance: change.Current}, nil
	}, WithLockKeys(userLockKey(actor.UserID)), WithScopeName("remit"))
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Remittances.Inc()
	}
	uc.refresh(ctx, actor.UserID)

	return result, nil
}

// AccountView is a user's balance with both bounded histories.
type AccountView struct {
	User       *domain.User
	Balance    decimal.Decimal
	History    []domain.HistoryEntry
	Overdrafts []domain.OverdraftEvent
}

// GetAccount returns the actor's balance and histories, newest entry last.
func (uc *LedgerUseCase) GetAccount(ctx context.Context, actor domain.Actor) (*AccountView, error) {
	user, err := uc.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	history, err := uc.users.ListHistory(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	overdrafts, err := uc.users.ListOverdrafts(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	return &AccountView{
		User:       user,
		Balance:    user.CurrentBalance(),
		History:    history,
		Overdrafts: overdrafts,
	}, nil
}

// ListTransactions returns the actor's transactions, newest first.
func (uc *LedgerUseCase) ListTransactions(ctx context.Context, actor domain.Actor, page, limit int) (domain.Page[*domain.Transaction], error) {
	limit, offset := domain.ValidatePagination(page, limit)

	txns, total, err := uc.txns.ListByUser(ctx, actor.UserID, limit, offset)
	if err != nil {
		return domain.Page[*domain.Transaction]{}, err
	}

	return domain.NewPage(txns, total, limit, offset), nil
}

func (uc *LedgerUseCase) refresh(ctx context.Context, userID string) {
	if uc.refresher != nil {
		uc.refresher.Refresh(ctx, userID)
	}
}

// checkDuplicate fails when requestID was already used by userID.
func checkDuplicate(ctx context.Context, txns TransactionRepository, tx Transaction, userID, requestID string) error {
	if requestID == "" {
		return nil
	}

	existing, err := txns.GetByRequestID(ctx, tx, userID, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil
		}
		return err
	}

	return &domain.DuplicateRequestError{RequestID: requestID, TransactionID: existing.ID}
}
