package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/infrastructure/metrics"
)

// EscrowUseCase drives the SafeSend escrow state machine.
type EscrowUseCase struct {
	coordinator *Coordinator
	users       UserRepository
	merchants   MerchantRepository
	escrows     EscrowRepository
	proofs      ProofRepository
	txns        TransactionRepository
	ledger      BalanceAdjuster
	events      eventWriter
	audit       auditWriter
	idGen       IDGenerator
	refresher   ScoreRefresher
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// EscrowDeps wires an EscrowUseCase.
type EscrowDeps struct {
	Coordinator  *Coordinator
	Users        UserRepository
	Merchants    MerchantRepository
	Escrows      EscrowRepository
	Proofs       ProofRepository
	Transactions TransactionRepository
	Ledger       BalanceAdjuster
	Outbox       OutboxRepository
	Audit        AuditRepository
	IDGen        IDGenerator
	Refresher    ScoreRefresher
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
}

// NewEscrowUseCase creates a new EscrowUseCase.
func NewEscrowUseCase(d EscrowDeps) *EscrowUseCase {
	return &EscrowUseCase{
		coordinator: d.Coordinator,
		users:       d.Users,
		merchants:   d.Merchants,
		escrows:     d.Escrows,
		proofs:      d.Proofs,
		txns:        d.Transactions,
		ledger:      d.Ledger,
		events:      eventWriter{outbox: d.Outbox, idGen: d.IDGen},
		audit:       auditWriter{repo: d.Audit, idGen: d.IDGen, metrics: d.Metrics},
		idGen:       d.IDGen,
		refresher:   d.Refresher,
		logger:      d.Logger,
		metrics:     d.Metrics,
	}
}

// CreateEscrowInput represents input for funding an escrow.
type CreateEscrowInput struct {
	MerchantID string
	Amount     decimal.Decimal
	Goal       domain.EscrowGoal
	LockReason string
	RequestID  string
}

// Create debits the sender and holds the funds for a verified merchant.
func (uc *EscrowUseCase) Create(ctx context.Context, actor domain.Actor, in CreateEscrowInput) (*domain.Escrow, error) {
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.Goal == "" {
		in.Goal = domain.GoalOther
	}
	if !in.Goal.IsValid() {
		return nil, domain.ErrInvalidGoal
	}
	if err := domain.ValidateDescription(in.LockReason); err != nil {
		return nil, err
	}

	escrow, err := RunInScope(ctx, uc.coordinator, func(ctx context.Context, tx Transaction) (*domain.Escrow, error) {
		if err := checkDuplicate(ctx, uc.txns, tx, actor.UserID, in.RequestID); err != nil {
			return nil, err
		}

		merchant, err := uc.merchants.GetByID(ctx, tx, in.MerchantID)
		if err != nil {
			return nil, err
		}
		if !merchant.Verified {
			return nil, domain.ErrMerchantNotVerified
		}

		now := time.Now().UTC()
		escrow := &domain.Escrow{
			ID:         uc.idGen.Generate(),
			SenderID:   actor.UserID,
			MerchantID: merchant.ID,
			Amount:     in.Amount,
			Goal:       in.Goal,
			Status:     domain.EscrowStatusPending,
			LockReason: in.LockReason,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		txn := &domain.Transaction{
			ID:           uc.idGen.Generate(),
			UserID:       actor.UserID,
			Type:         domain.TransactionTypeSafeSendEscrow,
			Amount:       in.Amount,
			Counterparty: merchant.Phone,
			Status:       domain.TransactionStatusSuccess,
			ReferenceID:  escrow.ID,
			RequestID:    in.RequestID,
			CreatedAt:    now,
		}
		escrow.TransactionID = txn.ID

		change, err := uc.ledger.AdjustBalance(ctx, tx, AdjustBalanceInput{
			UserID: actor.UserID,
			Delta:  in.Amount.Neg(),
			At:     now,
			Meta: domain.BalanceMeta{
				TransactionType: txn.Type,
				TransactionID:   txn.ID,
				Counterparty:    merchant.Phone,
				Description:     fmt.Sprintf("SafeSend to %s (%s)", merchant.Name, in.Goal),
			},
		})
		if err != nil {
			return nil, err
		}
		if err := uc.txns.Create(ctx, tx, txn); err != nil {
			return nil, err
		}

		if err := escrow.Transition(domain.EscrowStatusAwaitingProof, now); err != nil {
			return nil, err
		}
		if err := uc.escrows.Create(ctx, tx, escrow); err != nil {
			return nil, err
		}

		if err := uc.events.emit(ctx, tx, domain.AggregateTypeEscrow, escrow.ID, domain.EventTypeEscrowCreated, escrowPayload(escrow)); err != nil {
			return nil, err
		}

		sender := recipientPhone(ctx, uc.users, tx, actor.UserID, actor.Phone)
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeEscrow, escrow.ID, sender,
			fmt.Sprintf("Sarathi: Rs %s held in SafeSend for %s. Balance Rs %s. Ref %s",
				in.Amount.StringFixed(2), merchant.Name, change.Current.StringFixed(2), escrow.ID)); err != nil {
			return nil, err
		}
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeEscrow, escrow.ID, merchant.Phone,
			fmt.Sprintf("Sarathi: a SafeSend payment of Rs %s (%s) awaits your proof of purchase. Ref %s",
				in.Amount.StringFixed(2), in.Goal, escrow.ID)); err != nil {
			return nil, err
		}

		return escrow, nil
	}, WithLockKeys(userLockKey(actor.UserID)), WithScopeName("escrow_create"))
	if err != nil {
		return nil, err
	}

	uc.transitioned(escrow.Status)
	uc.refresh(ctx, actor.UserID)

	return escrow, nil
}

// SubmitProofInput represents a merchant's proof of purchase.
type SubmitProofInput struct {
	EscrowID    string
	ProofURL    string
	Description string
}

// SubmitProof records a proof from the escrow's own merchant and moves the escrow under review.
func (uc *EscrowUseCase) SubmitProof(ctx context.Context, actor domain.Actor, in SubmitProofInput) (*domain.Proof, error) {
	proofURL := strings.TrimSpace(in.ProofURL)
	if err := domain.ValidateProofURL(proofURL); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(in.Description); err != nil {
		return nil, err
	}

	merchant, err := uc.actingMerchant(ctx, actor)
	if err != nil {
		return nil, err
	}

	proof, err := RunInScope(ctx, uc.coordinator, func(ctx context.Context, tx Transaction) (*domain.Proof, error) {
		escrow, err := uc.escrows.GetByIDForUpdate(ctx, tx, in.EscrowID)
		if err != nil {
			return nil, err
		}
		if escrow.MerchantID != merchant.ID {
			return nil, domain.ErrMerchantMismatch
		}

		now := time.Now().UTC()
		if err := escrow.Transition(domain.EscrowStatusUnderReview, now); err != nil {
			return nil, err
		}

		proof := &domain.Proof{
			ID:          uc.idGen.Generate(),
			EscrowID:    escrow.ID,
			MerchantID:  merchant.ID,
			ProofURL:    proofURL,
			Description: in.Description,
			Status:      domain.ProofStatusPending,
			CreatedAt:   now,
		}
		if err := uc.proofs.Create(ctx, tx, proof); err != nil {
			return nil, err
		}
		if err := uc.escrows.Update(ctx, tx, escrow); err != nil {
			return nil, err
		}

		if err := uc.events.emit(ctx, tx, domain.AggregateTypeProof, proof.ID, domain.EventTypeProofSubmitted, map[string]any{
			"proof_id":    proof.ID,
			"escrow_id":   escrow.ID,
			"merchant_id": merchant.ID,
		}); err != nil {
			return nil, err
		}

		sender := recipientPhone(ctx, uc.users, tx, escrow.SenderID, "")
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeEscrow, escrow.ID, sender,
			fmt.Sprintf("Sarathi: %s submitted proof for your SafeSend of Rs %s. It is under review.",
				merchant.Name, escrow.Amount.StringFixed(2))); err != nil {
			return nil, err
		}

		return proof, nil
	}, WithLockKeys(escrowLockKey(in.EscrowID)), WithScopeName("escrow_submit_proof"))
	if err != nil {
		return nil, err
	}

	uc.transitioned(domain.EscrowStatusUnderReview)
	return proof, nil
}

// ReviewProofInput represents a reviewer's verdict.
type ReviewProofInput struct {
	ProofID  string
	Approved bool
	Reason   string
}

// ReviewResult is a reviewed proof and its escrow.
type ReviewResult struct {
	Proof  *domain.Proof
	Escrow *domain.Escrow
}

// ReviewProof approves (releasing the escrow) or rejects (reopening it for proof) a pending proof. Admin only.
func (uc *EscrowUseCase) ReviewProof(ctx context.Context, actor domain.Actor, in ReviewProofInput) (*ReviewResult, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if err := domain.ValidateDescription(reason); err != nil {
		return nil, err
	}

	// A proof never changes escrow, so the escrow lock can be named up front.
	target, err := uc.proofs.GetByID(ctx, in.ProofID)
	if err != nil {
		return nil, err
	}

	result, err := RunInScope(ctx, uc.coordinator, func(ctx context.Context, tx Transaction) (*ReviewResult, error) {
		// Escrow before proof, the same order Refund takes them.
		escrow, err := uc.escrows.GetByIDForUpdate(ctx, tx, target.EscrowID)
		if err != nil {
			return nil, err
		}
		proof, err := uc.proofs.GetByIDForUpdate(ctx, tx, in.ProofID)
		if err != nil {
			return nil, err
		}
		proofBefore := *proof

		now := time.Now().UTC()
		if err := proof.Review(actor.UserID, in.Approved, reason, now); err != nil {
			return nil, err
		}

		merchant, err := uc.merchants.GetByID(ctx, tx, escrow.MerchantID)
		if err != nil {
			return nil, err
		}

		next := domain.EscrowStatusAwaitingProof
		if in.Approved {
			next = domain.EscrowStatusReleased
		}
		if err := escrow.Transition(next, now); err != nil {
			return nil, err
		}

		if in.Approved {
			// Funds left the sender at creation; the release record is for audit only.
			release := &domain.Transaction{
				ID:           uc.idGen.Generate(),
				UserID:       escrow.SenderID,
				Type:         domain.TransactionTypeSafeSendRelease,
				Amount:       escrow.Amount,
				Counterparty: merchant.Phone,
				Status:       domain.TransactionStatusSuccess,
				ReferenceID:  escrow.ID,
				CreatedAt:    now,
			}
			if err := uc.txns.Create(ctx, tx, release); err != nil {
				return nil, err
			}
		}

		if err := uc.proofs.Update(ctx, tx, proof); err != nil {
			return nil, err
		}
		if err := uc.escrows.Update(ctx, tx, escrow); err != nil {
			return nil, err
		}

		if err := uc.audit.record(ctx, tx, actor, domain.AuditActionProofReview, domain.AggregateTypeProof, proof.ID, proofBefore, proof); err != nil {
			return nil, err
		}

		eventType := domain.EventTypeProofRejected
		senderMsg := fmt.Sprintf("Sarathi: proof from %s for your SafeSend of Rs %s was rejected. Funds stay locked until a valid proof is approved.",
			merchant.Name, escrow.Amount.StringFixed(2))
		merchantMsg := fmt.Sprintf("Sarathi: your proof for SafeSend %s was rejected: %s. Please resubmit.", escrow.ID, reason)
		if in.Approved {
			eventType = domain.EventTypeEscrowReleased
			senderMsg = fmt.Sprintf("Sarathi: your SafeSend of Rs %s to %s has been released.", escrow.Amount.StringFixed(2), merchant.Name)
			merchantMsg = fmt.Sprintf("Sarathi: SafeSend %s of Rs %s has been released to you.", escrow.ID, escrow.Amount.StringFixed(2))
		}

		if err := uc.events.emit(ctx, tx, domain.AggregateTypeEscrow, escrow.ID, eventType, map[string]any{
			"escrow_id": escrow.ID,
			"proof_id":  proof.ID,
			"approved":  in.Approved,
			"reason":    reason,
		}); err != nil {
			return nil, err
		}

		sender := recipientPhone(ctx, uc.users, tx, escrow.SenderID, "")
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeEscrow, escrow.ID, sender, senderMsg); err != nil {
			return nil, err
		}
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeEscrow, escrow.ID, merchant.Phone, merchantMsg); err != nil {
			return nil, err
		}

		return &ReviewResult{Proof: proof, Escrow: escrow}, nil
	}, WithLockKeys(escrowLockKey(target.EscrowID), "proof:"+in.ProofID), WithScopeName("escrow_review_proof"))
	if err != nil {
		return nil, err
	}

	uc.transitioned(result.Escrow.Status)
	return result, nil
}

// Refund returns the escrowed amount to the sender. Admin only; not allowed once released.
func (uc *EscrowUseCase) Refund(ctx context.Context, actor domain.Actor, escrowID string) (*domain.Escrow, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	escrow, err := RunInScope(ctx, uc.coordinator, func(ctx context.Context, tx Transaction) (*domain.Escrow, error) {
		escrow, err := uc.escrows.GetByIDForUpdate(ctx, tx, escrowID)
		if err != nil {
			return nil, err
		}
		before := *escrow

		now := time.Now().UTC()
		if err := escrow.Transition(domain.EscrowStatusRefunded, now); err != nil {
			return nil, err
		}

		refund := &domain.Transaction{
			ID:          uc.idGen.Generate(),
			UserID:      escrow.SenderID,
			Type:        domain.TransactionTypeSafeSendRefund,
			Amount:      escrow.Amount,
			Status:      domain.TransactionStatusSuccess,
			ReferenceID: escrow.ID,
			CreatedAt:   now,
		}
		change, err := uc.ledger.AdjustBalance(ctx, tx, AdjustBalanceInput{
			UserID: escrow.SenderID,
			Delta:  escrow.Amount,
			At:     now,
			Meta: domain.BalanceMeta{
				TransactionType: refund.Type,
				TransactionID:   refund.ID,
				Description:     "SafeSend refund",
			},
		})
		if err != nil {
			return nil, err
		}
		if err := uc.txns.Create(ctx, tx, refund); err != nil {
			return nil, err
		}
		if err := uc.escrows.Update(ctx, tx, escrow); err != nil {
			return nil, err
		}
		closed := 0
		if before.Status == domain.EscrowStatusUnderReview {
			if closed, err = uc.closePendingProofs(ctx, tx, actor, escrow.ID, now); err != nil {
				return nil, err
			}
		}

		if err := uc.audit.record(ctx, tx, actor, domain.AuditActionEscrowRefund, domain.AggregateTypeEscrow, escrow.ID, before, escrow); err != nil {
			return nil, err
		}
		if err := uc.events.emit(ctx, tx, domain.AggregateTypeEscrow, escrow.ID, domain.EventTypeEscrowRefunded, escrowPayload(escrow)); err != nil {
			return nil, err
		}

		sender := recipientPhone(ctx, uc.users, tx, escrow.SenderID, "")
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeEscrow, escrow.ID, sender,
			fmt.Sprintf("Sarathi: Rs %s from SafeSend %s has been refunded. Balance Rs %s.",
				escrow.Amount.StringFixed(2), escrow.ID, change.Current.StringFixed(2))); err != nil {
			return nil, err
		}

		merchant, err := uc.merchants.GetByID(ctx, tx, escrow.MerchantID)
		if err != nil {
			return nil, err
		}
		merchantMsg := fmt.Sprintf("Sarathi: SafeSend %s of Rs %s was refunded to the sender.", escrow.ID, escrow.Amount.StringFixed(2))
		if closed > 0 {
			merchantMsg += " Your pending proof will not be reviewed."
		}
		if err := uc.events.notify(ctx, tx, domain.AggregateTypeEscrow, escrow.ID, merchant.Phone, merchantMsg); err != nil {
			return nil, err
		}

		return escrow, nil
	}, WithLockKeys(escrowLockKey(escrowID)), WithScopeName("escrow_refund"))
	if err != nil {
		return nil, err
	}

	uc.transitioned(escrow.Status)
	uc.refresh(ctx, escrow.SenderID)

	return escrow, nil
}

// refundedProofReason is recorded on proofs left pending when their escrow is refunded.
const refundedProofReason = "escrow refunded"

// closePendingProofs rejects the proofs still awaiting review on a refunded
// escrow and returns how many it closed.
func (uc *EscrowUseCase) closePendingProofs(ctx context.Context, tx Transaction, actor domain.Actor, escrowID string, now time.Time) (int, error) {
	proofs, err := uc.proofs.ListByEscrow(ctx, escrowID)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, listed := range proofs {
		if listed.Status != domain.ProofStatusPending {
			continue
		}
		proof, err := uc.proofs.GetByIDForUpdate(ctx, tx, listed.ID)
		if err != nil {
			return closed, err
		}
		if proof.Status != domain.ProofStatusPending {
			continue
		}
		before := *proof
		if err := proof.Review(actor.UserID, false, refundedProofReason, now); err != nil {
			return closed, err
		}
		if err := uc.proofs.Update(ctx, tx, proof); err != nil {
			return closed, err
		}
		if err := uc.audit.record(ctx, tx, actor, domain.AuditActionProofReview, domain.AggregateTypeProof, proof.ID, before, proof); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

// GetEscrow returns an escrow with its merchant and proofs. Visible to the
// sender, the escrow's merchant and admins.
func (uc *EscrowUseCase) GetEscrow(ctx context.Context, actor domain.Actor, escrowID string) (*domain.EscrowDetails, error) {
	escrow, err := uc.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	merchant, err := uc.merchants.GetByID(ctx, nil, escrow.MerchantID)
	if err != nil {
		return nil, err
	}

	isMerchant := actor.Phone != "" && actor.Phone == merchant.Phone
	if !actor.IsAdmin && actor.UserID != escrow.SenderID && !isMerchant {
		return nil, domain.ErrNotEscrowParty
	}

	proofs, err := uc.proofs.ListByEscrow(ctx, escrow.ID)
	if err != nil {
		return nil, err
	}

	return &domain.EscrowDetails{Escrow: escrow, Merchant: merchant, Proofs: proofs}, nil
}

// ListBySender returns the actor's escrows, newest first.
func (uc *EscrowUseCase) ListBySender(ctx context.Context, actor domain.Actor, page, limit int) (domain.Page[*domain.Escrow], error) {
	limit, offset := domain.ValidatePagination(page, limit)

	escrows, total, err := uc.escrows.ListBySender(ctx, actor.UserID, limit, offset)
	if err != nil {
		return domain.Page[*domain.Escrow]{}, err
	}

	return domain.NewPage(escrows, total, limit, offset), nil
}

// ListByMerchant returns a merchant's escrows. Visible to admins and that merchant.
func (uc *EscrowUseCase) ListByMerchant(ctx context.Context, actor domain.Actor, merchantID string, page, limit int) (domain.Page[*domain.Escrow], error) {
	merchant, err := uc.merchants.GetByID(ctx, nil, merchantID)
	if err != nil {
		return domain.Page[*domain.Escrow]{}, err
	}
	if !actor.IsAdmin && (actor.Phone == "" || actor.Phone != merchant.Phone) {
		return domain.Page[*domain.Escrow]{}, domain.ErrNotEscrowParty
	}

	limit, offset := domain.ValidatePagination(page, limit)
	escrows, total, err := uc.escrows.ListByMerchant(ctx, merchantID, limit, offset)
	if err != nil {
		return domain.Page[*domain.Escrow]{}, err
	}

	return domain.NewPage(escrows, total, limit, offset), nil
}

// ListPendingProofs returns proofs awaiting review, oldest first. Admin only.
func (uc *EscrowUseCase) ListPendingProofs(ctx context.Context, actor domain.Actor, page, limit int) (domain.Page[*domain.Proof], error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Page[*domain.Proof]{}, err
	}

	limit, offset := domain.ValidatePagination(page, limit)
	proofs, total, err := uc.proofs.ListPending(ctx, limit, offset)
	if err != nil {
		return domain.Page[*domain.Proof]{}, err
	}

	return domain.NewPage(proofs, total, limit, offset), nil
}

// actingMerchant resolves the merchant the actor signs in as.
func (uc *EscrowUseCase) actingMerchant(ctx context.Context, actor domain.Actor) (*domain.Merchant, error) {
	if actor.Phone == "" {
		return nil, domain.ErrMerchantMismatch
	}
	merchant, err := uc.merchants.GetByPhone(ctx, actor.Phone)
	if err != nil {
		if errors.Is(err, domain.ErrMerchantNotFound) {
			return nil, domain.ErrMerchantMismatch
		}
		return nil, err
	}
	return merchant, nil
}

func (uc *EscrowUseCase) transitioned(to domain.EscrowStatus) {
	if uc.metrics != nil {
		uc.metrics.EscrowTransitions.WithLabelValues(string(to)).Inc()
	}
}

func (uc *EscrowUseCase) refresh(ctx context.Context, userID string) {
	if uc.refresher != nil {
		uc.refresher.Refresh(ctx, userID)
	}
}

func escrowPayload(e *domain.Escrow) map[string]any {
	return map[string]any{
		"escrow_id":   e.ID,
		"sender_id":   e.SenderID,
		"merchant_id": e.MerchantID,
		"amount":      e.Amount.String(),
		"goal":        string(e.Goal),
		"status":      string(e.Status),
	}
}
