package usecase

import (
	"context"
	"time"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/infrastructure/metrics"
)

// eventWriter writes outbox rows inside the caller's scope. Rows are delivered
// by the event publisher after commit.
type eventWriter struct {
	outbox OutboxRepository
	idGen  IDGenerator
}

func (w eventWriter) emit(ctx context.Context, tx Transaction, aggregateType, aggregateID, eventType string, payload map[string]any) error {
	if w.outbox == nil {
		return nil
	}
	return w.outbox.Create(ctx, tx, &domain.OutboxEvent{
		ID:            w.idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	})
}

// notify queues an SMS. An empty recipient is skipped.
func (w eventWriter) notify(ctx context.Context, tx Transaction, aggregateType, aggregateID, recipient, message string) error {
	if recipient == "" {
		return nil
	}
	return w.emit(ctx, tx, aggregateType, aggregateID, domain.EventTypeNotificationSMS, map[string]any{
		"recipient": recipient,
		"message":   message,
	})
}

type auditWriter struct {
	repo    AuditRepository
	idGen   IDGenerator
	metrics *metrics.Metrics
}

func (w auditWriter) record(ctx context.Context, tx Transaction, actor domain.Actor, action domain.AuditAction, resourceType, resourceID string, before, after any) error {
	if w.repo == nil {
		return nil
	}

	userID := actor.UserID
	if userID == "" {
		userID = systemActor
	}

	log := &domain.AuditLog{
		ID:           w.idGen.Generate(),
		UserID:       userID,
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		BeforeState:  domain.MarshalState(before),
		AfterState:   domain.MarshalState(after),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	}
	if err := w.repo.CreateTx(ctx, tx, log); err != nil {
		return err
	}

	if w.metrics != nil {
		w.metrics.AuditLogsCreated.WithLabelValues(log.Action, log.Status).Inc()
	}
	return nil
}

// recipientPhone returns the actor's phone, falling back to the stored user record.
func recipientPhone(ctx context.Context, users UserRepository, tx Transaction, userID, known string) string {
	if known != "" {
		return known
	}
	user, err := users.GetByIDTx(ctx, tx, userID)
	if err != nil {
		return ""
	}
	return user.Phone
}
