package eventpublisher

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/infrastructure/metrics"
	"github.com/iho/sarathi/internal/usecase"
)

// RoutingPublisher delivers notification events through a Notifier and
// everything else to a sink.
type RoutingPublisher struct {
	notifier usecase.Notifier
	sink     Publisher
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewRoutingPublisher creates a RoutingPublisher.
func NewRoutingPublisher(notifier usecase.Notifier, sink Publisher, logger zerolog.Logger, m *metrics.Metrics) *RoutingPublisher {
	return &RoutingPublisher{
		notifier: notifier,
		sink:     sink,
		logger:   logger,
		metrics:  m,
	}
}

// Publish implements Publisher.
func (p *RoutingPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if !event.IsNotification() {
		return p.sink.Publish(ctx, event)
	}

	sms, ok := domain.NotificationFromEvent(event)
	if !ok {
		// Malformed rows would otherwise be retried forever.
		p.logger.Warn().Str("event_id", event.ID).Msg("dropping notification without recipient or message")
		p.count("dropped")
		return nil
	}

	if err := p.notifier.Send(ctx, sms.Recipient, sms.Message); err != nil {
		p.count("failed")
		return err
	}

	p.count("sent")
	return nil
}

func (p *RoutingPublisher) count(result string) {
	if p.metrics != nil {
		p.metrics.Notifications.WithLabelValues(result).Inc()
	}
}

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		Interface("payload", event.Payload).
		Msg("event published")
	return nil
}
