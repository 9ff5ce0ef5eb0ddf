package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/iho/sarathi/internal/domain"
)

// Message is the JSON body of a domain event on the topic.
type Message struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Payload       map[string]any `json:"payload"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// PubSubPublisher publishes outbox events to a Google Cloud Pub/Sub topic.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubPublisher publishes to topicID, creating it when missing.
func NewPubSubPublisher(ctx context.Context, client *pubsub.Client, topicID string) (*PubSubPublisher, error) {
	if client == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topicID == "" {
		return nil, errors.New("topic is required")
	}

	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %q: %w", topicID, err)
	}
	if !ok {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			return nil, fmt.Errorf("create topic %q: %w", topicID, err)
		}
	}
	topic.EnableMessageOrdering = true

	return &PubSubPublisher{topic: topic}, nil
}

// Publish sends the event and waits for the server-assigned id.
// Events of one aggregate share an ordering key.
func (p *PubSubPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	data, err := json.Marshal(Message{
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		OccurredAt:    event.CreatedAt,
	})
	if err != nil {
		return err
	}

	orderingKey := event.AggregateType + ":" + event.AggregateID
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: orderingKey,
		Attributes: map[string]string{
			"event_id":   event.ID,
			"event_type": event.EventType,
		},
	})

	if _, err := result.Get(ctx); err != nil {
		p.topic.ResumePublish(orderingKey)
		return fmt.Errorf("publish %s: %w", event.ID, err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}
