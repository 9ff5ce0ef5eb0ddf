package main

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/adapter/http/middleware"
	"github.com/iho/sarathi/internal/infrastructure/config"
	"github.com/iho/sarathi/internal/infrastructure/eventpublisher"
	"github.com/iho/sarathi/internal/infrastructure/notify"
)

const limiterIdleTimeout = 10 * time.Minute

func notifyConfig(cfg *config.Config) notify.Config {
	return notify.Config{
		Provider:   cfg.SMSProvider,
		WebhookURL: cfg.SMSWebhookURL,
		APIKey:     cfg.SMSAPIKey,
		SenderID:   cfg.SMSSenderID,
		Timeout:    cfg.SMSTimeout,
	}
}

// eventSink returns the Pub/Sub publisher when a project is configured and
// the log sink otherwise. The returned func releases the sink.
func eventSink(ctx context.Context, cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, func(), error) {
	if cfg.PubSubProjectID == "" {
		return eventpublisher.NewLogPublisher(log), func() {}, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSubProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}

	pub, err := eventpublisher.NewPubSubPublisher(ctx, client, cfg.PubSubTopic)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("open pubsub topic %s: %w", cfg.PubSubTopic, err)
	}

	log.Info().Str("project", cfg.PubSubProjectID).Str("topic", cfg.PubSubTopic).Msg("publishing domain events to pubsub")
	return pub, func() {
		pub.Stop()
		_ = client.Close()
	}, nil
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters(limiterIdleTimeout)
		}
	}
}
