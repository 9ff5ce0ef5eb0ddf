package main

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/infrastructure/config"
	"github.com/iho/sarathi/internal/infrastructure/eventpublisher"
	"github.com/iho/sarathi/internal/infrastructure/notify"
)

func TestNotifyConfig(t *testing.T) {
	cfg := &config.Config{
		SMSProvider:   notify.ProviderWebhook,
		SMSWebhookURL: "https://sms.example.in/send",
		SMSAPIKey:     "key",
		SMSSenderID:   "SARTHI",
		SMSTimeout:    3 * time.Second,
	}

	got := notifyConfig(cfg)
	if got.Provider != notify.ProviderWebhook || got.WebhookURL != cfg.SMSWebhookURL || got.Timeout != 3*time.Second {
		t.Fatalf("unexpected notify config: %+v", got)
	}
	if got.APIKey != "key" || got.SenderID != "SARTHI" {
		t.Fatalf("expected credentials to be carried over, got %+v", got)
	}
}

func TestEventSinkDefaultsToLog(t *testing.T) {
	sink, closeSink, err := eventSink(context.Background(), &config.Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeSink()

	if _, ok := sink.(*eventpublisher.LogPublisher); !ok {
		t.Fatalf("expected log publisher without a pubsub project, got %T", sink)
	}
}
