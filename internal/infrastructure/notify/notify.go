// Package notify holds the SMS delivery providers behind usecase.Notifier.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/usecase"
)

// Provider names accepted by New.
const (
	ProviderConsole = "console"
	ProviderWebhook = "webhook"
)

// Config selects and configures a provider.
type Config struct {
	Provider   string
	WebhookURL string
	APIKey     string
	SenderID   string
	Timeout    time.Duration
}

// New returns the notifier named by cfg.Provider.
func New(cfg Config, logger zerolog.Logger) (usecase.Notifier, error) {
	switch cfg.Provider {
	case "", ProviderConsole:
		return NewConsoleNotifier(logger), nil
	case ProviderWebhook:
		return NewWebhookNotifier(WebhookConfig{
			URL:      cfg.WebhookURL,
			APIKey:   cfg.APIKey,
			SenderID: cfg.SenderID,
			Timeout:  cfg.Timeout,
		}, logger)
	}
	return nil, fmt.Errorf("unknown sms provider %q", cfg.Provider)
}

// ConsoleNotifier writes messages to the log instead of sending them.
type ConsoleNotifier struct {
	logger zerolog.Logger
}

// NewConsoleNotifier creates a ConsoleNotifier.
func NewConsoleNotifier(logger zerolog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

// Send logs the message.
func (n *ConsoleNotifier) Send(ctx context.Context, recipient, message string) error {
	n.logger.Info().
		Str("recipient", recipient).
		Str("message", message).
		Msg("sms")
	return nil
}
