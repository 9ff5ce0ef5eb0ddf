package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/domain"
)

const defaultWebhookTimeout = 5 * time.Second

// WebhookConfig configures an HTTP SMS gateway.
type WebhookConfig struct {
	URL      string
	APIKey   string
	SenderID string
	Timeout  time.Duration

	// MaxElapsed bounds retries of one message. Zero uses Timeout*3.
	MaxElapsed time.Duration
	Client     *http.Client
}

// WebhookNotifier posts messages to an SMS gateway, retrying 5xx and network errors.
type WebhookNotifier struct {
	cfg    WebhookConfig
	client *http.Client
	logger zerolog.Logger
}

type webhookRequest struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id,omitempty"`
}

// NewWebhookNotifier creates a WebhookNotifier.
func NewWebhookNotifier(cfg WebhookConfig, logger zerolog.Logger) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWebhookTimeout
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 3 * cfg.Timeout
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &WebhookNotifier{cfg: cfg, client: client, logger: logger}, nil
}

// Send delivers one message.
func (n *WebhookNotifier) Send(ctx context.Context, recipient, message string) error {
	body, err := json.Marshal(webhookRequest{
		To:       recipient,
		Message:  message,
		SenderID: n.cfg.SenderID,
	})
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = n.cfg.MaxElapsed

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := n.post(ctx, body)
		if err == nil {
			return nil
		}

		var status *statusError
		if errors.As(err, &status) && status.code < 500 && status.code != http.StatusTooManyRequests {
			return backoff.Permanent(fmt.Errorf("%w: %w", domain.ErrUndeliverable, err))
		}

		n.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("recipient", recipient).
			Msg("sms gateway call failed, retrying")
		return err
	}, backoff.WithContext(b, ctx))
}

func (n *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("sms gateway returned status %d", e.code)
}
