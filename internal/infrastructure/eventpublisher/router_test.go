package eventpublisher

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/infrastructure/metrics"
	"github.com/iho/sarathi/internal/usecase/mocks"
)

func smsEvent(id string, payload map[string]any) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            id,
		AggregateType: domain.AggregateTypeLoan,
		AggregateID:   "loan-1",
		EventType:     domain.EventTypeNotificationSMS,
		Payload:       payload,
	}
}

func TestRoutingPublisher(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	sink := &stubPublisher{}
	m := metrics.New(prometheus.NewRegistry())

	p := NewRoutingPublisher(notifier, sink, zerolog.Nop(), m)

	t.Run("notification goes to notifier", func(t *testing.T) {
		notifier.EXPECT().Send(gomock.Any(), "+919876543210", "loan approved").Return(nil)

		err := p.Publish(ctx, smsEvent("evt-1", map[string]any{"recipient": "+919876543210", "message": "loan approved"}))
		require.NoError(t, err)
		assert.Empty(t, sink.published)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
	})

	t.Run("delivery failure is returned for retry", func(t *testing.T) {
		notifier.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("gateway down"))

		err := p.Publish(ctx, smsEvent("evt-2", map[string]any{"recipient": "+919876543210", "message": "x"}))
		require.Error(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
	})

	t.Run("malformed notification is dropped", func(t *testing.T) {
		err := p.Publish(ctx, smsEvent("evt-3", map[string]any{"message": "no recipient"}))
		require.NoError(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("dropped")))
	})

	t.Run("domain event goes to sink", func(t *testing.T) {
		event := &domain.OutboxEvent{ID: "evt-4", EventType: domain.EventTypeLoanDisbursed}
		require.NoError(t, p.Publish(ctx, event))
		require.Len(t, sink.published, 1)
		assert.Equal(t, "evt-4", sink.published[0].ID)
	})
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, p.Publish(context.Background(), &domain.OutboxEvent{
		ID:        "evt-1",
		EventType: domain.EventTypeEscrowReleased,
		Payload:   map[string]any{"escrow_id": "esc-1"},
	}))
	assert.Contains(t, buf.String(), `"event_type":"safesend.escrow_released"`)
	assert.Contains(t, buf.String(), `"escrow_id":"esc-1"`)
}
