package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/tastetrack/internal/domain/event"
)

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{w: w}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), event.Event{
		Type:       event.OrderPlaced,
		Key:        "ORD7KQ2M9XA",
		OccurredAt: at,
		Attributes: map[string]string{"total": "25.50", "restaurant_id": "3"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ORD7KQ2M9XA", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, []kafkago.Header{{Key: "type", Value: []byte(event.OrderPlaced)}}, msg.Headers)
	assert.JSONEq(t, `{
		"type": "order.placed",
		"key": "ORD7KQ2M9XA",
		"occurredAt": "2024-03-01T12:00:00Z",
		"attributes": {"restaurant_id": "3", "total": "25.50"}
	}`, string(msg.Value))
}

func TestPublishError(t *testing.T) {
	p := &Publisher{w: &fakeWriter{err: errors.New("leader not available")}}

	err := p.Publish(context.Background(), event.Event{Type: event.ApplicationApproved})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "application.approved")
}
