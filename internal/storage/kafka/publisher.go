// Package kafka publishes domain events to a Kafka topic.
package kafka

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/xenking/tastetrack/internal/domain/event"
)

var _ event.Publisher = (*Publisher)(nil)

// messageWriter is the subset of *kafkago.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher implements event.Publisher. Events are keyed so that all events
// of one order or application land on the same partition.
type Publisher struct {
	w messageWriter
}

// NewPublisher returns a Publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{w: &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

func (p *Publisher) Publish(ctx context.Context, ev event.Event) error {
	msg := kafkago.Message{
		Key:   []byte(ev.Key),
		Value: EncodeEvent(ev),
		Time:  ev.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "write %s", ev.Type)
	}
	return nil
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// EncodeEvent renders ev as a JSON object with sorted attributes.
func EncodeEvent(ev event.Event) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("type")
	e.Str(string(ev.Type))
	e.FieldStart("key")
	e.Str(ev.Key)
	e.FieldStart("occurredAt")
	e.Str(ev.OccurredAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("attributes")
	e.ObjStart()
	keys := make([]string, 0, len(ev.Attributes))
	for k := range ev.Attributes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		e.FieldStart(k)
		e.Str(ev.Attributes[k])
	}
	e.ObjEnd()
	e.ObjEnd()
	return e.Bytes()
}
