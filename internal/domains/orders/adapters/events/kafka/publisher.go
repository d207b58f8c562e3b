package kafka

import (
	"context"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/events"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// Producer is the subset of *kafkago.Writer the publisher needs.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes envelopes to a topic keyed by aggregate id, so every event
// for one order or product lands on the same partition in order.
type Publisher struct {
	producer   Producer
	propagator propagation.TextMapPropagator
}

func NewPublisher(producer Producer) (*Publisher, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is nil")
	}
	return &Publisher{producer: producer, propagator: otel.GetTextMapPropagator()}, nil
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	routingKey, body, err := events.Encode(event)
	if err != nil {
		return err
	}
	carrier := propagation.MapCarrier{}
	p.propagator.Inject(ctx, carrier)

	headers := []kafkago.Header{
		{Key: "event-type", Value: []byte(event.EventName())},
		{Key: "event-id", Value: []byte(event.EventID())},
		{Key: "routing-key", Value: []byte(routingKey)},
	}
	for key, value := range carrier {
		headers = append(headers, kafkago.Header{Key: key, Value: []byte(value)})
	}

	msg := kafkago.Message{
		Key:     []byte(event.AggregateID()),
		Value:   body,
		Headers: headers,
		Time:    event.OccurredAt(),
	}
	if err := p.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", routingKey, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
