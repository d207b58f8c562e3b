package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
)

const (
	// Exchange is the topic exchange (or Kafka topic default) all order events go to.
	Exchange = "orders.events"

	OrderCreatedRoutingKey       = "order.created.v1"
	StockUpdatedRoutingKey       = "stock.updated.v1"
	OrderStatusUpdatedRoutingKey = "order.status_updated.v1"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Envelope is the wire format shared by every transport.
type Envelope struct {
	EventID     string          `json:"eventId"`
	EventType   string          `json:"eventType"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

// RoutingKey maps an event name to its versioned routing key.
func RoutingKey(eventName string) (string, error) {
	switch eventName {
	case domain.EventOrderCreated:
		return OrderCreatedRoutingKey, nil
	case domain.EventStockUpdated:
		return StockUpdatedRoutingKey, nil
	case domain.EventOrderStatusUpdated:
		return OrderStatusUpdatedRoutingKey, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownEvent, eventName)
}

// Encode wraps the event in an envelope and returns the routing key with the JSON body.
func Encode(event domain.Event) (string, []byte, error) {
	key, err := RoutingKey(event.EventName())
	if err != nil {
		return "", nil, err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s: %w", event.EventName(), err)
	}
	body, err := json.Marshal(Envelope{
		EventID:     event.EventID(),
		EventType:   event.EventName(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt().UTC(),
		Payload:     payload,
	})
	if err != nil {
		return "", nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return key, body, nil
}

// Decode parses a body produced by Encode back into a domain event.
func Decode(body []byte) (domain.Event, error) {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	var (
		event domain.Event
		err   error
	)
	switch envelope.EventType {
	case domain.EventOrderCreated:
		var e domain.OrderCreated
		err = json.Unmarshal(envelope.Payload, &e)
		event = e
	case domain.EventStockUpdated:
		var e domain.StockUpdated
		err = json.Unmarshal(envelope.Payload, &e)
		event = e
	case domain.EventOrderStatusUpdated:
		var e domain.OrderStatusUpdated
		err = json.Unmarshal(envelope.Payload, &e)
		event = e
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, envelope.EventType)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", envelope.EventType, err)
	}
	return event, nil
}
