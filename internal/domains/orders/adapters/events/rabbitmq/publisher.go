package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/events"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

var _ ports.EventPublisher = (*Publisher)(nil)

const publishTimeout = 3 * time.Second

// Publisher sends persistent JSON envelopes to the orders topic exchange.
type Publisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
	appID    string
}

func NewPublisher(conn *amqp.Connection, appID string) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("rabbitmq connection is nil")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := DeclareExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", events.Exchange, err)
	}
	return &Publisher{ch: ch, exchange: events.Exchange, appID: appID}, nil
}

// DeclareExchange makes sure the durable topic exchange exists.
func DeclareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		events.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	routingKey, body, err := events.Encode(event)
	if err != nil {
		return err
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(
		pubCtx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID(),
			Type:         event.EventName(),
			AppId:        p.appID,
			Timestamp:    event.OccurredAt(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}
