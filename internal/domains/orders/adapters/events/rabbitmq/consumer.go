package rabbitmq

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/events"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
)

// DedupWindow is how many recent event ids a consumer remembers.
const DedupWindow = 10_000

// Handler processes one decoded event. Returning an error dead-letters the delivery.
type Handler func(ctx context.Context, event domain.Event) error

// Consumer binds a durable queue to routing keys on the orders exchange and
// drops redeliveries of event ids it has recently handled.
type Consumer struct {
	ch      *amqp.Channel
	queue   string
	handler Handler
	logger  *slog.Logger
	seen    *recentIDs
}

func NewConsumer(conn *amqp.Connection, queue string, routingKeys []string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	seen, err := newRecentIDs(DedupWindow)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := DeclareExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", events.Exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	for _, key := range routingKeys {
		if err := ch.QueueBind(queue, key, events.Exchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("bind %s to %s: %w", queue, key, err)
		}
	}
	return &Consumer{
		ch:      ch,
		queue:   queue,
		handler: handler,
		logger:  logger.With(slog.String("queue", queue)),
		seen:    seen,
	}, nil
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(
		c.queue,
		c.queue,
		false, // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "consumer stopping")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	event, err := events.Decode(msg.Body)
	if err != nil {
		c.logger.WarnContext(ctx, "dropping undecodable message",
			slog.String("routing_key", msg.RoutingKey),
			slog.String("error", err.Error()),
		)
		_ = msg.Nack(false, false)
		return
	}
	if c.seen.seenBefore(event.EventID()) {
		c.logger.DebugContext(ctx, "duplicate event skipped", slog.String("event.id", event.EventID()))
		_ = msg.Ack(false)
		return
	}
	if err := c.handler(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "event handling failed",
			slog.String("event", event.EventName()),
			slog.String("event.id", event.EventID()),
			slog.String("error", err.Error()),
		)
		c.seen.forget(event.EventID())
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}

// recentIDs is a bounded set of handled event ids. The least recently added
// id is evicted once the window is full, so very late redeliveries are
// handled again.
type recentIDs struct {
	ids *lru.Cache[string, struct{}]
}

func newRecentIDs(size int) (*recentIDs, error) {
	ids, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("dedup window: %w", err)
	}
	return &recentIDs{ids: ids}, nil
}

// seenBefore records id and reports whether it was already present.
func (r *recentIDs) seenBefore(id string) bool {
	found, _ := r.ids.ContainsOrAdd(id, struct{}{})
	return found
}

func (r *recentIDs) forget(id string) {
	r.ids.Remove(id)
}

func (r *recentIDs) len() int {
	return r.ids.Len()
}

func (c *Consumer) Close() error {
	return c.ch.Close()
}
