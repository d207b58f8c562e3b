package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
)

// Notifier turns order events into customer notifications and stock-sync
// records. Delivery is a structured log line per event.
type Notifier struct {
	logger *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{logger: logger}
}

// Handle dispatches on the concrete event type.
func (n *Notifier) Handle(ctx context.Context, event domain.Event) error {
	switch e := event.(type) {
	case domain.OrderCreated:
		return n.orderCreated(ctx, e)
	case domain.StockUpdated:
		return n.stockUpdated(ctx, e)
	case domain.OrderStatusUpdated:
		return n.statusUpdated(ctx, e)
	case nil:
		return fmt.Errorf("nil event")
	}
	return fmt.Errorf("unsupported event %s", event.EventName())
}

func (n *Notifier) orderCreated(ctx context.Context, e domain.OrderCreated) error {
	recipient := e.CustomerName
	if recipient == "" {
		recipient = e.CustomerID
	}
	n.logger.LogAttrs(ctx, slog.LevelInfo, "order confirmation sent",
		slog.String("event.id", e.ID),
		slog.String("order.id", e.OrderID),
		slog.String("customer", recipient),
		slog.Int("lines", len(e.Lines)),
		slog.String("total", e.TotalAmount.StringFixed(2)),
		slog.Time("ordered_at", e.OrderedAt),
	)
	return nil
}

func (n *Notifier) stockUpdated(ctx context.Context, e domain.StockUpdated) error {
	level := slog.LevelInfo
	if e.NewStock == 0 {
		level = slog.LevelWarn
	}
	n.logger.LogAttrs(ctx, level, "stock level synchronised",
		slog.String("event.id", e.ID),
		slog.String("product.id", e.ProductID),
		slog.String("product.name", e.ProductName),
		slog.String("order.id", e.OrderID),
		slog.Int("stock.previous", e.PreviousStock),
		slog.Int("stock.new", e.NewStock),
		slog.String("updated_by", e.UpdatedBy),
	)
	return nil
}

func (n *Notifier) statusUpdated(ctx context.Context, e domain.OrderStatusUpdated) error {
	n.logger.LogAttrs(ctx, slog.LevelInfo, "order status notification sent",
		slog.String("event.id", e.ID),
		slog.String("order.id", e.OrderID),
		slog.String("customer.id", e.CustomerID),
		slog.String("status.previous", string(e.PreviousStatus)),
		slog.String("status.new", string(e.NewStatus)),
	)
	return nil
}
