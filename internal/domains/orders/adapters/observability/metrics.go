package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
)

type serviceMetrics struct {
	ordersPlaced   metric.Int64Counter
	linesReserved  metric.Int64Counter
	ordersRejected metric.Int64Counter
	transitions    metric.Int64Counter
	ordersDeleted  metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersPlaced, _ := m.Int64Counter("orders.service.orders_placed", metric.WithDescription("Number of orders placed"))
	linesReserved, _ := m.Int64Counter("orders.service.lines_reserved", metric.WithDescription("Order lines whose stock was reserved"))
	ordersRejected, _ := m.Int64Counter("orders.service.orders_rejected", metric.WithDescription("Placements that failed, by reason"))
	transitions, _ := m.Int64Counter("orders.service.status_transitions", metric.WithDescription("Committed status transitions"))
	ordersDeleted, _ := m.Int64Counter("orders.service.orders_deleted", metric.WithDescription("Number of orders deleted"))
	return serviceMetrics{
		ordersPlaced:   ordersPlaced,
		linesReserved:  linesReserved,
		ordersRejected: ordersRejected,
		transitions:    transitions,
		ordersDeleted:  ordersDeleted,
	}
}

func (m serviceMetrics) recordPlaced(ctx context.Context, kind string, lines int) {
	if m.ordersPlaced != nil {
		m.ordersPlaced.Add(ctx, 1, metric.WithAttributes(attribute.String("order.kind", kind)))
	}
	if m.linesReserved != nil {
		m.linesReserved.Add(ctx, int64(lines))
	}
}

func (m serviceMetrics) recordRejected(ctx context.Context, kind string, err error) {
	if m.ordersRejected != nil {
		m.ordersRejected.Add(ctx, 1, metric.WithAttributes(
			attribute.String("order.kind", kind),
			attribute.String("reason", rejectionReason(err)),
		))
	}
}

func (m serviceMetrics) recordTransition(ctx context.Context, status domain.Status) {
	if m.transitions != nil {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(status))))
	}
}

func (m serviceMetrics) recordDeleted(ctx context.Context) {
	if m.ordersDeleted != nil {
		m.ordersDeleted.Add(ctx, 1)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, application.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, application.ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, application.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, application.ErrConcurrencyExceeded):
		return "concurrency_exceeded"
	case errors.Is(err, application.ErrIdempotencyConflict):
		return "idempotency_conflict"
	}
	return "internal"
}
