package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

const tracerName = "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/observability/service"

// Service decorates the orders service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core orders service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.PlaceOrder", trace.WithAttributes(
		attribute.String("customer.id", input.CustomerID),
		attribute.String("product.id", input.ProductID),
		attribute.Int("order.quantity", input.Quantity),
	))
	defer span.End()

	s.logInfo(ctx, "placing order", slog.String("customer.id", input.CustomerID), slog.String("product.id", input.ProductID))
	result, err := s.inner.PlaceOrder(ctx, input)
	if err != nil {
		s.metrics.recordRejected(ctx, "single", err)
		return nil, s.handleError(ctx, span, err, "failed to place order", slog.String("customer.id", input.CustomerID))
	}
	s.placed(ctx, span, "single", result)
	return result, nil
}

func (s *Service) PlaceCartOrder(ctx context.Context, input types.PlaceCartOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.PlaceCartOrder", trace.WithAttributes(
		attribute.String("customer.id", input.CustomerID),
		attribute.Int("cart.items", len(input.Items)),
	))
	defer span.End()

	s.logInfo(ctx, "placing cart order", slog.String("customer.id", input.CustomerID), slog.Int("cart.items", len(input.Items)))
	result, err := s.inner.PlaceCartOrder(ctx, input)
	if err != nil {
		s.metrics.recordRejected(ctx, "cart", err)
		return nil, s.handleError(ctx, span, err, "failed to place cart order", slog.String("customer.id", input.CustomerID))
	}
	s.placed(ctx, span, "cart", result)
	return result, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.UpdateOrderStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", string(status)),
	))
	defer span.End()

	result, err := s.inner.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update order status",
			slog.String("order.id", orderID), slog.String("status", string(status)))
	}
	s.metrics.recordTransition(ctx, result.Status)
	s.logInfo(ctx, "order status updated", slog.String("order.id", result.ID), slog.String("status", string(result.Status)))
	return result, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.GetOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.id", id))
	}
	return result, nil
}

func (s *Service) ListOrders(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.ListOrders", trace.WithAttributes(attribute.String("customer.id", filter.CustomerID)))
	defer span.End()

	result, err := s.inner.ListOrders(ctx, filter)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders")
	}
	span.SetAttributes(attribute.Int("orders.count", len(result)))
	return result, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "OrdersService.DeleteOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	s.logInfo(ctx, "deleting order", slog.String("order.id", id))
	if err := s.inner.DeleteOrder(ctx, id); err != nil {
		return s.handleError(ctx, span, err, "failed to delete order", slog.String("order.id", id))
	}
	s.metrics.recordDeleted(ctx)
	s.logInfo(ctx, "order deleted", slog.String("order.id", id))
	return nil
}

func (s *Service) placed(ctx context.Context, span trace.Span, kind string, order *domain.Order) {
	total := order.Total().StringFixed(2)
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.total", total))
	s.metrics.recordPlaced(ctx, kind, len(order.Lines))
	s.logInfo(ctx, "order placed",
		slog.String("order.id", order.ID),
		slog.Int("order.lines", len(order.Lines)),
		slog.String("order.total", total),
	)
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

var _ ports.Service = (*Service)(nil)
