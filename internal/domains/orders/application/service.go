package application

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	customerports "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/ports"
	inventoryports "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/ports"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

const (
	stockUpdatedBy  = "Order System"
	statusUpdatedBy = "System"
)

// RetryPolicy bounds optimistic-concurrency retries. Backoff is multiplied by the
// attempt number between tries.
type RetryPolicy struct {
	MaxAttempts          int
	Backoff              time.Duration
	CompensationAttempts int
	CompensationTimeout  time.Duration
}

// DefaultRetryPolicy returns three reservation attempts and a more patient compensation budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:          3,
		Backoff:              10 * time.Millisecond,
		CompensationAttempts: 5,
		CompensationTimeout:  10 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.CompensationAttempts <= 0 {
		p.CompensationAttempts = def.CompensationAttempts
	}
	if p.CompensationTimeout <= 0 {
		p.CompensationTimeout = def.CompensationTimeout
	}
	return p
}

// Service orchestrates order placement, checkout compensation and status transitions.
type Service struct {
	ledger         ports.Ledger
	inventory      inventoryports.Store
	holds          inventoryports.Holds
	customers      customerports.Repository
	publisher      ports.EventPublisher
	idempotency    ports.IdempotencyStore
	logger         *slog.Logger
	retry          RetryPolicy
	publishTimeout time.Duration
	now            func() time.Time
	newEventID     func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *Service) {
		s.retry = policy.normalized()
	}
}

func WithPublisher(publisher ports.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithIdempotencyStore enables replay of placement requests carrying an idempotency key.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

func WithPublishTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.publishTimeout = timeout
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(ledger ports.Ledger, inventory inventoryports.Store, customers customerports.Repository, opts ...Option) *Service {
	s := &Service{
		ledger:         ledger,
		inventory:      inventory,
		customers:      customers,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		retry:          DefaultRetryPolicy(),
		publishTimeout: 3 * time.Second,
		now:            time.Now,
		newEventID:     uuid.NewString,
	}
	if holds, ok := inventory.(inventoryports.Holds); ok {
		s.holds = holds
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.ledger.Get(ctx, strings.TrimSpace(id))
}

// ListOrders returns orders newest first, optionally for a single customer.
func (s *Service) ListOrders(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	filter.CustomerID = strings.TrimSpace(filter.CustomerID)
	return s.ledger.List(ctx, filter)
}

// DeleteOrder is an administrative removal; stock is not returned.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	return s.ledger.Delete(ctx, strings.TrimSpace(id))
}

// publish hands an event to the transport. Failures are logged and never returned:
// the order and stock writes have already committed.
func (s *Service) publish(ctx context.Context, event domain.Event) {
	if s.publisher == nil || event == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "event publish failed",
			slog.String("event", event.EventName()),
			slog.String("event.id", event.EventID()),
			slog.String("aggregate.id", event.AggregateID()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) customerName(ctx context.Context, customerID string) string {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil || customer == nil {
		return ""
	}
	return customer.DisplayName()
}

var (
	_ ports.Service       = (*Service)(nil)
	_ ports.CheckoutSteps = (*Service)(nil)
)
