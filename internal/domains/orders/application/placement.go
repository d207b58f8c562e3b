package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
)

// PlaceOrder reserves stock for one product and records a single-line order.
func (s *Service) PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*domain.Order, error) {
	input.CustomerID = strings.TrimSpace(input.CustomerID)
	input.ProductID = strings.TrimSpace(input.ProductID)
	if input.CustomerID == "" {
		return nil, mapError(domain.ErrInvalidCustomerID)
	}
	if input.ProductID == "" {
		return nil, mapError(domain.ErrInvalidProductID)
	}
	if input.Quantity <= 0 {
		return nil, mapError(domain.ErrInvalidQuantity)
	}

	requestHash, replayed, err := s.replay(ctx, input.IdempotencyKey, input)
	if err != nil || replayed != nil {
		return replayed, err
	}
	if err := s.ValidateCustomer(ctx, input.CustomerID); err != nil {
		return nil, err
	}
	reservation, err := s.reserve(ctx, "", input.ProductID, input.Quantity)
	if err != nil {
		return nil, err
	}
	reservations := []types.Reservation{*reservation}
	order, err := s.RecordOrder(ctx, "", input.CustomerID, reservations)
	if err != nil {
		s.compensate(ctx, reservations)
		return nil, err
	}
	order, fresh, err := s.remember(ctx, input.IdempotencyKey, requestHash, order, reservations)
	if err != nil {
		return nil, err
	}
	if fresh {
		s.announce(ctx, order, reservations)
	}
	return order, nil
}

// PlaceCartOrder reserves every cart line or none of them. Lines are reserved in
// product id order; on the first irrecoverable failure all earlier reservations
// are released and the original error is returned.
func (s *Service) PlaceCartOrder(ctx context.Context, input types.PlaceCartOrderInput) (*domain.Order, error) {
	input.CustomerID = strings.TrimSpace(input.CustomerID)
	if input.CustomerID == "" {
		return nil, mapError(domain.ErrInvalidCustomerID)
	}
	items, err := validateCart(input.Items)
	if err != nil {
		return nil, err
	}
	input.Items = items

	requestHash, replayed, err := s.replay(ctx, input.IdempotencyKey, input)
	if err != nil || replayed != nil {
		return replayed, err
	}
	if err := s.ValidateCustomer(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	reservations := make([]types.Reservation, 0, len(items))
	for _, item := range items {
		reservation, err := s.reserve(ctx, "", item.ProductID, item.Quantity)
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "cart checkout aborted",
				slog.String("customer.id", input.CustomerID),
				slog.String("product.id", item.ProductID),
				slog.Int("reserved.lines", len(reservations)),
				slog.String("error", err.Error()),
			)
			s.compensate(ctx, reservations)
			return nil, err
		}
		reservations = append(reservations, *reservation)
	}

	order, err := s.RecordOrder(ctx, "", input.CustomerID, reservations)
	if err != nil {
		s.compensate(ctx, reservations)
		return nil, err
	}
	order, fresh, err := s.remember(ctx, input.IdempotencyKey, requestHash, order, reservations)
	if err != nil {
		return nil, err
	}
	if fresh {
		s.announce(ctx, order, reservations)
	}
	return order, nil
}

// PrepareCheckout validates a cart request without touching stock.
func (s *Service) PrepareCheckout(ctx context.Context, input types.PlaceCartOrderInput) ([]types.CartItem, error) {
	customerID := strings.TrimSpace(input.CustomerID)
	if customerID == "" {
		return nil, mapError(domain.ErrInvalidCustomerID)
	}
	items, err := validateCart(input.Items)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return items, nil
}

// ValidateCustomer fails with ErrInvalidReference for unknown customers.
func (s *Service) ValidateCustomer(ctx context.Context, customerID string) error {
	exists, err := s.customers.Exists(ctx, customerID)
	if err != nil {
		return fmt.Errorf("lookup customer %q: %w", customerID, err)
	}
	if !exists {
		return fmt.Errorf("%w: customer %q", ErrInvalidReference, customerID)
	}
	return nil
}

// ReserveLine reserves stock for one cart line with bounded retries. With a key
// and a store that supports holds, repeated calls reserve once.
func (s *Service) ReserveLine(ctx context.Context, key string, item types.CartItem) (*types.Reservation, error) {
	productID := strings.TrimSpace(item.ProductID)
	if productID == "" {
		return nil, mapError(domain.ErrInvalidProductID)
	}
	if item.Quantity <= 0 {
		return nil, mapError(domain.ErrInvalidQuantity)
	}
	return s.reserve(ctx, strings.TrimSpace(key), productID, item.Quantity)
}

// ReleaseLine returns a reservation's units to stock.
func (s *Service) ReleaseLine(ctx context.Context, reservation types.Reservation) error {
	return s.release(ctx, reservation)
}

// RecordOrder writes the order with line snapshots taken from the reservations.
func (s *Service) RecordOrder(ctx context.Context, orderID, customerID string, reservations []types.Reservation) (*domain.Order, error) {
	lines := make([]domain.LineItem, 0, len(reservations))
	for _, reservation := range reservations {
		line := domain.LineItem{
			ProductID:   reservation.ProductID,
			ProductName: reservation.ProductName,
			Quantity:    reservation.Quantity,
			UnitPrice:   reservation.UnitPrice,
		}
		if err := line.Validate(); err != nil {
			return nil, mapError(err)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, mapError(domain.ErrNoLines)
	}
	var (
		order *domain.Order
		err   error
	)
	if orderID != "" {
		order, err = s.ledger.CreateWithID(ctx, orderID, customerID, lines)
	} else {
		order, err = s.ledger.Create(ctx, customerID, lines)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

// AnnouncePlacement publishes the placement events for a recorded order.
func (s *Service) AnnouncePlacement(ctx context.Context, orderID string, reservations []types.Reservation) error {
	order, err := s.ledger.Get(ctx, orderID)
	if err != nil {
		return err
	}
	s.announce(ctx, order, reservations)
	return nil
}

// announce emits one OrderCreated and one StockUpdated per reserved product.
func (s *Service) announce(ctx context.Context, order *domain.Order, reservations []types.Reservation) {
	now := s.now()
	s.publish(ctx, domain.NewOrderCreated(s.newEventID(), order, s.customerName(ctx, order.CustomerID), now))
	for _, reservation := range reservations {
		s.publish(ctx, domain.StockUpdated{
			BaseEvent:     domain.BaseEvent{ID: s.newEventID(), Timestamp: now.UTC()},
			ProductID:     reservation.ProductID,
			ProductName:   reservation.ProductName,
			OrderID:       order.ID,
			PreviousStock: reservation.PreviousStock,
			NewStock:      reservation.NewStock,
			UpdatedBy:     stockUpdatedBy,
		})
	}
}

func validateCart(items []types.CartItem) ([]types.CartItem, error) {
	if len(items) == 0 {
		return nil, mapError(domain.ErrNoLines)
	}
	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, mapError(domain.ErrInvalidProductID)
		}
		if item.Quantity <= 0 {
			return nil, mapError(domain.ErrInvalidQuantity)
		}
	}
	return types.NormalizeCart(items), nil
}

// cancelDuplicate undoes an order that lost an idempotency race to an earlier
// request with the same key.
func (s *Service) cancelDuplicate(ctx context.Context, order *domain.Order, reservations []types.Reservation) {
	if _, err := s.ledger.UpdateStatus(ctx, order.ID, domain.StatusSubmitted, domain.StatusCancelled); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to cancel duplicate order",
			slog.String("order.id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	s.compensate(ctx, reservations)
}
