package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

// UpdateOrderStatus applies a state-machine transition conditional on the status
// that was read. A concurrent change triggers exactly one re-read, re-validation
// and retry before giving up with ErrConcurrencyExceeded.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, next domain.Status) (*domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	next, err := domain.ParseStatus(string(next))
	if err != nil {
		return nil, mapError(err)
	}
	current, err := s.ledger.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	const attempts = 2
	for attempt := 1; attempt <= attempts; attempt++ {
		if !current.Status.CanTransitionTo(next) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
		}
		updated, err := s.ledger.UpdateStatus(ctx, orderID, current.Status, next)
		if err == nil {
			s.publish(ctx, domain.OrderStatusUpdated{
				BaseEvent:      domain.BaseEvent{ID: s.newEventID(), Timestamp: s.now().UTC()},
				OrderID:        updated.ID,
				CustomerID:     updated.CustomerID,
				PreviousStatus: current.Status,
				NewStatus:      updated.Status,
				UpdatedBy:      statusUpdatedBy,
			})
			return updated, nil
		}
		if !errors.Is(err, ports.ErrStatusConflict) {
			return nil, mapError(err)
		}
		if attempt == attempts {
			break
		}
		current, err = s.ledger.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: order %q status changed concurrently", ErrConcurrencyExceeded, orderID)
}
