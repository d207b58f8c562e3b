package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	inventorydomain "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/domain"
	inventoryports "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/ports"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
)

// reserve takes quantity units of a product with read, check, conditional write.
// Version conflicts and transient store faults are retried up to MaxAttempts;
// unknown products and short stock fail immediately. A non-empty key places a
// hold instead, and a key that already holds stock returns that reservation.
func (s *Service) reserve(ctx context.Context, key, productID string, quantity int) (*types.Reservation, error) {
	keyed := key != "" && s.holds != nil
	if keyed {
		hold, err := s.holds.GetHold(ctx, key)
		switch {
		case err == nil:
			return reservationFromHold(hold)
		case !errors.Is(err, inventoryports.ErrHoldNotFound):
			return nil, err
		}
	}
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			s.wait(ctx, attempt-1)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		product, err := s.inventory.GetProduct(ctx, productID)
		switch {
		case errors.Is(err, inventoryports.ErrNotFound):
			return nil, fmt.Errorf("%w: product %q", ErrInvalidReference, productID)
		case err != nil:
			if isContextErr(err) {
				return nil, err
			}
			lastErr = err
			continue
		}
		if !product.CanCover(quantity) {
			return nil, fmt.Errorf("%w: product %q has %d available, %d requested", ErrInsufficientStock, productID, product.Stock, quantity)
		}

		var reservation *types.Reservation
		if keyed {
			reservation, err = s.placeHold(ctx, key, product, quantity)
		} else {
			reservation, err = s.decrement(ctx, product, quantity)
		}
		switch {
		case err == nil:
			return reservation, nil
		case errors.Is(err, ErrReservationReleased):
			return nil, err
		case errors.Is(err, inventoryports.ErrNotFound):
			return nil, fmt.Errorf("%w: product %q", ErrInvalidReference, productID)
		case errors.Is(err, inventoryports.ErrInsufficientStock):
			return nil, fmt.Errorf("%w: %w", ErrInsufficientStock, err)
		case isContextErr(err):
			return nil, err
		}
		lastErr = err
		s.logger.LogAttrs(ctx, slog.LevelDebug, "stock reservation retry",
			slog.String("product.id", productID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}
	if errors.Is(lastErr, inventoryports.ErrVersionConflict) {
		return nil, fmt.Errorf("%w: product %q after %d attempts: %w", ErrConcurrencyExceeded, productID, s.retry.MaxAttempts, lastErr)
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return nil, fmt.Errorf("reserve product %q: %w", productID, lastErr)
}

func (s *Service) decrement(ctx context.Context, product *inventorydomain.Product, quantity int) (*types.Reservation, error) {
	if _, err := s.inventory.TryDecrementStock(ctx, product.ID, product.Version, quantity); err != nil {
		return nil, err
	}
	return &types.Reservation{
		ProductID:     product.ID,
		ProductName:   product.Name,
		Quantity:      quantity,
		UnitPrice:     product.UnitPrice,
		PreviousStock: product.Stock,
		NewStock:      product.Stock - quantity,
	}, nil
}

func (s *Service) placeHold(ctx context.Context, key string, product *inventorydomain.Product, quantity int) (*types.Reservation, error) {
	hold, err := inventorydomain.NewHold(key, product, quantity)
	if err != nil {
		return nil, err
	}
	placed, err := s.holds.PlaceHold(ctx, *hold, product.Version)
	if placed == nil || (err != nil && !errors.Is(err, inventoryports.ErrHoldExists)) {
		if err == nil {
			err = fmt.Errorf("stock hold %q not returned", key)
		}
		return nil, err
	}
	return reservationFromHold(placed)
}

func reservationFromHold(hold *inventorydomain.Hold) (*types.Reservation, error) {
	if hold.Released {
		return nil, fmt.Errorf("%w: key %q", ErrReservationReleased, hold.Key)
	}
	return &types.Reservation{
		Key:           hold.Key,
		ProductID:     hold.ProductID,
		ProductName:   hold.ProductName,
		Quantity:      hold.Quantity,
		UnitPrice:     hold.UnitPrice,
		PreviousStock: hold.PreviousStock,
		NewStock:      hold.NewStock,
	}, nil
}

// release returns a reservation's units with the same conditional-write discipline.
// Keyed reservations go through the hold so a repeated release is a no-op.
func (s *Service) release(ctx context.Context, reservation types.Reservation) error {
	keyed := reservation.Key != "" && s.holds != nil
	var lastErr error
	for attempt := 1; attempt <= s.retry.CompensationAttempts; attempt++ {
		if attempt > 1 {
			s.wait(ctx, attempt-1)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		product, err := s.inventory.GetProduct(ctx, reservation.ProductID)
		if err != nil {
			if errors.Is(err, inventoryports.ErrNotFound) {
				return err
			}
			lastErr = err
			continue
		}
		if keyed {
			_, err = s.holds.ReleaseHold(ctx, reservation.Key, reservation.ProductID, product.Version)
		} else {
			_, err = s.inventory.TryIncrementStock(ctx, reservation.ProductID, product.Version, reservation.Quantity)
		}
		switch {
		case err == nil:
			return nil
		case errors.Is(err, inventoryports.ErrNotFound):
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("release %d units of product %q: %w", reservation.Quantity, reservation.ProductID, lastErr)
}

// compensate releases reservations in reverse order. It runs on a context that
// ignores caller cancellation so a cancelled checkout cannot leave stock under-counted.
// Failures are logged for the reconciliation job.
func (s *Service) compensate(ctx context.Context, reservations []types.Reservation) {
	if len(reservations) == 0 {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.retry.CompensationTimeout)
	defer cancel()
	for i := len(reservations) - 1; i >= 0; i-- {
		reservation := reservations[i]
		if err := s.release(cctx, reservation); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "stock compensation failed",
				slog.String("product.id", reservation.ProductID),
				slog.Int("quantity", reservation.Quantity),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "stock reservation released",
			slog.String("product.id", reservation.ProductID),
			slog.Int("quantity", reservation.Quantity),
		)
	}
}

func (s *Service) wait(ctx context.Context, attempt int) {
	if s.retry.Backoff <= 0 {
		return
	}
	timer := time.NewTimer(s.retry.Backoff * time.Duration(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
