package application

import (
	"errors"
	"fmt"

	customerdomain "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/domain"
	inventoryports "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/ports"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrInvalidReference signals an unknown customer or product. Not retried.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInsufficientStock signals a product cannot cover the requested quantity. Not retried.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConcurrencyExceeded signals contention outlasted the retry budget; the whole request may be retried later.
	ErrConcurrencyExceeded = errors.New("concurrency retries exhausted")
	// ErrInvalidTransition signals a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrReservationReleased signals a keyed reservation was compensated before it could be used.
	ErrReservationReleased = errors.New("reservation already released")

	ErrNotFound            = ports.ErrNotFound
	ErrIdempotencyConflict = ports.ErrIdempotencyConflict
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrInvalidCustomerID),
		errors.Is(err, domain.ErrInvalidProductID),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrNoLines),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, customerdomain.ErrInvalidCustomerID):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, domain.ErrInvalidTransition):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	case errors.Is(err, inventoryports.ErrInsufficientStock):
		return fmt.Errorf("%w: %w", ErrInsufficientStock, err)
	}
	return err
}
