package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application"
	orderstypes "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	ordersports "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

const (
	PrepareCheckoutActivityName   = "orders.activities.PrepareCheckout"
	ReserveLineActivityName       = "orders.activities.ReserveLine"
	ReleaseLineActivityName       = "orders.activities.ReleaseLine"
	RecordOrderActivityName       = "orders.activities.RecordOrder"
	AnnouncePlacementActivityName = "orders.activities.AnnouncePlacement"
)

// Application error types carried across the workflow boundary.
const (
	ErrorTypeInvalidInput        = "InvalidInput"
	ErrorTypeInvalidReference    = "InvalidReference"
	ErrorTypeInsufficientStock   = "InsufficientStock"
	ErrorTypeConcurrencyExceeded = "ConcurrencyExceeded"
	ErrorTypeReservationReleased = "ReservationReleased"
)

// ReserveLineInput is the payload of the ReserveLine activity. Retries of one
// attempt share ReservationKey, so stock is taken once.
type ReserveLineInput struct {
	ReservationKey string
	Item           orderstypes.CartItem
}

// RecordOrderInput is the payload of the RecordOrder activity.
type RecordOrderInput struct {
	OrderID      string
	CustomerID   string
	Reservations []orderstypes.Reservation
}

// AnnouncePlacementInput is the payload of the AnnouncePlacement activity.
type AnnouncePlacementInput struct {
	OrderID      string
	Reservations []orderstypes.Reservation
}

// Activities exposes the checkout saga steps to Temporal.
type Activities struct {
	steps ordersports.CheckoutSteps
}

func NewActivities(steps ordersports.CheckoutSteps) *Activities {
	return &Activities{steps: steps}
}

func (a *Activities) PrepareCheckout(ctx context.Context, input orderstypes.PlaceCartOrderInput) ([]orderstypes.CartItem, error) {
	logger := activity.GetLogger(ctx)
	if err := a.ready(); err != nil {
		return nil, err
	}
	items, err := a.steps.PrepareCheckout(ctx, input)
	if err != nil {
		logger.Warn("PrepareCheckout rejected cart", "customerId", input.CustomerID, "error", err)
		return nil, toApplicationError(err)
	}
	return items, nil
}

func (a *Activities) ReserveLine(ctx context.Context, input ReserveLineInput) (*orderstypes.Reservation, error) {
	logger := activity.GetLogger(ctx)
	if err := a.ready(); err != nil {
		return nil, err
	}
	item := input.Item
	reservation, err := a.steps.ReserveLine(ctx, input.ReservationKey, item)
	if err != nil {
		logger.Warn("ReserveLine failed", "productId", item.ProductID, "quantity", item.Quantity, "error", err)
		return nil, toApplicationError(err)
	}
	logger.Info("ReserveLine completed", "productId", item.ProductID, "newStock", reservation.NewStock)
	return reservation, nil
}

// ReleaseLine is the compensation for ReserveLine.
func (a *Activities) ReleaseLine(ctx context.Context, reservation orderstypes.Reservation) error {
	logger := activity.GetLogger(ctx)
	if err := a.ready(); err != nil {
		return err
	}
	if err := a.steps.ReleaseLine(ctx, reservation); err != nil {
		logger.Error("ReleaseLine failed", "productId", reservation.ProductID, "quantity", reservation.Quantity, "error", err)
		return err
	}
	logger.Info("ReleaseLine completed", "productId", reservation.ProductID, "quantity", reservation.Quantity)
	return nil
}

func (a *Activities) RecordOrder(ctx context.Context, input RecordOrderInput) (*domain.Order, error) {
	logger := activity.GetLogger(ctx)
	if err := a.ready(); err != nil {
		return nil, err
	}
	order, err := a.steps.RecordOrder(ctx, input.OrderID, input.CustomerID, input.Reservations)
	if err != nil {
		logger.Error("RecordOrder failed", "customerId", input.CustomerID, "error", err)
		return nil, toApplicationError(err)
	}
	logger.Info("RecordOrder completed", "orderId", order.ID)
	return order, nil
}

func (a *Activities) AnnouncePlacement(ctx context.Context, input AnnouncePlacementInput) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.steps.AnnouncePlacement(ctx, input.OrderID, input.Reservations)
}

func (a *Activities) ready() error {
	if a == nil || a.steps == nil {
		return errors.New("order checkout activities not initialized")
	}
	return nil
}

// toApplicationError tags business failures so the workflow stops retrying them
// and the caller can map them back to sentinel errors.
func toApplicationError(err error) error {
	switch {
	case errors.Is(err, application.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrorTypeInvalidInput, err)
	case errors.Is(err, application.ErrInvalidReference):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrorTypeInvalidReference, err)
	case errors.Is(err, application.ErrInsufficientStock):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrorTypeInsufficientStock, err)
	case errors.Is(err, application.ErrReservationReleased):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrorTypeReservationReleased, err)
	case errors.Is(err, application.ErrConcurrencyExceeded):
		return temporal.NewApplicationErrorWithCause(err.Error(), ErrorTypeConcurrencyExceeded, err)
	}
	return err
}

// FromApplicationError maps a workflow failure back to the application sentinel it was raised from.
func FromApplicationError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	var sentinel error
	switch appErr.Type() {
	case ErrorTypeInvalidInput:
		sentinel = application.ErrInvalidInput
	case ErrorTypeInvalidReference:
		sentinel = application.ErrInvalidReference
	case ErrorTypeInsufficientStock:
		sentinel = application.ErrInsufficientStock
	case ErrorTypeConcurrencyExceeded:
		sentinel = application.ErrConcurrencyExceeded
	case ErrorTypeReservationReleased:
		sentinel = application.ErrReservationReleased
	default:
		return err
	}
	return &checkoutFailure{sentinel: sentinel, message: appErr.Message()}
}

type checkoutFailure struct {
	sentinel error
	message  string
}

func (f *checkoutFailure) Error() string { return f.message }

func (f *checkoutFailure) Unwrap() error { return f.sentinel }
