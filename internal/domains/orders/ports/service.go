package ports

import (
	"context"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
)

// Service exposes order placement and fulfillment use cases to adapters.
type Service interface {
	PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*domain.Order, error)
	PlaceCartOrder(ctx context.Context, input types.PlaceCartOrderInput) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]*domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// CheckoutSteps are the individually retryable saga steps of a cart checkout.
// Durable orchestrators drive them one by one and call ReleaseLine to compensate.
type CheckoutSteps interface {
	// PrepareCheckout validates the cart and customer and returns the merged, sorted lines.
	PrepareCheckout(ctx context.Context, input types.PlaceCartOrderInput) ([]types.CartItem, error)
	ValidateCustomer(ctx context.Context, customerID string) error
	// ReserveLine takes stock for one line. A non-empty key makes it repeatable:
	// the same key reserves once and returns the same reservation.
	ReserveLine(ctx context.Context, key string, item types.CartItem) (*types.Reservation, error)
	// ReleaseLine returns a reservation's units. Keyed reservations release once,
	// and releasing a key that never reserved is a no-op.
	ReleaseLine(ctx context.Context, reservation types.Reservation) error
	// RecordOrder writes the order. A non-empty orderID makes repeats return the stored order.
	RecordOrder(ctx context.Context, orderID, customerID string, reservations []types.Reservation) (*domain.Order, error)
	AnnouncePlacement(ctx context.Context, orderID string, reservations []types.Reservation) error
}
