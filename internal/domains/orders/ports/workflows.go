package ports

import (
	"context"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
)

// CheckoutOrchestrator runs cart checkouts either durably or inline.
type CheckoutOrchestrator interface {
	PlaceCartOrder(ctx context.Context, input types.PlaceCartOrderInput) (*domain.Order, error)
}
