package ports

import (
	"context"
	"errors"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict means the stored status no longer matches the expected one.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// ListFilter narrows ledger listings. Empty fields match everything.
type ListFilter struct {
	CustomerID string
}

// Ledger persists orders. Creation is append-only; the only mutation is a
// status change conditional on the expected current status.
type Ledger interface {
	Create(ctx context.Context, customerID string, lines []domain.LineItem) (*domain.Order, error)
	// CreateWithID is Create under a caller-chosen id. Repeating it returns the stored order.
	CreateWithID(ctx context.Context, id, customerID string, lines []domain.LineItem) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, expected, next domain.Status) (*domain.Order, error)
	// List returns matching orders newest first.
	List(ctx context.Context, filter ListFilter) ([]*domain.Order, error)
	Delete(ctx context.Context, id string) error
}
