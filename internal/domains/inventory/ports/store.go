package ports

import (
	"context"
	"errors"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/domain"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrVersionConflict   = errors.New("product version conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrHoldNotFound      = errors.New("stock hold not found")
	// ErrHoldExists is returned with the stored hold when the key was already placed.
	ErrHoldExists = errors.New("stock hold already placed")
)

// Store is the single chokepoint for stock mutation. Every write is conditional on
// the version read by the caller; a stale version yields ErrVersionConflict and
// nothing is changed.
type Store interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// TryDecrementStock removes amount units if version still matches and stock stays non-negative.
	TryDecrementStock(ctx context.Context, id string, version int64, amount int) (int64, error)
	// TryIncrementStock returns amount units to stock if version still matches.
	TryIncrementStock(ctx context.Context, id string, version int64, amount int) (int64, error)
}

// Catalog exposes product administration used for seeding and reporting.
type Catalog interface {
	SaveProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}

// Holds tracks keyed reservations so a retried reserve or release applies once.
// Stock writes stay conditional on the product version read by the caller.
type Holds interface {
	GetHold(ctx context.Context, key string) (*domain.Hold, error)
	// PlaceHold records the hold and decrements stock in one step.
	PlaceHold(ctx context.Context, hold domain.Hold, version int64) (*domain.Hold, error)
	// ReleaseHold returns the held units and marks the hold released. Releasing a
	// released hold is a no-op. An unknown key leaves a released marker so a late
	// PlaceHold for it fails with ErrHoldExists.
	ReleaseHold(ctx context.Context, key, productID string, version int64) (*domain.Hold, error)
}
