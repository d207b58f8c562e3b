package ports

import (
	"context"
	"errors"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/domain"
)

var ErrNotFound = errors.New("customer not found")

// Repository persists customers and answers existence checks for order placement.
type Repository interface {
	Exists(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	Save(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
}
