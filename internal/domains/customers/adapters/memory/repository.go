package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory customer persistence adapter.
type Repository struct {
	mu        sync.RWMutex
	customers map[string]*domain.Customer
}

func NewRepository() *Repository {
	return &Repository{customers: map[string]*domain.Customer{}}
}

func (r *Repository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.customers[id]
	return ok, nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	customer, ok := r.customers[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *customer
	return &clone, nil
}

func (r *Repository) Save(_ context.Context, customer *domain.Customer) (*domain.Customer, error) {
	if customer == nil {
		return nil, errors.New("customer is nil")
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	clone := *customer
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[clone.ID] = &clone
	saved := clone
	return &saved, nil
}
