package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/ports"
)

var (
	_ ports.Store   = (*Store)(nil)
	_ ports.Catalog = (*Store)(nil)
	_ ports.Holds   = (*Store)(nil)
)

// Store is an in-memory inventory adapter. The mutex only makes the map safe;
// version checks still decide whether a write wins.
type Store struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	holds    map[string]domain.Hold
}

func NewStore() *Store {
	return &Store{
		products: map[string]*domain.Product{},
		holds:    map[string]domain.Hold{},
	}
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	product, ok := s.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *product
	return &clone, nil
}

func (s *Store) TryDecrementStock(_ context.Context, id string, version int64, amount int) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	if !ok {
		return 0, ports.ErrNotFound
	}
	if product.Version != version {
		return 0, ports.ErrVersionConflict
	}
	if product.Stock < amount {
		return 0, ports.ErrInsufficientStock
	}
	product.Stock -= amount
	product.Version++
	return product.Version, nil
}

func (s *Store) TryIncrementStock(_ context.Context, id string, version int64, amount int) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	if !ok {
		return 0, ports.ErrNotFound
	}
	if product.Version != version {
		return 0, ports.ErrVersionConflict
	}
	product.Stock += amount
	product.Version++
	return product.Version, nil
}

func (s *Store) GetHold(_ context.Context, key string) (*domain.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hold, ok := s.holds[key]
	if !ok {
		return nil, ports.ErrHoldNotFound
	}
	return &hold, nil
}

func (s *Store) PlaceHold(_ context.Context, hold domain.Hold, version int64) (*domain.Hold, error) {
	if hold.Key == "" {
		return nil, domain.ErrInvalidHoldKey
	}
	if hold.Quantity <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.holds[hold.Key]; ok {
		return &existing, ports.ErrHoldExists
	}
	product, ok := s.products[hold.ProductID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if product.Version != version {
		return nil, ports.ErrVersionConflict
	}
	if product.Stock < hold.Quantity {
		return nil, ports.ErrInsufficientStock
	}
	hold.PreviousStock = product.Stock
	product.Stock -= hold.Quantity
	product.Version++
	hold.NewStock = product.Stock
	hold.Released = false
	hold.CreatedAt = time.Now().UTC()
	s.holds[hold.Key] = hold
	return &hold, nil
}

func (s *Store) ReleaseHold(_ context.Context, key, productID string, version int64) (*domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.holds[key]
	if !ok {
		if _, known := s.products[productID]; !known {
			return nil, ports.ErrNotFound
		}
		hold = domain.Hold{Key: key, ProductID: productID, Released: true, CreatedAt: time.Now().UTC()}
		s.holds[key] = hold
		return &hold, nil
	}
	if hold.Released {
		return &hold, nil
	}
	product, ok := s.products[hold.ProductID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if product.Version != version {
		return nil, ports.ErrVersionConflict
	}
	product.Stock += hold.Quantity
	product.Version++
	hold.Released = true
	s.holds[key] = hold
	return &hold, nil
}

// SaveProduct inserts or replaces a catalog entry. Replacing bumps the version so
// in-flight reservations based on the old read are rejected.
func (s *Store) SaveProduct(_ context.Context, product *domain.Product) (*domain.Product, error) {
	if product == nil {
		return nil, errors.New("product is nil")
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	clone := *product
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.products[clone.ID]; ok {
		clone.Version = existing.Version + 1
	} else {
		clone.Version = 0
	}
	s.products[clone.ID] = &clone
	saved := clone
	return &saved, nil
}

func (s *Store) ListProducts(_ context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.Product, 0, len(s.products))
	for _, product := range s.products {
		clone := *product
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}
