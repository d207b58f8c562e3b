package memory

import (
	"context"
	"sync"
	"time"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

var (
	_ ports.IdempotencyStore  = (*IdempotencyStore)(nil)
	_ ports.IdempotencyPurger = (*IdempotencyStore)(nil)
)

// IdempotencyStore keeps placement keys in memory for development and tests.
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]ports.IdempotencyRecord
	now     func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		records: map[string]ports.IdempotencyRecord{},
		now:     time.Now,
	}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Save is first-writer-wins. A later record with a different hash or order
// gets the stored record back alongside ErrIdempotencyConflict.
func (s *IdempotencyStore) Save(_ context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[record.Key]; ok {
		if existing.RequestHash != record.RequestHash || existing.OrderID != record.OrderID {
			return &existing, ports.ErrIdempotencyConflict
		}
		return &existing, nil
	}
	now := s.now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[record.Key] = record
	saved := record
	return &saved, nil
}

func (s *IdempotencyStore) Forget(_ context.Context, key, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[key]; ok && existing.OrderID == orderID {
		delete(s.records, key)
	}
	return nil
}

// PurgeBefore drops records created before cutoff and reports how many went.
func (s *IdempotencyStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for key, record := range s.records {
		if record.CreatedAt.Before(cutoff) {
			delete(s.records, key)
			purged++
		}
	}
	return purged, nil
}
