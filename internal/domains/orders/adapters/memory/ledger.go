package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

type entry struct {
	order *domain.Order
	seq   int64
}

// Ledger is an in-memory order persistence adapter.
type Ledger struct {
	mu      sync.RWMutex
	orders  map[string]entry
	nextSeq int64
	now     func() time.Time
	newID   func() string
}

func NewLedger() *Ledger {
	return &Ledger{
		orders: map[string]entry{},
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock overrides the time source for deterministic testing.
func (l *Ledger) WithClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// WithIDGenerator overrides order id assignment.
func (l *Ledger) WithIDGenerator(newID func() string) {
	if newID != nil {
		l.newID = newID
	}
}

func (l *Ledger) Create(ctx context.Context, customerID string, lines []domain.LineItem) (*domain.Order, error) {
	return l.CreateWithID(ctx, l.newID(), customerID, lines)
}

func (l *Ledger) CreateWithID(_ context.Context, id, customerID string, lines []domain.LineItem) (*domain.Order, error) {
	order, err := domain.NewOrder(id, customerID, lines, l.now())
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.orders[order.ID]; ok {
		return existing.order.Clone(), nil
	}
	l.nextSeq++
	l.orders[order.ID] = entry{order: order, seq: l.nextSeq}
	return order.Clone(), nil
}

func (l *Ledger) Get(_ context.Context, id string) (*domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return e.order.Clone(), nil
}

// UpdateStatus swaps the status only when it still equals expected.
func (l *Ledger) UpdateStatus(_ context.Context, id string, expected, next domain.Status) (*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if e.order.Status != expected {
		return nil, ports.ErrStatusConflict
	}
	updated := e.order.Clone()
	if err := updated.TransitionTo(next); err != nil {
		return nil, err
	}
	e.order = updated
	l.orders[id] = e
	return updated.Clone(), nil
}

func (l *Ledger) List(_ context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := make([]entry, 0, len(l.orders))
	for _, e := range l.orders {
		if filter.CustomerID != "" && e.order.CustomerID != filter.CustomerID {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.order.OrderedAt.Equal(b.order.OrderedAt) {
			return a.order.OrderedAt.After(b.order.OrderedAt)
		}
		return a.seq > b.seq
	})
	list := make([]*domain.Order, 0, len(entries))
	for _, e := range entries {
		list = append(list, e.order.Clone())
	}
	return list, nil
}

func (l *Ledger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[id]; !ok {
		return ports.ErrNotFound
	}
	delete(l.orders, id)
	return nil
}
