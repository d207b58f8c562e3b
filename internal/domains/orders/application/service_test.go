package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	customermemory "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/adapters/memory"
	customerdomain "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/domain"
	inventorymemory "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/adapters/memory"
	inventorydomain "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/domain"
	inventoryports "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/ports"
	ordermemory "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/memory"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) named(name string) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, event := range p.events {
		if event.EventName() == name {
			out = append(out, event)
		}
	}
	return out
}

type fixture struct {
	svc       *Service
	ledger    *ordermemory.Ledger
	inventory *inventorymemory.Store
	customers *customermemory.Repository
	publisher *recordingPublisher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		ledger:    ordermemory.NewLedger(),
		inventory: inventorymemory.NewStore(),
		customers: customermemory.NewRepository(),
		publisher: &recordingPublisher{},
	}
	customer, err := customerdomain.NewCustomer("c-1", "Thandi", "Mokoena", "thandi", "thandi@example.com")
	require.NoError(t, err)
	_, err = f.customers.Save(context.Background(), customer)
	require.NoError(t, err)

	opts = append([]Option{
		WithPublisher(f.publisher),
		WithIdempotencyStore(ordermemory.NewIdempotencyStore()),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, Backoff: 0}),
	}, opts...)
	f.svc = NewService(f.ledger, f.inventory, f.customers, opts...)
	return f
}

func (f *fixture) product(t *testing.T, id, price string, stock int) {
	t.Helper()
	product, err := inventorydomain.NewProduct(id, "Product "+id, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	_, err = f.inventory.SaveProduct(context.Background(), product)
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	product, err := f.inventory.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return product.Stock
}

func TestPlaceOrder_ReservesStockAndPublishes(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "12.50", 10)

	order, err := f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, domain.StatusSubmitted, order.Status)
	require.Len(t, order.Lines, 1)
	require.Equal(t, "Product p-1", order.Lines[0].ProductName)
	require.True(t, decimal.RequireFromString("37.50").Equal(order.Total()))
	require.Equal(t, 7, f.stock(t, "p-1"))

	created := f.publisher.named(domain.EventOrderCreated)
	require.Len(t, created, 1)
	event := created[0].(domain.OrderCreated)
	require.Equal(t, order.ID, event.OrderID)
	require.Equal(t, "Thandi Mokoena", event.CustomerName)

	stock := f.publisher.named(domain.EventStockUpdated)
	require.Len(t, stock, 1)
	stockEvent := stock[0].(domain.StockUpdated)
	require.Equal(t, 10, stockEvent.PreviousStock)
	require.Equal(t, 7, stockEvent.NewStock)
	require.Equal(t, "Order System", stockEvent.UpdatedBy)
	require.NotEqual(t, event.EventID(), stockEvent.EventID())
}

func TestPlaceOrder_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 5)

	cases := []types.PlaceOrderInput{
		{CustomerID: "", ProductID: "p-1", Quantity: 1},
		{CustomerID: "c-1", ProductID: " ", Quantity: 1},
		{CustomerID: "c-1", ProductID: "p-1", Quantity: 0},
		{CustomerID: "c-1", ProductID: "p-1", Quantity: -2},
	}
	for _, input := range cases {
		_, err := f.svc.PlaceOrder(context.Background(), input)
		require.ErrorIs(t, err, ErrInvalidInput)
	}
	require.Equal(t, 5, f.stock(t, "p-1"))
}

func TestPlaceOrder_UnknownReferences(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 5)

	_, err := f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "ghost", ProductID: "p-1", Quantity: 1})
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "c-1", ProductID: "nope", Quantity: 1})
	require.ErrorIs(t, err, ErrInvalidReference)
	require.Equal(t, 5, f.stock(t, "p-1"))
}

func TestPlaceOrder_InsufficientStockLeavesNoOrder(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 2)

	_, err := f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 3})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, 2, f.stock(t, "p-1"))

	orders, err := f.svc.ListOrders(context.Background(), ports.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, orders)
	require.Empty(t, f.publisher.named(domain.EventOrderCreated))
}

func TestPlaceOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t, WithRetryPolicy(RetryPolicy{MaxAttempts: 100, Backoff: 0}))
	f.product(t, "p-1", "1.00", 10)

	const buyers = 30
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 1})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientStock) && !errors.Is(err, ErrConcurrencyExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	remaining := f.stock(t, "p-1")
	require.GreaterOrEqual(t, remaining, 0)
	require.Equal(t, 10, succeeded+remaining)
	orders, err := f.svc.ListOrders(context.Background(), ports.ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, succeeded)
}

func TestPlaceOrder_TwoBuyersCompeteForLimitedStock(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 3})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientStock)
			failures++
		}
	}
	require.Equal(t, 1, failures)
	require.Equal(t, 2, f.stock(t, "p-1"))
}

func TestPlaceCartOrder_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "5.00", 10)
	f.product(t, "p-2", "7.00", 1)

	_, err := f.svc.PlaceCartOrder(context.Background(), types.PlaceCartOrderInput{
		CustomerID: "c-1",
		Items:      []types.CartItem{{ProductID: "p-1", Quantity: 2}, {ProductID: "p-2", Quantity: 100}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, 10, f.stock(t, "p-1"))
	require.Equal(t, 1, f.stock(t, "p-2"))

	orders, err := f.svc.ListOrders(context.Background(), ports.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, orders)
	require.Empty(t, f.publisher.named(domain.EventStockUpdated))
}

func TestPlaceCartOrder_MergesDuplicatesAndTotals(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "10.00", 10)
	f.product(t, "p-2", "4.75", 10)

	order, err := f.svc.PlaceCartOrder(context.Background(), types.PlaceCartOrderInput{
		CustomerID: "c-1",
		Items: []types.CartItem{
			{ProductID: "p-2", Quantity: 1},
			{ProductID: "p-1", Quantity: 2},
			{ProductID: "p-2", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	require.Equal(t, "p-1", order.Lines[0].ProductID)
	require.Equal(t, 2, order.Lines[1].Quantity)
	require.True(t, decimal.RequireFromString("29.50").Equal(order.Total()))
	require.Equal(t, 8, f.stock(t, "p-1"))
	require.Equal(t, 8, f.stock(t, "p-2"))
	require.Len(t, f.publisher.named(domain.EventStockUpdated), 2)
}

func TestPlaceCartOrder_RejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PlaceCartOrder(context.Background(), types.PlaceCartOrderInput{CustomerID: "c-1"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

// cancellingStore cancels the caller's context when a given product is read.
type cancellingStore struct {
	inventoryports.Store
	productID string
	cancel    context.CancelFunc
}

func (s *cancellingStore) GetProduct(ctx context.Context, id string) (*inventorydomain.Product, error) {
	if id == s.productID {
		s.cancel()
		return nil, context.Canceled
	}
	return s.Store.GetProduct(ctx, id)
}

func TestPlaceCartOrder_CancellationStillCompensates(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 10)
	f.product(t, "p-2", "1.00", 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &cancellingStore{Store: f.inventory, productID: "p-2", cancel: cancel}
	svc := NewService(f.ledger, store, f.customers, WithRetryPolicy(RetryPolicy{MaxAttempts: 3}))

	_, err := svc.PlaceCartOrder(ctx, types.PlaceCartOrderInput{
		CustomerID: "c-1",
		Items:      []types.CartItem{{ProductID: "p-1", Quantity: 4}, {ProductID: "p-2", Quantity: 1}},
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 10, f.stock(t, "p-1"))
}

func TestPlaceOrder_SnapshotSurvivesCatalogEdit(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "3.00", 10)

	order, err := f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 2})
	require.NoError(t, err)

	f.product(t, "p-1", "99.00", 50)

	stored, err := f.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("3.00").Equal(stored.Lines[0].UnitPrice))
	require.True(t, decimal.RequireFromString("6.00").Equal(stored.Total()))
}

func TestPlaceOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	f.product(t, "p-1", "1.00", 5)

	order, err := f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 1})
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)
	require.Equal(t, 4, f.stock(t, "p-1"))
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 5)
	input := types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 2, IdempotencyKey: "key-1"}

	first, err := f.svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 3, f.stock(t, "p-1"))
	require.Len(t, f.publisher.named(domain.EventOrderCreated), 1)

	input.Quantity = 1
	_, err = f.svc.PlaceOrder(context.Background(), input)
	require.ErrorIs(t, err, ErrIdempotencyConflict)
}

func TestPlaceCartOrder_IdempotencyIgnoresLineOrder(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 5)
	f.product(t, "p-2", "1.00", 5)

	first, err := f.svc.PlaceCartOrder(context.Background(), types.PlaceCartOrderInput{
		CustomerID: "c-1", IdempotencyKey: "cart-1",
		Items: []types.CartItem{{ProductID: "p-1", Quantity: 1}, {ProductID: "p-2", Quantity: 1}},
	})
	require.NoError(t, err)
	second, err := f.svc.PlaceCartOrder(context.Background(), types.PlaceCartOrderInput{
		CustomerID: "c-1", IdempotencyKey: "cart-1",
		Items: []types.CartItem{{ProductID: "p-2", Quantity: 1}, {ProductID: "p-1", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 4, f.stock(t, "p-1"))
}

func placeOne(t *testing.T, f *fixture) *domain.Order {
	t.Helper()
	f.product(t, "p-1", "2.00", 10)
	order, err := f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 1})
	require.NoError(t, err)
	return order
}

func TestUpdateOrderStatus_FollowsStateMachine(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f)
	ctx := context.Background()

	_, err := f.svc.UpdateOrderStatus(ctx, order.ID, domain.StatusCompleted)
	require.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := f.svc.UpdateOrderStatus(ctx, order.ID, domain.StatusProcessing)
	require.NoError(t, err)
	require.Equal(t, domain.StatusProcessing, updated.Status)

	updated, err = f.svc.UpdateOrderStatus(ctx, order.ID, domain.StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, updated.Status)

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, domain.StatusCompleted)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, domain.StatusCancelled)
	require.ErrorIs(t, err, ErrInvalidTransition)

	events := f.publisher.named(domain.EventOrderStatusUpdated)
	require.Len(t, events, 2)
	last := events[1].(domain.OrderStatusUpdated)
	require.Equal(t, domain.StatusProcessing, last.PreviousStatus)
	require.Equal(t, domain.StatusCompleted, last.NewStatus)
	require.Equal(t, "System", last.UpdatedBy)
}

func TestUpdateOrderStatus_UnknownOrderAndStatus(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f)

	_, err := f.svc.UpdateOrderStatus(context.Background(), "missing", domain.StatusProcessing)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.UpdateOrderStatus(context.Background(), order.ID, domain.Status("Shipped"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateOrderStatus_CancelDoesNotRestock(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f)

	_, err := f.svc.UpdateOrderStatus(context.Background(), order.ID, domain.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, 9, f.stock(t, "p-1"))
}

// racingLedger simulates a concurrent writer landing between read and write.
type racingLedger struct {
	ports.Ledger
	conflicts int
	sneak     func(ctx context.Context, id string)
}

func (l *racingLedger) UpdateStatus(ctx context.Context, id string, expected, next domain.Status) (*domain.Order, error) {
	if l.conflicts > 0 {
		l.conflicts--
		if l.sneak != nil {
			l.sneak(ctx, id)
		}
		return nil, ports.ErrStatusConflict
	}
	return l.Ledger.UpdateStatus(ctx, id, expected, next)
}

func TestUpdateOrderStatus_RetriesOnceAfterConflict(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f)
	ledger := &racingLedger{Ledger: f.ledger, conflicts: 1}
	svc := NewService(ledger, f.inventory, f.customers)

	updated, err := svc.UpdateOrderStatus(context.Background(), order.ID, domain.StatusProcessing)
	require.NoError(t, err)
	require.Equal(t, domain.StatusProcessing, updated.Status)
}

func TestUpdateOrderStatus_RevalidatesAfterConflict(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f)
	ledger := &racingLedger{Ledger: f.ledger, conflicts: 1, sneak: func(ctx context.Context, id string) {
		_, err := f.ledger.UpdateStatus(ctx, id, domain.StatusSubmitted, domain.StatusCancelled)
		require.NoError(t, err)
	}}
	svc := NewService(ledger, f.inventory, f.customers)

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID, domain.StatusProcessing)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateOrderStatus_GivesUpAfterSecondConflict(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f)
	ledger := &racingLedger{Ledger: f.ledger, conflicts: 2}
	svc := NewService(ledger, f.inventory, f.customers)

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID, domain.StatusProcessing)
	require.ErrorIs(t, err, ErrConcurrencyExceeded)

	stored, err := f.ledger.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSubmitted, stored.Status)
}

// conflictingStore always loses the version race.
type conflictingStore struct {
	inventoryports.Store
}

func (s conflictingStore) TryDecrementStock(context.Context, string, int64, int) (int64, error) {
	return 0, inventoryports.ErrVersionConflict
}

func TestPlaceOrder_ConcurrencyExceededAfterRetries(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 5)
	svc := NewService(f.ledger, conflictingStore{Store: f.inventory}, f.customers,
		WithRetryPolicy(RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}))

	_, err := svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 1})
	require.ErrorIs(t, err, ErrConcurrencyExceeded)
	require.Equal(t, 5, f.stock(t, "p-1"))
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	order := placeOne(t, f)

	require.NoError(t, f.svc.DeleteOrder(context.Background(), order.ID))
	_, err := f.svc.GetOrder(context.Background(), order.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReserveLine_SameKeyReservesOnce(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "4.00", 2)
	ctx := context.Background()
	item := types.CartItem{ProductID: "p-1", Quantity: 2}

	first, err := f.svc.ReserveLine(ctx, "wf-1/p-1", item)
	require.NoError(t, err)
	require.Equal(t, "wf-1/p-1", first.Key)
	require.Equal(t, 0, f.stock(t, "p-1"))

	again, err := f.svc.ReserveLine(ctx, "wf-1/p-1", item)
	require.NoError(t, err)
	require.Equal(t, first, again)
	require.Equal(t, 0, f.stock(t, "p-1"))

	require.NoError(t, f.svc.ReleaseLine(ctx, *first))
	require.NoError(t, f.svc.ReleaseLine(ctx, *first))
	require.Equal(t, 2, f.stock(t, "p-1"))

	_, err = f.svc.ReserveLine(ctx, "wf-1/p-1", item)
	require.ErrorIs(t, err, ErrReservationReleased)
	require.Equal(t, 2, f.stock(t, "p-1"))
}

func TestReleaseLine_UnknownKeyIsNoop(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "4.00", 5)

	require.NoError(t, f.svc.ReleaseLine(context.Background(), types.Reservation{Key: "wf-2/p-1", ProductID: "p-1", Quantity: 3}))
	require.Equal(t, 5, f.stock(t, "p-1"))
}

var errLedgerDown = errors.New("ledger unavailable")

type failingLedger struct {
	ports.Ledger
}

func (failingLedger) Create(context.Context, string, []domain.LineItem) (*domain.Order, error) {
	return nil, errLedgerDown
}

func TestPlaceOrder_LedgerFailureReleasesStock(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 5)
	svc := NewService(failingLedger{Ledger: f.ledger}, f.inventory, f.customers, WithPublisher(f.publisher))

	_, err := svc.PlaceOrder(context.Background(), types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 2})
	require.ErrorIs(t, err, errLedgerDown)
	require.Equal(t, 5, f.stock(t, "p-1"))
	require.Empty(t, f.publisher.named(domain.EventOrderCreated))
}

func TestPlaceCartOrder_LedgerFailureReleasesEveryLine(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 5)
	f.product(t, "p-2", "1.00", 3)
	svc := NewService(failingLedger{Ledger: f.ledger}, f.inventory, f.customers)

	_, err := svc.PlaceCartOrder(context.Background(), types.PlaceCartOrderInput{
		CustomerID: "c-1",
		Items:      []types.CartItem{{ProductID: "p-1", Quantity: 2}, {ProductID: "p-2", Quantity: 3}},
	})
	require.ErrorIs(t, err, errLedgerDown)
	require.Equal(t, 5, f.stock(t, "p-1"))
	require.Equal(t, 3, f.stock(t, "p-2"))

	orders, err := f.ledger.List(context.Background(), ports.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, orders)
}

// raceLostStore behaves as if another request saved the key between replay and remember.
type raceLostStore struct {
	ports.IdempotencyStore
	winner ports.IdempotencyRecord
}

func (s *raceLostStore) Get(context.Context, string) (*ports.IdempotencyRecord, error) {
	return nil, nil
}

func (s *raceLostStore) Save(context.Context, ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	winner := s.winner
	return &winner, ports.ErrIdempotencyConflict
}

func TestPlaceOrder_IdempotencyRaceLoserIsCancelled(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 10)
	ctx := context.Background()

	input := types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 2, IdempotencyKey: "k-race"}
	winner, err := f.svc.PlaceOrder(ctx, types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 2})
	require.NoError(t, err)
	hash, err := FingerprintPlaceOrder(input)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	store := &raceLostStore{winner: ports.IdempotencyRecord{Key: "k-race", RequestHash: hash, OrderID: winner.ID}}
	svc := NewService(f.ledger, f.inventory, f.customers, WithIdempotencyStore(store), WithPublisher(publisher))

	got, err := svc.PlaceOrder(ctx, input)
	require.NoError(t, err)
	require.Equal(t, winner.ID, got.ID)
	require.Equal(t, 8, f.stock(t, "p-1"))
	require.Empty(t, publisher.named(domain.EventOrderCreated))

	orders, err := f.ledger.List(ctx, ports.ListFilter{CustomerID: "c-1"})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, order := range orders {
		if order.ID == winner.ID {
			require.Equal(t, domain.StatusSubmitted, order.Status)
			continue
		}
		require.Equal(t, domain.StatusCancelled, order.Status)
	}

	store.winner.RequestHash = "another-request"
	_, err = svc.PlaceOrder(ctx, input)
	require.ErrorIs(t, err, ErrIdempotencyConflict)
	require.Equal(t, 8, f.stock(t, "p-1"))
}

type contendedStore struct {
	inventoryports.Store
	productID string
}

func (s contendedStore) TryDecrementStock(ctx context.Context, id string, version int64, amount int) (int64, error) {
	if id == s.productID {
		return 0, inventoryports.ErrVersionConflict
	}
	return s.Store.TryDecrementStock(ctx, id, version, amount)
}

func TestPlaceCartOrder_ConcurrencyExceededMidCartReleasesEarlierLines(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 10)
	f.product(t, "p-2", "1.00", 10)
	svc := NewService(f.ledger, contendedStore{Store: f.inventory, productID: "p-2"}, f.customers,
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3}))

	_, err := svc.PlaceCartOrder(context.Background(), types.PlaceCartOrderInput{
		CustomerID: "c-1",
		Items:      []types.CartItem{{ProductID: "p-2", Quantity: 1}, {ProductID: "p-1", Quantity: 3}},
	})
	require.ErrorIs(t, err, ErrConcurrencyExceeded)
	require.Equal(t, 10, f.stock(t, "p-1"))
	require.Equal(t, 10, f.stock(t, "p-2"))

	orders, err := f.ledger.List(context.Background(), ports.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, orders)
}

type vanishingStore struct {
	inventoryports.Store
	increments int
}

func (s *vanishingStore) TryIncrementStock(context.Context, string, int64, int) (int64, error) {
	s.increments++
	return 0, inventoryports.ErrNotFound
}

func TestRelease_StopsWhenProductDisappears(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 5)
	store := &vanishingStore{Store: f.inventory}
	svc := NewService(f.ledger, store, f.customers, WithRetryPolicy(RetryPolicy{CompensationAttempts: 5}))

	err := svc.ReleaseLine(context.Background(), types.Reservation{ProductID: "p-1", Quantity: 1})
	require.ErrorIs(t, err, inventoryports.ErrNotFound)
	require.Equal(t, 1, store.increments)
}

func TestPlaceOrder_KeyOfDeletedOrderPlacesAgain(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p-1", "1.00", 5)
	ctx := context.Background()
	input := types.PlaceOrderInput{CustomerID: "c-1", ProductID: "p-1", Quantity: 2, IdempotencyKey: "key-del"}

	first, err := f.svc.PlaceOrder(ctx, input)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteOrder(ctx, first.ID))

	second, err := f.svc.PlaceOrder(ctx, input)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 1, f.stock(t, "p-1"))

	replayed, err := f.svc.PlaceOrder(ctx, input)
	require.NoError(t, err)
	require.Equal(t, second.ID, replayed.ID)
	require.Equal(t, 1, f.stock(t, "p-1"))
}
