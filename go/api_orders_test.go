package ordersserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	customermemory "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/adapters/memory"
	customerdomain "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/domain"
	inventorymemory "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/adapters/memory"
	inventorydomain "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/domain"
	ordershttpmapper "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/http/mapper"
	ordersmemory "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/memory"
	ordersapp "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application"
	ordersapptypes "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	ordersdomain "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	apierrors "github.com/seboge-Atlegang/part3Cloud/internal/shared/errors"
)

func newTestRouter(t *testing.T) (*gin.Engine, *inventorymemory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	inventory := inventorymemory.NewStore()
	for _, p := range []struct {
		id, price string
		stock     int
	}{{"p-1", "12.00", 5}, {"p-2", "3.50", 1}} {
		product, err := inventorydomain.NewProduct(p.id, "Product "+p.id, decimal.RequireFromString(p.price), p.stock)
		require.NoError(t, err)
		_, err = inventory.SaveProduct(ctx, product)
		require.NoError(t, err)
	}
	customers := customermemory.NewRepository()
	customer, err := customerdomain.NewCustomer("c-1", "Lerato", "Dlamini", "lerato", "")
	require.NoError(t, err)
	_, err = customers.Save(ctx, customer)
	require.NoError(t, err)

	svc := ordersapp.NewService(ordersmemory.NewLedger(), inventory, customers,
		ordersapp.WithIdempotencyStore(ordersmemory.NewIdempotencyStore()))
	router := gin.New()
	return NewRouterWithGinEngine(router, ApiHandleFunctions{OrderAPI: NewOrderAPI(svc, nil)}), inventory
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) apierrors.ProblemDetail {
	t.Helper()
	require.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	var problem apierrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestPlaceOrder_CreatesAndFetches(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/orders", map[string]any{"customerId": "c-1", "productId": "p-1", "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ordershttpmapper.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Submitted", created.Status)
	require.True(t, decimal.RequireFromString("24.00").Equal(created.TotalAmount))

	rec = doJSON(t, router, http.MethodGet, "/v1/orders/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/orders?customerId=c-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ordershttpmapper.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
}

func TestPlaceOrder_ErrorMapping(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/orders", map[string]any{"customerId": "c-1", "productId": "p-1", "quantity": 99})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, apierrors.TypeInsufficientStock, decodeProblem(t, rec).Type)

	rec = doJSON(t, router, http.MethodPost, "/v1/orders", map[string]any{"customerId": "ghost", "productId": "p-1", "quantity": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/orders", map[string]any{"customerId": "c-1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/orders/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "/problems/not-found", decodeProblem(t, rec).Type)
}

func TestPlaceCartOrder_AllOrNothingOverHTTP(t *testing.T) {
	router, inventory := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/orders/cart", map[string]any{
		"customerId": "c-1",
		"items":      []map[string]any{{"productId": "p-1", "quantity": 2}, {"productId": "p-2", "quantity": 100}},
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	product, err := inventory.GetProduct(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, 5, product.Stock)

	rec = doJSON(t, router, http.MethodPost, "/v1/orders/cart", map[string]any{
		"customerId": "c-1",
		"items":      []map[string]any{{"productId": "p-1", "quantity": 2}, {"productId": "p-2", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp ordershttpmapper.CartOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, resp.ID, resp.Order.ID)
	require.True(t, decimal.RequireFromString("27.50").Equal(resp.Order.TotalAmount))
}

func TestPlaceOrder_IdempotencyKeyReplays(t *testing.T) {
	router, inventory := newTestRouter(t)
	body := map[string]any{"customerId": "c-1", "productId": "p-1", "quantity": 1}

	first := doJSON(t, router, http.MethodPost, "/v1/orders", body, IdempotencyKeyHeader, "abc")
	second := doJSON(t, router, http.MethodPost, "/v1/orders", body, IdempotencyKeyHeader, "abc")
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())

	product, err := inventory.GetProduct(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, 4, product.Stock)
}

func TestUpdateOrderStatus_TransitionsAndRejections(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v1/orders", map[string]any{"customerId": "c-1", "productId": "p-1", "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ordershttpmapper.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	path := "/v1/orders/" + created.ID + "/status"

	rec = doJSON(t, router, http.MethodPatch, path, map[string]any{"status": "Completed"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, apierrors.TypeInvalidTransition, decodeProblem(t, rec).Type)

	rec = doJSON(t, router, http.MethodPatch, path, map[string]any{"status": "processing"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, path, map[string]any{"status": "Shipped"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/v1/orders/missing/status", map[string]any{"status": "Processing"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteOrder(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v1/orders", map[string]any{"customerId": "c-1", "productId": "p-1", "quantity": 1})
	var created ordershttpmapper.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodDelete, "/v1/orders/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, router, http.MethodDelete, "/v1/orders/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("orders_events_published_total 0\n"))
	})

	withoutMetrics := NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{})
	rec := doJSON(t, withoutMetrics, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, withoutMetrics, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	withMetrics := NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{Metrics: metrics})
	rec = doJSON(t, withMetrics, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "orders_events_published_total")
}

func TestPlaceCartOrder_UsesCheckoutOrchestrator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	checkouts := &recordingCheckouts{}
	router := NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{OrderAPI: NewOrderAPI(nil, checkouts)})

	rec := doJSON(t, router, http.MethodPost, "/v1/orders/cart", map[string]any{
		"customerId": "c-9",
		"items":      []map[string]any{{"productId": "p-1", "quantity": 1}},
	}, IdempotencyKeyHeader, " key-1 ")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "key-1", checkouts.got.IdempotencyKey)
	require.Equal(t, "c-9", checkouts.got.CustomerID)
}

type recordingCheckouts struct {
	got ordersapptypes.PlaceCartOrderInput
}

func (r *recordingCheckouts) PlaceCartOrder(_ context.Context, input ordersapptypes.PlaceCartOrderInput) (*ordersdomain.Order, error) {
	r.got = input
	return &ordersdomain.Order{ID: "o-cart", CustomerID: input.CustomerID, Status: ordersdomain.StatusSubmitted}, nil
}
