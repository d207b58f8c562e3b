package ordersserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ordershttpmapper "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/http/mapper"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	ordersports "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

// IdempotencyKeyHeader lets clients retry placements safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderAPI wires HTTP transport with the orders service and checkout orchestration.
type OrderAPI struct {
	service   ordersports.Service
	checkouts ordersports.CheckoutOrchestrator
}

// NewOrderAPI creates an OrderAPI. A nil orchestrator runs cart checkouts on the service directly.
func NewOrderAPI(service ordersports.Service, checkouts ordersports.CheckoutOrchestrator) OrderAPI {
	return OrderAPI{service: service, checkouts: checkouts}
}

// Post /v1/orders
// Place a single-product order
func (api *OrderAPI) PlaceOrder(c *gin.Context) {
	var payload ordershttpmapper.PlaceOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := api.service.PlaceOrder(c.Request.Context(), ordershttpmapper.ToPlaceOrderInput(payload, idempotencyKey(c)))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ordershttpmapper.FromDomainOrder(order))
}

// Post /v1/orders/cart
// Check out a cart; all lines are reserved or none are
func (api *OrderAPI) PlaceCartOrder(c *gin.Context) {
	var payload ordershttpmapper.PlaceCartOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := api.placeCart(c.Request.Context(), ordershttpmapper.ToPlaceCartOrderInput(payload, idempotencyKey(c)))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ordershttpmapper.CartOrderResponse{
		ID:    order.ID,
		Order: ordershttpmapper.FromDomainOrder(order),
	})
}

func (api *OrderAPI) placeCart(ctx context.Context, input types.PlaceCartOrderInput) (*domain.Order, error) {
	if api.checkouts != nil {
		return api.checkouts.PlaceCartOrder(ctx, input)
	}
	return api.service.PlaceCartOrder(ctx, input)
}

// Get /v1/orders
// List orders newest first, optionally for one customer
func (api *OrderAPI) ListOrders(c *gin.Context) {
	filter := ordersports.ListFilter{CustomerID: c.Query("customerId")}
	orders, err := api.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordershttpmapper.FromDomainOrders(orders))
}

// Get /v1/orders/:orderId
// Find order by id
func (api *OrderAPI) GetOrder(c *gin.Context) {
	order, err := api.service.GetOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordershttpmapper.FromDomainOrder(order))
}

// Patch /v1/orders/:orderId/status
// Move an order along its lifecycle
func (api *OrderAPI) UpdateOrderStatus(c *gin.Context) {
	var payload ordershttpmapper.StatusUpdateRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	status, err := ordershttpmapper.ParseStatus(payload.Status)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := api.service.UpdateOrderStatus(c.Request.Context(), c.Param("orderId"), status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordershttpmapper.FromDomainOrder(order))
}

// Delete /v1/orders/:orderId
// Remove an order record (administrative; stock is not returned)
func (api *OrderAPI) DeleteOrder(c *gin.Context) {
	if err := api.service.DeleteOrder(c.Request.Context(), c.Param("orderId")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
}
