package mapper

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	apierrors "github.com/seboge-Atlegang/part3Cloud/internal/shared/errors"
)

// PlaceOrderRequest is the single-product placement payload.
type PlaceOrderRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
	ProductID  string `json:"productId" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
}

// CartItem is one cart line in a checkout payload.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// PlaceCartOrderRequest is the multi-product checkout payload.
type PlaceCartOrderRequest struct {
	CustomerID string     `json:"customerId" binding:"required"`
	Items      []CartItem `json:"items" binding:"required"`
}

// StatusUpdateRequest carries the requested next status.
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderLine is the HTTP representation of a line snapshot.
type OrderLine struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Order is the HTTP representation of an order with its derived total.
type Order struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	Status      string          `json:"status"`
	OrderDate   time.Time       `json:"orderDateUtc"`
	Lines       []OrderLine     `json:"lines"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// CartOrderResponse echoes the new order id next to the order.
type CartOrderResponse struct {
	ID    string `json:"id"`
	Order Order  `json:"order"`
}

func ToPlaceOrderInput(req PlaceOrderRequest, idempotencyKey string) types.PlaceOrderInput {
	return types.PlaceOrderInput{
		CustomerID:     req.CustomerID,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		IdempotencyKey: idempotencyKey,
	}
}

func ToPlaceCartOrderInput(req PlaceCartOrderRequest, idempotencyKey string) types.PlaceCartOrderInput {
	items := make([]types.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, types.CartItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return types.PlaceCartOrderInput{
		CustomerID:     req.CustomerID,
		Items:          items,
		IdempotencyKey: idempotencyKey,
	}
}

// FromDomainOrder maps the aggregate, recomputing subtotals and the total.
func FromDomainOrder(order *domain.Order) Order {
	lines := make([]OrderLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    line.Subtotal(),
		})
	}
	return Order{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		OrderDate:   order.OrderedAt,
		Lines:       lines,
		TotalAmount: order.Total(),
	}
}

func FromDomainOrders(orders []*domain.Order) []Order {
	result := make([]Order, 0, len(orders))
	for _, order := range orders {
		result = append(result, FromDomainOrder(order))
	}
	return result
}

// ProblemFromError maps application errors to RFC 7807 problems.
func ProblemFromError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, application.ErrInvalidInput), errors.Is(err, application.ErrInvalidReference):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail("Order not found"), true
	case errors.Is(err, application.ErrInsufficientStock):
		return apierrors.ErrInsufficientStock.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidTransition):
		return apierrors.ErrInvalidTransition.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrConcurrencyExceeded):
		return apierrors.ErrConcurrencyExceeded.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrIdempotencyConflict):
		return apierrors.ErrIdempotencyConflict.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

// ParseStatus validates a transport status string.
func ParseStatus(raw string) (domain.Status, error) {
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}
