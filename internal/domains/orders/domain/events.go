package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "orders.order.created"
	EventStockUpdated       = "inventory.stock.updated"
	EventOrderStatusUpdated = "orders.order.status_updated"
)

// Event is the base interface for all events handed to the publisher.
// EventID is unique per event so consumers can drop redeliveries.
type Event interface {
	EventName() string
	EventID() string
	OccurredAt() time.Time
	// AggregateID keys the event for transports that partition by key.
	AggregateID() string
}

// BaseEvent provides common event metadata.
type BaseEvent struct {
	ID        string    `json:"eventId"`
	Timestamp time.Time `json:"occurredAt"`
}

// EventID returns the unique event identifier.
func (e BaseEvent) EventID() string {
	return e.ID
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// OrderLineSnapshot is the denormalized line carried by OrderCreated.
type OrderLineSnapshot struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderCreated is raised once per placed order.
type OrderCreated struct {
	BaseEvent
	OrderID      string              `json:"orderId"`
	CustomerID   string              `json:"customerId"`
	CustomerName string              `json:"customerName,omitempty"`
	Lines        []OrderLineSnapshot `json:"lines"`
	TotalAmount  decimal.Decimal     `json:"totalAmount"`
	OrderedAt    time.Time           `json:"orderDateUtc"`
	Status       Status              `json:"status"`
}

// EventName returns the event type identifier.
func (e OrderCreated) EventName() string {
	return EventOrderCreated
}

// AggregateID returns the order id.
func (e OrderCreated) AggregateID() string {
	return e.OrderID
}

// StockUpdated is raised once per product whose stock changed because of an order.
type StockUpdated struct {
	BaseEvent
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName"`
	OrderID       string `json:"orderId"`
	PreviousStock int    `json:"previousStock"`
	NewStock      int    `json:"newStock"`
	UpdatedBy     string `json:"updatedBy"`
}

// EventName returns the event type identifier.
func (e StockUpdated) EventName() string {
	return EventStockUpdated
}

// AggregateID returns the product id.
func (e StockUpdated) AggregateID() string {
	return e.ProductID
}

// OrderStatusUpdated is raised after a status transition commits.
type OrderStatusUpdated struct {
	BaseEvent
	OrderID        string `json:"orderId"`
	CustomerID     string `json:"customerId"`
	PreviousStatus Status `json:"previousStatus"`
	NewStatus      Status `json:"newStatus"`
	UpdatedBy      string `json:"updatedBy"`
}

// EventName returns the event type identifier.
func (e OrderStatusUpdated) EventName() string {
	return EventOrderStatusUpdated
}

// AggregateID returns the order id.
func (e OrderStatusUpdated) AggregateID() string {
	return e.OrderID
}

// NewOrderCreated builds the event from a committed order.
func NewOrderCreated(id string, order *Order, customerName string, at time.Time) OrderCreated {
	lines := make([]OrderLineSnapshot, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLineSnapshot{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    line.Subtotal(),
		})
	}
	return OrderCreated{
		BaseEvent:    BaseEvent{ID: id, Timestamp: at.UTC()},
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		CustomerName: customerName,
		Lines:        lines,
		TotalAmount:  order.Total(),
		OrderedAt:    order.OrderedAt,
		Status:       order.Status,
	}
}
