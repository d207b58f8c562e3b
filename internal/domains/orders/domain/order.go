package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates order progression.
type Status string

const (
	StatusSubmitted  Status = "Submitted"
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

var (
	ErrInvalidCustomerID = errors.New("customer id is required")
	ErrInvalidProductID  = errors.New("product id is required")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInvalidPrice      = errors.New("unit price must not be negative")
	ErrNoLines           = errors.New("order must contain at least one line")
	ErrInvalidStatus     = errors.New("order status is invalid")
	ErrInvalidTransition = errors.New("order status transition not allowed")
)

var transitions = map[Status][]Status{
	StatusSubmitted:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
}

// ParseStatus accepts the canonical names case-insensitively.
func ParseStatus(raw string) (Status, error) {
	for _, status := range []Status{StatusSubmitted, StatusProcessing, StatusCompleted, StatusCancelled} {
		if strings.EqualFold(strings.TrimSpace(raw), string(status)) {
			return status, nil
		}
	}
	return "", ErrInvalidStatus
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Self transitions are never allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LineItem freezes product name and price at the moment the order was placed.
type LineItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Subtotal is quantity multiplied by the price snapshot.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Validate enforces line invariants.
func (l LineItem) Validate() error {
	if strings.TrimSpace(l.ProductID) == "" {
		return ErrInvalidProductID
	}
	if l.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if l.UnitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// Order models the purchase order aggregate. The total is never stored; it is
// derived from the line snapshots on every call.
type Order struct {
	ID         string
	CustomerID string
	Lines      []LineItem
	OrderedAt  time.Time
	Status     Status
}

// NewOrder validates and constructs a Submitted order. Lines are copied.
func NewOrder(id, customerID string, lines []LineItem, orderedAt time.Time) (*Order, error) {
	order := &Order{
		ID:         id,
		CustomerID: strings.TrimSpace(customerID),
		Lines:      append([]LineItem(nil), lines...),
		OrderedAt:  orderedAt.UTC(),
		Status:     StatusSubmitted,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if o.CustomerID == "" {
		return ErrInvalidCustomerID
	}
	if len(o.Lines) == 0 {
		return ErrNoLines
	}
	for _, line := range o.Lines {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	if !isValidStatus(o.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// Total sums the line subtotals.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// TransitionTo moves the order to next if the state machine allows it.
func (o *Order) TransitionTo(next Status) error {
	if !isValidStatus(next) {
		return ErrInvalidStatus
	}
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	o.Status = next
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored snapshots.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]LineItem(nil), o.Lines...)
	return &clone
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusSubmitted, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}
