package types

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PlaceOrderInput requests a single-product order.
type PlaceOrderInput struct {
	CustomerID     string
	ProductID      string
	Quantity       int
	IdempotencyKey string
}

// CartItem is one requested cart line.
type CartItem struct {
	ProductID string
	Quantity  int
}

// PlaceCartOrderInput requests an all-or-nothing multi-product checkout.
type PlaceCartOrderInput struct {
	CustomerID     string
	Items          []CartItem
	IdempotencyKey string
}

// Reservation records stock taken for one line, with the snapshot that goes
// into the order and the before/after stock for StockUpdated.
type Reservation struct {
	// Key is set when the stock was taken as a keyed hold.
	Key           string
	ProductID     string
	ProductName   string
	Quantity      int
	UnitPrice     decimal.Decimal
	PreviousStock int
	NewStock      int
}

// NormalizeCart trims ids, merges duplicate products and sorts lines by product id.
// Sorting gives every concurrent checkout the same acquisition order.
func NormalizeCart(items []CartItem) []CartItem {
	merged := make(map[string]int, len(items))
	for _, item := range items {
		merged[strings.TrimSpace(item.ProductID)] += item.Quantity
	}
	normalized := make([]CartItem, 0, len(merged))
	for id, quantity := range merged {
		normalized = append(normalized, CartItem{ProductID: id, Quantity: quantity})
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].ProductID < normalized[j].ProductID })
	return normalized
}
