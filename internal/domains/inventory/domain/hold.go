package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidHoldKey = errors.New("stock hold key is required")

// Hold is stock taken out under a caller-chosen key. Placing or releasing the
// same key twice changes stock once.
type Hold struct {
	Key           string
	ProductID     string
	ProductName   string
	UnitPrice     decimal.Decimal
	Quantity      int
	PreviousStock int
	NewStock      int
	Released      bool
	CreatedAt     time.Time
}

// NewHold snapshots the product the hold is taken against. Stock figures assume
// the decrement lands on the version the product was read at.
func NewHold(key string, product *Product, quantity int) (*Hold, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidHoldKey
	}
	if quantity <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Hold{
		Key:           key,
		ProductID:     product.ID,
		ProductName:   product.Name,
		UnitPrice:     product.UnitPrice,
		Quantity:      quantity,
		PreviousStock: product.Stock,
		NewStock:      product.Stock - quantity,
	}, nil
}
