package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProductID = errors.New("product id is required")
	ErrInvalidName      = errors.New("product name is required")
	ErrInvalidPrice     = errors.New("unit price must not be negative")
	ErrNegativeStock    = errors.New("stock must not be negative")
	ErrInvalidAmount    = errors.New("stock amount must be greater than zero")
)

// Product is the catalog entry whose stock is guarded by optimistic concurrency.
// Version changes on every stock write and is opaque to callers.
type Product struct {
	ID          string
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	Stock       int
	Version     int64
}

// NewProduct validates and constructs a catalog product at version zero.
func NewProduct(id, name string, unitPrice decimal.Decimal, stock int) (*Product, error) {
	p := &Product{
		ID:        strings.TrimSpace(id),
		Name:      strings.TrimSpace(name),
		UnitPrice: unitPrice,
		Stock:     stock,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate enforces catalog invariants.
func (p *Product) Validate() error {
	if p.ID == "" {
		return ErrInvalidProductID
	}
	if p.Name == "" {
		return ErrInvalidName
	}
	if p.UnitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// CanCover reports whether the current stock satisfies the requested amount.
func (p *Product) CanCover(amount int) bool {
	return amount > 0 && p.Stock >= amount
}
