package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCustomerID = errors.New("customer id is required")
	ErrInvalidEmail      = errors.New("customer email is invalid")
)

// Customer is the buyer referenced by orders.
type Customer struct {
	ID              string
	Name            string
	Surname         string
	Username        string
	Email           string
	ShippingAddress string
}

// NewCustomer validates and constructs a customer record.
func NewCustomer(id, name, surname, username, email string) (*Customer, error) {
	c := &Customer{
		ID:       strings.TrimSpace(id),
		Name:     strings.TrimSpace(name),
		Surname:  strings.TrimSpace(surname),
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate enforces customer invariants.
func (c *Customer) Validate() error {
	if c.ID == "" {
		return ErrInvalidCustomerID
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// DisplayName joins name and surname, falling back to the username.
func (c *Customer) DisplayName() string {
	full := strings.TrimSpace(c.Name + " " + c.Surname)
	if full == "" {
		return c.Username
	}
	return full
}
