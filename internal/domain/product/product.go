package product

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("product: not found")
	ErrConflict          = errors.New("product: conflict")
	ErrInvalidPrice      = errors.New("product: price must be zero or greater")
	ErrInvalidStock      = errors.New("product: stock must be zero or greater")
	ErrInvalidQuantity   = errors.New("product: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("product: insufficient stock")
)

// Product is a catalog entry. Stock is mutated through the inventory
// ledger only; price uses decimal arithmetic, never floats.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(id, name, description string, price decimal.Decimal, stock int) (*Product, error) {
	if id == "" {
		return nil, errors.New("product: id is required")
	}
	if name == "" {
		return nil, errors.New("product: name is required")
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStock
	}
	now := time.Now().UTC()
	return &Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
