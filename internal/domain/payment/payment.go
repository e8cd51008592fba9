package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("payment: not found")
	// ErrDuplicate signals a second active payment for the same order.
	ErrDuplicate     = errors.New("payment: order already has an active payment")
	ErrInvalidAmount = errors.New("payment: amount must be zero or greater")
)

// Payment records a charge against an order. At most one active payment
// exists per order; amount equals the sum of the order's line totals at
// creation time.
type Payment struct {
	ID      string
	OrderID string
	Amount  decimal.Decimal
	PaidAt  time.Time
}

func New(id, orderID string, amount decimal.Decimal) (*Payment, error) {
	if id == "" {
		return nil, errors.New("payment: id is required")
	}
	if orderID == "" {
		return nil, errors.New("payment: order id is required")
	}
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	return &Payment{
		ID:      id,
		OrderID: orderID,
		Amount:  amount,
		PaidAt:  time.Now().UTC(),
	}, nil
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
