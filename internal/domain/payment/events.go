package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCreatedEvent is emitted when an order is paid.
type PaymentCreatedEvent struct {
	PaymentID  string
	OrderID    string
	Amount     decimal.Decimal
	OccurredAt time.Time
}

func (PaymentCreatedEvent) EventName() string { return "payment.created" }

func NewPaymentCreatedEvent(p *Payment) PaymentCreatedEvent {
	return PaymentCreatedEvent{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		Amount:     p.Amount,
		OccurredAt: time.Now().UTC(),
	}
}

// PaymentVoidedEvent is emitted when a payment is deleted and the order
// reverted to its pre-payment status.
type PaymentVoidedEvent struct {
	PaymentID  string
	OrderID    string
	OccurredAt time.Time
}

func (PaymentVoidedEvent) EventName() string { return "payment.voided" }

func NewPaymentVoidedEvent(p *Payment) PaymentVoidedEvent {
	return PaymentVoidedEvent{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		OccurredAt: time.Now().UTC(),
	}
}
