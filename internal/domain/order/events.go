package order

import "time"

// OrderCreatedEvent is emitted when a new order is opened for a user.
type OrderCreatedEvent struct {
	OrderID    string
	UserID     string
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted when an order is cancelled and its
// reserved stock returned.
type OrderCancelledEvent struct {
	OrderID    string
	UserID     string
	OccurredAt time.Time
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderDeletedEvent is emitted after a cascade removed the order and
// its dependents.
type OrderDeletedEvent struct {
	OrderID    string
	OccurredAt time.Time
}

func (OrderDeletedEvent) EventName() string { return "order.deleted" }

func NewOrderDeletedEvent(orderID string) OrderDeletedEvent {
	return OrderDeletedEvent{
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
	}
}
