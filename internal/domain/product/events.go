package product

import "time"

// StockReservedEvent is emitted when the ledger reserves stock.
type StockReservedEvent struct {
	ProductID  string
	Quantity   int
	Remaining  int
	OccurredAt time.Time
}

func (StockReservedEvent) EventName() string { return "inventory.reserved" }

func NewStockReservedEvent(productID string, quantity, remaining int) StockReservedEvent {
	return StockReservedEvent{
		ProductID:  productID,
		Quantity:   quantity,
		Remaining:  remaining,
		OccurredAt: time.Now().UTC(),
	}
}

// StockReleasedEvent is emitted when the ledger returns stock.
type StockReleasedEvent struct {
	ProductID  string
	Quantity   int
	Remaining  int
	OccurredAt time.Time
}

func (StockReleasedEvent) EventName() string { return "inventory.released" }

func NewStockReleasedEvent(productID string, quantity, remaining int) StockReleasedEvent {
	return StockReleasedEvent{
		ProductID:  productID,
		Quantity:   quantity,
		Remaining:  remaining,
		OccurredAt: time.Now().UTC(),
	}
}
