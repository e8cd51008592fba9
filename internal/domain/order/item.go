package order

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Item is a line item owned exclusively by its order. Price captures
// unit price x quantity at reservation time.
type Item struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// NewItem creates a line item, capturing unitPrice x quantity.
func NewItem(id, orderID, productID string, quantity int, unitPrice decimal.Decimal) (*Item, error) {
	if id == "" {
		return nil, errors.New("order: item id is required")
	}
	if orderID == "" {
		return nil, errors.New("order: item order id is required")
	}
	if productID == "" {
		return nil, errors.New("order: item product id is required")
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	it := &Item{
		ID:        id,
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
	}
	it.Reprice(unitPrice)
	return it, nil
}

// Reprice recomputes the captured line total from the given unit price
// and the item's current quantity.
func (i *Item) Reprice(unitPrice decimal.Decimal) {
	i.Price = unitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}
