package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, offset, limit int) ([]*Order, error)
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	// UpdateStatus applies a compare-and-set on the stored status. It
	// returns ErrConflict when the current status no longer equals from,
	// so racing transitions cannot both win.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	Delete(ctx context.Context, id string) error
}

type ItemRepository interface {
	Insert(ctx context.Context, item *Item) error
	Get(ctx context.Context, orderID, itemID string) (*Item, error)
	// FindByProduct returns the order's line for the given product, or
	// ErrItemNotFound when the order has no such line.
	FindByProduct(ctx context.Context, orderID, productID string) (*Item, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, orderID, itemID string) error
}
