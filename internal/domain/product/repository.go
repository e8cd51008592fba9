package product

import "context"

type Repository interface {
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, offset, limit int) ([]*Product, error)
	// Update replaces name, description and price. The stored stock
	// count is preserved; stock moves only through AdjustStock.
	Update(ctx context.Context, p *Product) error
	// AdjustStock applies delta to the stored stock as one atomic step
	// and returns the new level. A delta that would take stock below
	// zero fails with ErrInsufficientStock and leaves stock unchanged.
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
	Delete(ctx context.Context, id string) error
}
