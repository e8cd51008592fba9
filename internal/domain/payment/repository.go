package payment

import "context"

type Repository interface {
	// Insert stores the payment, failing with ErrDuplicate when the
	// order already has an active payment.
	Insert(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Payment, error)
	Delete(ctx context.Context, id string) error
	// DeleteByOrder removes all payments for the order and returns how
	// many were removed. Zero is not an error.
	DeleteByOrder(ctx context.Context, orderID string) (int, error)
}
