package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/froome/fulfillment/internal/domain/payment"
)

type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
	// active payment id per order; enforces one active payment
	byOrder map[string]string
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments: make(map[string]*domain.Payment),
		byOrder:  make(map[string]string),
	}
}

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	if p == nil || p.ID == "" || p.OrderID == "" {
		return fmt.Errorf("payment repository: id and order id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[p.ID]; exists {
		return domain.ErrDuplicate
	}
	if _, exists := r.byOrder[p.OrderID]; exists {
		return domain.ErrDuplicate
	}
	r.payments[p.ID] = p.Clone()
	r.byOrder[p.OrderID] = p.ID
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (*domain.Payment, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Payment
	if id, ok := r.byOrder[orderID]; ok {
		if p, found := r.payments[id]; found {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.payments, id)
	if r.byOrder[p.OrderID] == id {
		delete(r.byOrder, p.OrderID)
	}
	return nil
}

func (r *PaymentRepository) DeleteByOrder(ctx context.Context, orderID string) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return 0, nil
	}
	delete(r.payments, id)
	delete(r.byOrder, orderID)
	return 1, nil
}
