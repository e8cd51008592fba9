package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/froome/fulfillment/internal/domain/order"
)

type OrderItemRepository struct {
	mu sync.RWMutex
	// items by order id, then item id
	items map[string]map[string]*domain.Item
}

func NewOrderItemRepository() *OrderItemRepository {
	return &OrderItemRepository{items: make(map[string]map[string]*domain.Item)}
}

func (r *OrderItemRepository) Insert(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil || item.ID == "" || item.OrderID == "" {
		return fmt.Errorf("order item repository: id and order id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byOrder, ok := r.items[item.OrderID]
	if !ok {
		byOrder = make(map[string]*domain.Item)
		r.items[item.OrderID] = byOrder
	}
	if _, exists := byOrder[item.ID]; exists {
		return domain.ErrConflict
	}
	byOrder[item.ID] = item.Clone()
	return nil
}

func (r *OrderItemRepository) Get(ctx context.Context, orderID, itemID string) (*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[orderID][itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return item.Clone(), nil
}

func (r *OrderItemRepository) FindByProduct(ctx context.Context, orderID, productID string) (*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items[orderID] {
		if item.ProductID == productID {
			return item.Clone(), nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (r *OrderItemRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	items := make([]*domain.Item, 0, len(r.items[orderID]))
	for _, item := range r.items[orderID] {
		items = append(items, item.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *OrderItemRepository) Update(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil || item.ID == "" || item.OrderID == "" {
		return fmt.Errorf("order item repository: id and order id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.OrderID][item.ID]; !ok {
		return domain.ErrItemNotFound
	}
	r.items[item.OrderID][item.ID] = item.Clone()
	return nil
}

func (r *OrderItemRepository) Delete(ctx context.Context, orderID, itemID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	byOrder := r.items[orderID]
	if _, ok := byOrder[itemID]; !ok {
		return domain.ErrItemNotFound
	}
	delete(byOrder, itemID)
	if len(byOrder) == 0 {
		delete(r.items, orderID)
	}
	return nil
}
