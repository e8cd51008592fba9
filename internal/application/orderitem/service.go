package orderitem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/froome/fulfillment/internal/application"
	"github.com/froome/fulfillment/internal/auth"
	domain "github.com/froome/fulfillment/internal/domain/order"
	domproduct "github.com/froome/fulfillment/internal/domain/product"
	"github.com/froome/fulfillment/internal/observability"
	"github.com/froome/fulfillment/internal/observability/logctx"
	"github.com/froome/fulfillment/internal/pkg/locker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Ledger is the stock contract the item manager drives.
type Ledger interface {
	Reserve(ctx context.Context, productID string, quantity int) error
	Release(ctx context.Context, productID string, quantity int) error
	Adjust(ctx context.Context, productID string, oldQuantity, newQuantity int) error
}

type IDGenerator interface {
	NewID() string
}

// Service manages an order's line items, keeping the stock ledger and
// the item store consistent: on failure of either sub-step the visible
// state is as if neither happened.
type Service struct {
	orders   domain.Repository
	items    domain.ItemRepository
	products domproduct.Repository
	ledger   Ledger
	locks    *locker.KeyedMutex
	idGen    IDGenerator
	tel      observability.Telemetry
	log      observability.Logger
}

func NewService(
	orders domain.Repository,
	items domain.ItemRepository,
	products domproduct.Repository,
	ledger Ledger,
	locks *locker.KeyedMutex,
	idGen IDGenerator,
	tel observability.Telemetry,
) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		orders:   orders,
		items:    items,
		products: products,
		ledger:   ledger,
		locks:    locks,
		idGen:    idGen,
		tel:      tel,
		log:      tel.Logger().With(observability.F("service", "order_item_manager")),
	}
}

// AddItem reserves stock and appends a line item. When the order
// already holds a line for the product, quantities are merged and the
// captured price recomputed from the current unit price.
func (s *Service) AddItem(ctx context.Context, cap auth.Capability, orderID, productID string, quantity int) (_ *domain.Item, err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "orderitem.add", start, err) }()

	ctx, span := s.tel.Tracer().Start(ctx, "OrderItem.Add",
		attribute.String("order.id", orderID),
		attribute.String("product.id", productID),
		attribute.Int("quantity", quantity),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "add_item_failed")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}()

	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err = cap.Require(o.UserID); err != nil {
		return nil, err
	}
	if !o.Status.Modifiable() {
		return nil, domain.ErrNotModifiable
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	logger := logctx.FromOr(ctx, s.log)

	existing, findErr := s.items.FindByProduct(ctx, orderID, productID)
	switch {
	case findErr == nil:
		// Merge into the existing line: reserve only the increment.
		if err = s.ledger.Reserve(ctx, productID, quantity); err != nil {
			return nil, err
		}
		existing.Quantity += quantity
		existing.Reprice(p.Price)
		if err = s.items.Update(ctx, existing); err != nil {
			s.compensateRelease(ctx, productID, quantity)
			return nil, fmt.Errorf("orderitem: merge line: %w", err)
		}
		logger.Info("item_merged",
			observability.F("order_id", orderID),
			observability.F("item_id", existing.ID),
			observability.F("quantity", existing.Quantity),
		)
		return existing, nil
	case errors.Is(findErr, domain.ErrItemNotFound):
		// fall through to create
	default:
		return nil, findErr
	}

	if err = s.ledger.Reserve(ctx, productID, quantity); err != nil {
		return nil, err
	}
	item, err := domain.NewItem(s.idGen.NewID(), orderID, productID, quantity, p.Price)
	if err != nil {
		s.compensateRelease(ctx, productID, quantity)
		return nil, err
	}
	if err = s.items.Insert(ctx, item); err != nil {
		s.compensateRelease(ctx, productID, quantity)
		return nil, fmt.Errorf("orderitem: insert line: %w", err)
	}
	logger.Info("item_added",
		observability.F("order_id", orderID),
		observability.F("item_id", item.ID),
		observability.F("product_id", productID),
		observability.F("quantity", quantity),
	)
	return item, nil
}

// UpdateItem replaces a line's product and quantity, applying the net
// stock effect as a single adjustment per product.
func (s *Service) UpdateItem(ctx context.Context, cap auth.Capability, orderID, itemID, newProductID string, newQuantity int) (_ *domain.Item, err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "orderitem.update", start, err) }()

	if newQuantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err = cap.Require(o.UserID); err != nil {
		return nil, err
	}
	if !o.Status.Modifiable() {
		return nil, domain.ErrNotModifiable
	}

	item, err := s.items.Get(ctx, orderID, itemID)
	if err != nil {
		return nil, err
	}
	p, err := s.products.Get(ctx, newProductID)
	if err != nil {
		return nil, err
	}

	oldProductID, oldQuantity := item.ProductID, item.Quantity

	if oldProductID == newProductID {
		if err = s.ledger.Adjust(ctx, newProductID, oldQuantity, newQuantity); err != nil {
			return nil, err
		}
	} else {
		// Product swap: reserve the new line first, then return the
		// old. Reservation is the step that can fail.
		if err = s.ledger.Reserve(ctx, newProductID, newQuantity); err != nil {
			return nil, err
		}
		if err = s.ledger.Release(ctx, oldProductID, oldQuantity); err != nil {
			s.compensateRelease(ctx, newProductID, newQuantity)
			return nil, err
		}
	}

	item.ProductID = newProductID
	item.Quantity = newQuantity
	item.Reprice(p.Price)
	if err = s.items.Update(ctx, item); err != nil {
		s.compensateStockSwap(ctx, oldProductID, oldQuantity, newProductID, newQuantity)
		return nil, fmt.Errorf("orderitem: update line: %w", err)
	}

	logctx.FromOr(ctx, s.log).Info("item_updated",
		observability.F("order_id", orderID),
		observability.F("item_id", itemID),
		observability.F("product_id", newProductID),
		observability.F("quantity", newQuantity),
	)
	return item, nil
}

// DeleteItem returns the line's reserved stock and removes the line.
func (s *Service) DeleteItem(ctx context.Context, cap auth.Capability, orderID, itemID string) (err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "orderitem.delete", start, err) }()

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if err = cap.Require(o.UserID); err != nil {
		return err
	}
	if !o.Status.Modifiable() {
		return domain.ErrNotModifiable
	}

	item, err := s.items.Get(ctx, orderID, itemID)
	if err != nil {
		return err
	}

	// Stock first, then the record: the quantity needed for release
	// must not disappear with the item.
	if err = s.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
		return err
	}
	if err = s.items.Delete(ctx, orderID, itemID); err != nil {
		if reserveErr := s.ledger.Reserve(ctx, item.ProductID, item.Quantity); reserveErr != nil {
			s.log.Error("item_delete_compensation_failed",
				observability.F("order_id", orderID),
				observability.F("item_id", itemID),
				observability.F("error", reserveErr),
			)
		}
		return fmt.Errorf("orderitem: delete line: %w", err)
	}

	logctx.FromOr(ctx, s.log).Info("item_deleted",
		observability.F("order_id", orderID),
		observability.F("item_id", itemID),
		observability.F("quantity", item.Quantity),
	)
	return nil
}

// GetItem returns one line of the order.
func (s *Service) GetItem(ctx context.Context, cap auth.Capability, orderID, itemID string) (*domain.Item, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := cap.Require(o.UserID); err != nil {
		return nil, err
	}
	return s.items.Get(ctx, orderID, itemID)
}

// ListItems returns all lines of the order.
func (s *Service) ListItems(ctx context.Context, cap auth.Capability, orderID string) ([]*domain.Item, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := cap.Require(o.UserID); err != nil {
		return nil, err
	}
	return s.items.ListByOrder(ctx, orderID)
}

func (s *Service) compensateRelease(ctx context.Context, productID string, quantity int) {
	if err := s.ledger.Release(ctx, productID, quantity); err != nil {
		s.log.Error("reserve_compensation_failed",
			observability.F("product_id", productID),
			observability.F("quantity", quantity),
			observability.F("error", err),
		)
	}
}

// compensateStockSwap reverses the stock effect of an item update after
// the item write failed.
func (s *Service) compensateStockSwap(ctx context.Context, oldProductID string, oldQuantity int, newProductID string, newQuantity int) {
	if oldProductID == newProductID {
		if err := s.ledger.Adjust(ctx, oldProductID, newQuantity, oldQuantity); err != nil {
			s.log.Error("adjust_compensation_failed",
				observability.F("product_id", oldProductID),
				observability.F("error", err),
			)
		}
		return
	}
	s.compensateRelease(ctx, newProductID, newQuantity)
	if err := s.ledger.Reserve(ctx, oldProductID, oldQuantity); err != nil {
		s.log.Error("reserve_compensation_failed",
			observability.F("product_id", oldProductID),
			observability.F("quantity", oldQuantity),
			observability.F("error", err),
		)
	}
}
