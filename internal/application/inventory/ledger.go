package inventory

import (
	"context"
	"fmt"

	domoutbox "github.com/froome/fulfillment/internal/domain/outbox"
	domain "github.com/froome/fulfillment/internal/domain/product"
	"github.com/froome/fulfillment/internal/observability"
	"github.com/froome/fulfillment/internal/observability/logctx"
)

// Ledger owns per-product stock. Every mutation goes through the
// product repository's atomic AdjustStock, so concurrent reservations
// against the same product are serialized and can never oversell.
type Ledger struct {
	products  domain.Repository
	publisher domoutbox.Publisher
	log       observability.Logger
}

func NewLedger(products domain.Repository, publisher domoutbox.Publisher, logger observability.Logger) *Ledger {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Ledger{
		products:  products,
		publisher: publisher,
		log:       logger.With(observability.F("component", "inventory_ledger")),
	}
}

// Reserve decrements stock by quantity, failing with
// product.ErrInsufficientStock when not enough remains.
func (l *Ledger) Reserve(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	remaining, err := l.products.AdjustStock(ctx, productID, -quantity)
	if err != nil {
		return fmt.Errorf("inventory: reserve %d of %s: %w", quantity, productID, err)
	}

	logger := logctx.FromOr(ctx, l.log)
	logger.Debug("stock_reserved",
		observability.F("product_id", productID),
		observability.F("quantity", quantity),
		observability.F("remaining", remaining),
	)
	l.publish(ctx, domain.NewStockReservedEvent(productID, quantity, remaining))
	return nil
}

// Release returns previously reserved stock.
func (l *Ledger) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	remaining, err := l.products.AdjustStock(ctx, productID, quantity)
	if err != nil {
		return fmt.Errorf("inventory: release %d of %s: %w", quantity, productID, err)
	}

	logger := logctx.FromOr(ctx, l.log)
	logger.Debug("stock_released",
		observability.F("product_id", productID),
		observability.F("quantity", quantity),
		observability.F("remaining", remaining),
	)
	l.publish(ctx, domain.NewStockReleasedEvent(productID, quantity, remaining))
	return nil
}

// Adjust replaces a reservation of oldQuantity with newQuantity. The
// net delta is applied as a single atomic step, so a failure leaves
// stock exactly as it was, never partially released.
func (l *Ledger) Adjust(ctx context.Context, productID string, oldQuantity, newQuantity int) error {
	if oldQuantity < 0 || newQuantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	delta := oldQuantity - newQuantity
	if delta == 0 {
		return nil
	}

	remaining, err := l.products.AdjustStock(ctx, productID, delta)
	if err != nil {
		return fmt.Errorf("inventory: adjust %s from %d to %d: %w", productID, oldQuantity, newQuantity, err)
	}

	logger := logctx.FromOr(ctx, l.log)
	logger.Debug("stock_adjusted",
		observability.F("product_id", productID),
		observability.F("old_quantity", oldQuantity),
		observability.F("new_quantity", newQuantity),
		observability.F("remaining", remaining),
	)
	if delta < 0 {
		l.publish(ctx, domain.NewStockReservedEvent(productID, -delta, remaining))
	} else {
		l.publish(ctx, domain.NewStockReleasedEvent(productID, delta, remaining))
	}
	return nil
}

func (l *Ledger) publish(ctx context.Context, e domoutbox.Event) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, e); err != nil {
		logctx.FromOr(ctx, l.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err),
		)
	}
}
