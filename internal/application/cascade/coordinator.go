package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/froome/fulfillment/internal/application"
	"github.com/froome/fulfillment/internal/auth"
	domorder "github.com/froome/fulfillment/internal/domain/order"
	domoutbox "github.com/froome/fulfillment/internal/domain/outbox"
	dompayment "github.com/froome/fulfillment/internal/domain/payment"
	domproduct "github.com/froome/fulfillment/internal/domain/product"
	domuser "github.com/froome/fulfillment/internal/domain/user"
	"github.com/froome/fulfillment/internal/observability"
	"github.com/froome/fulfillment/internal/observability/logctx"
	"github.com/froome/fulfillment/internal/pkg/locker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Saga step names reported on partial failure.
const (
	StepListItems      = "list_items"
	StepReleaseStock   = "release_stock"
	StepDeleteItem     = "delete_item"
	StepDeletePayments = "delete_payments"
	StepDeleteOrder    = "delete_order"
	StepListOrders     = "list_orders"
	StepDeleteUser     = "delete_user"
)

// StepError names the saga step that failed, so a partial cascade is
// diagnosable instead of silently corrupt.
type StepError struct {
	Step    string
	OrderID string
	Err     error
}

func (e *StepError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("cascade: step %s failed for order %s: %v", e.Step, e.OrderID, e.Err)
	}
	return fmt.Sprintf("cascade: step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Ledger is the stock contract the coordinator compensates through.
type Ledger interface {
	Release(ctx context.Context, productID string, quantity int) error
}

// Coordinator removes an order or a user together with all dependents,
// bottom-up, as an ordered sequence of individually committed steps.
// There is no rollback; failures surface with the failing step named.
type Coordinator struct {
	orders    domorder.Repository
	items     domorder.ItemRepository
	payments  dompayment.Repository
	users     domuser.Repository
	ledger    Ledger
	locks     *locker.KeyedMutex
	publisher domoutbox.Publisher
	tel       observability.Telemetry
	log       observability.Logger
}

func NewCoordinator(
	orders domorder.Repository,
	items domorder.ItemRepository,
	payments dompayment.Repository,
	users domuser.Repository,
	ledger Ledger,
	locks *locker.KeyedMutex,
	publisher domoutbox.Publisher,
	tel observability.Telemetry,
) *Coordinator {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Coordinator{
		orders:    orders,
		items:     items,
		payments:  payments,
		users:     users,
		ledger:    ledger,
		locks:     locks,
		publisher: publisher,
		tel:       tel,
		log:       tel.Logger().With(observability.F("service", "cascade_coordinator")),
	}
}

// DeleteOrder removes the order's items (returning their stock first),
// then its payments, then the order itself.
func (c *Coordinator) DeleteOrder(ctx context.Context, cap auth.Capability, orderID string) (err error) {
	start := time.Now()
	defer func() { application.Observe(c.tel, "cascade.delete_order", start, err) }()

	ctx, span := c.tel.Tracer().Start(ctx, "Cascade.DeleteOrder",
		attribute.String("order.id", orderID),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cascade_failed")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}()

	c.locks.Lock(orderID)
	defer c.locks.Unlock(orderID)

	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if err = cap.Require(o.UserID); err != nil {
		return err
	}

	err = c.deleteOrderLocked(ctx, o)
	return err
}

// deleteOrderLocked runs the per-order cascade. The caller holds the
// order's lock.
func (c *Coordinator) deleteOrderLocked(ctx context.Context, o *domorder.Order) error {
	logger := logctx.FromOr(ctx, c.log).With(observability.F("order_id", o.ID))

	items, err := c.items.ListByOrder(ctx, o.ID)
	if err != nil {
		return c.fail(StepListItems, o.ID, err)
	}

	for _, item := range items {
		// Stock returns before the record disappears; a cancelled
		// order already gave its reservations back.
		if o.Status.ConsumesStock() {
			if err := c.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, domproduct.ErrNotFound) {
					// The product is gone; there is no counter left to
					// return the stock to. Compensated by definition.
					logger.Warn("release_skipped_product_missing",
						observability.F("item_id", item.ID),
						observability.F("product_id", item.ProductID),
					)
					c.countStep(StepReleaseStock, "skipped")
				} else {
					c.countStep(StepReleaseStock, "error")
					return c.fail(StepReleaseStock, o.ID, err)
				}
			} else {
				c.countStep(StepReleaseStock, "success")
			}
		}

		if err := c.items.Delete(ctx, o.ID, item.ID); err != nil {
			if errors.Is(err, domorder.ErrItemNotFound) {
				// already gone, deleting again is a no-op
				c.countStep(StepDeleteItem, "skipped")
				continue
			}
			c.countStep(StepDeleteItem, "error")
			return c.fail(StepDeleteItem, o.ID, err)
		}
		c.countStep(StepDeleteItem, "success")
	}

	removed, err := c.payments.DeleteByOrder(ctx, o.ID)
	if err != nil {
		c.countStep(StepDeletePayments, "error")
		return c.fail(StepDeletePayments, o.ID, err)
	}
	c.countStep(StepDeletePayments, "success")

	if err := c.orders.Delete(ctx, o.ID); err != nil && !errors.Is(err, domorder.ErrNotFound) {
		c.countStep(StepDeleteOrder, "error")
		return c.fail(StepDeleteOrder, o.ID, err)
	}
	c.countStep(StepDeleteOrder, "success")

	logger.Info("order_cascade_complete",
		observability.F("items_removed", len(items)),
		observability.F("payments_removed", removed),
	)
	c.publish(ctx, domorder.NewOrderDeletedEvent(o.ID))
	return nil
}

// DeleteUser removes every order the user owns via the order cascade,
// then the user record.
func (c *Coordinator) DeleteUser(ctx context.Context, cap auth.Capability, userID string) (err error) {
	start := time.Now()
	defer func() { application.Observe(c.tel, "cascade.delete_user", start, err) }()

	ctx, span := c.tel.Tracer().Start(ctx, "Cascade.DeleteUser",
		attribute.String("user.id", userID),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cascade_failed")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}()

	if err = cap.Require(userID); err != nil {
		return err
	}
	if _, err = c.users.Get(ctx, userID); err != nil {
		return err
	}

	owned, err := c.orders.ListByUser(ctx, userID)
	if err != nil {
		err = c.fail(StepListOrders, "", err)
		return err
	}

	for _, o := range owned {
		c.locks.Lock(o.ID)
		cascadeErr := c.deleteOrderLocked(ctx, o)
		c.locks.Unlock(o.ID)
		if cascadeErr != nil {
			err = cascadeErr
			return err
		}
	}

	if err = c.users.Delete(ctx, userID); err != nil && !errors.Is(err, domuser.ErrNotFound) {
		err = c.fail(StepDeleteUser, "", err)
		return err
	}
	err = nil

	logctx.FromOr(ctx, c.log).Info("user_cascade_complete",
		observability.F("user_id", userID),
		observability.F("orders_removed", len(owned)),
	)
	c.publish(ctx, domuser.NewUserDeletedEvent(userID, len(owned)))
	return nil
}

func (c *Coordinator) fail(step, orderID string, err error) error {
	c.log.Error("cascade_step_failed",
		observability.F("step", step),
		observability.F("order_id", orderID),
		observability.F("error", err),
	)
	return &StepError{Step: step, OrderID: orderID, Err: err}
}

func (c *Coordinator) countStep(step, outcome string) {
	c.tel.Counter(observability.MetricCascadeSteps).Add(1,
		observability.L("step", step),
		observability.L("outcome", outcome),
	)
}

func (c *Coordinator) publish(ctx context.Context, e domoutbox.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, e); err != nil {
		logctx.FromOr(ctx, c.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err),
		)
	}
}
