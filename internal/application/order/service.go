package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/froome/fulfillment/internal/application"
	"github.com/froome/fulfillment/internal/auth"
	domain "github.com/froome/fulfillment/internal/domain/order"
	domoutbox "github.com/froome/fulfillment/internal/domain/outbox"
	domproduct "github.com/froome/fulfillment/internal/domain/product"
	domuser "github.com/froome/fulfillment/internal/domain/user"
	"github.com/froome/fulfillment/internal/observability"
	"github.com/froome/fulfillment/internal/observability/logctx"
	"github.com/froome/fulfillment/internal/pkg/locker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Ledger is the slice of the inventory contract order cancellation
// needs: returning reserved stock.
type Ledger interface {
	Release(ctx context.Context, productID string, quantity int) error
}

type IDGenerator interface {
	NewID() string
}

// manual status updates may only move an order forward from PAID; the
// CREATED<->PAID edges belong to the payment workflow and CANCELLED to
// Cancel.
var manualNext = map[domain.Status]domain.Status{
	domain.StatusPaid:    domain.StatusShipped,
	domain.StatusShipped: domain.StatusDelivered,
}

// Service owns the order lifecycle outside of item and payment
// handling: creation, reads, manual progression and cancellation.
type Service struct {
	orders    domain.Repository
	items     domain.ItemRepository
	users     domuser.Repository
	ledger    Ledger
	locks     *locker.KeyedMutex
	idGen     IDGenerator
	publisher domoutbox.Publisher
	tel       observability.Telemetry
	log       observability.Logger
}

func NewService(
	orders domain.Repository,
	items domain.ItemRepository,
	users domuser.Repository,
	ledger Ledger,
	locks *locker.KeyedMutex,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Telemetry,
) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		orders:    orders,
		items:     items,
		users:     users,
		ledger:    ledger,
		locks:     locks,
		idGen:     idGen,
		publisher: publisher,
		tel:       tel,
		log:       tel.Logger().With(observability.F("service", "order_service")),
	}
}

// CreateOrder opens a new order for the user in CREATED status.
func (s *Service) CreateOrder(ctx context.Context, cap auth.Capability, userID string) (_ *domain.Order, err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "order.create", start, err) }()

	if err = cap.Require(userID); err != nil {
		return nil, err
	}
	if _, err = s.users.Get(ctx, userID); err != nil {
		return nil, err
	}

	o, err := domain.New(s.idGen.NewID(), userID)
	if err != nil {
		return nil, err
	}
	if err = s.orders.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("order: insert: %w", err)
	}

	logctx.FromOr(ctx, s.log).Info("order_created",
		observability.F("order_id", o.ID),
		observability.F("user_id", userID),
	)
	s.publish(ctx, domain.NewOrderCreatedEvent(o))
	return o, nil
}

// GetOrder returns the order when the caller owns it or is an admin.
func (s *Service) GetOrder(ctx context.Context, cap auth.Capability, id string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cap.Require(o.UserID); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders pages through all orders; admin only.
func (s *Service) ListOrders(ctx context.Context, cap auth.Capability, page, size int) ([]*domain.Order, error) {
	if err := cap.RequireAdmin(); err != nil {
		return nil, err
	}
	offset, limit := application.PageBounds(page, size)
	return s.orders.List(ctx, offset, limit)
}

// ListUserOrders returns a user's orders for the owner or an admin.
func (s *Service) ListUserOrders(ctx context.Context, cap auth.Capability, userID string) ([]*domain.Order, error) {
	if err := cap.Require(userID); err != nil {
		return nil, err
	}
	return s.orders.ListByUser(ctx, userID)
}

// UpdateStatus applies a manual forward transition (PAID -> SHIPPED,
// SHIPPED -> DELIVERED); admin only.
func (s *Service) UpdateStatus(ctx context.Context, cap auth.Capability, id string, to domain.Status) (err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "order.update_status", start, err) }()

	if err = cap.RequireAdmin(); err != nil {
		return err
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	if !to.Valid() || manualNext[o.Status] != to {
		return domain.NewTransitionError(o.Status, to)
	}
	if err = s.orders.UpdateStatus(ctx, id, o.Status, to); err != nil {
		return fmt.Errorf("order: update status: %w", err)
	}

	logctx.FromOr(ctx, s.log).Info("order_status_updated",
		observability.F("order_id", id),
		observability.F("from", o.Status),
		observability.F("to", to),
	)
	return nil
}

// Cancel moves a CREATED order to CANCELLED and returns all of its
// reserved stock. Orders past payment cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, cap auth.Capability, id string) (err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "order.cancel", start, err) }()

	ctx, span := s.tel.Tracer().Start(ctx, "Order.Cancel",
		attribute.String("order.id", id),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancel_failed")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}()

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	if err = cap.Require(o.UserID); err != nil {
		return err
	}
	if !domain.CanTransition(o.Status, domain.StatusCancelled) {
		return domain.NewTransitionError(o.Status, domain.StatusCancelled)
	}

	// Flip the status first so the order stops accepting item changes,
	// then return the stock line by line.
	if err = s.orders.UpdateStatus(ctx, id, o.Status, domain.StatusCancelled); err != nil {
		return fmt.Errorf("order: cancel: %w", err)
	}

	items, err := s.items.ListByOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("order: cancel: list items: %w", err)
	}
	for _, item := range items {
		if releaseErr := s.ledger.Release(ctx, item.ProductID, item.Quantity); releaseErr != nil {
			if !errors.Is(releaseErr, domproduct.ErrNotFound) {
				err = fmt.Errorf("order: cancel: release stock for item %s: %w", item.ID, releaseErr)
				return err
			}
			// The product is gone; there is no counter left to return
			// the stock to. Skip the line and keep releasing the rest.
			logctx.FromOr(ctx, s.log).Warn("release_skipped_product_missing",
				observability.F("order_id", id),
				observability.F("item_id", item.ID),
				observability.F("product_id", item.ProductID),
			)
		}
	}

	o.Status = domain.StatusCancelled
	logctx.FromOr(ctx, s.log).Info("order_cancelled",
		observability.F("order_id", id),
		observability.F("items_released", len(items)),
	)
	s.publish(ctx, domain.NewOrderCancelledEvent(o))
	return nil
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err),
		)
	}
}
