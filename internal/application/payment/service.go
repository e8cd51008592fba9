package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/froome/fulfillment/internal/application"
	"github.com/froome/fulfillment/internal/auth"
	domorder "github.com/froome/fulfillment/internal/domain/order"
	domoutbox "github.com/froome/fulfillment/internal/domain/outbox"
	domain "github.com/froome/fulfillment/internal/domain/payment"
	domproduct "github.com/froome/fulfillment/internal/domain/product"
	"github.com/froome/fulfillment/internal/observability"
	"github.com/froome/fulfillment/internal/observability/logctx"
	"github.com/froome/fulfillment/internal/pkg/locker"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type IDGenerator interface {
	NewID() string
}

// Service runs the payment workflow: a payment only ever exists against
// a PAID order, and deleting it reverts the order to CREATED. Stock is
// not touched in either direction; reservations were committed when the
// items were added.
type Service struct {
	payments  domain.Repository
	orders    domorder.Repository
	items     domorder.ItemRepository
	products  domproduct.Repository
	locks     *locker.KeyedMutex
	idGen     IDGenerator
	publisher domoutbox.Publisher
	tel       observability.Telemetry
	log       observability.Logger
}

func NewService(
	payments domain.Repository,
	orders domorder.Repository,
	items domorder.ItemRepository,
	products domproduct.Repository,
	locks *locker.KeyedMutex,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Telemetry,
) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		payments:  payments,
		orders:    orders,
		items:     items,
		products:  products,
		locks:     locks,
		idGen:     idGen,
		publisher: publisher,
		tel:       tel,
		log:       tel.Logger().With(observability.F("service", "payment_workflow")),
	}
}

// CreatePayment charges a CREATED order for the exact decimal sum of
// its line items at call time and advances it to PAID. The status
// transition and the payment write are one logical unit: if the write
// fails the transition is reverted.
func (s *Service) CreatePayment(ctx context.Context, cap auth.Capability, orderID string) (_ *domain.Payment, err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "payment.create", start, err) }()

	ctx, span := s.tel.Tracer().Start(ctx, "Payment.Create",
		attribute.String("order.id", orderID),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create_payment_failed")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}()

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err = cap.Require(o.UserID); err != nil {
		return nil, err
	}
	if o.Status != domorder.StatusCreated {
		return nil, domorder.NewTransitionError(o.Status, domorder.StatusPaid)
	}

	amount, err := s.totalAmount(ctx, orderID)
	if err != nil {
		return nil, err
	}

	p, err := domain.New(s.idGen.NewID(), orderID, amount)
	if err != nil {
		return nil, err
	}

	if err = s.orders.UpdateStatus(ctx, orderID, domorder.StatusCreated, domorder.StatusPaid); err != nil {
		return nil, fmt.Errorf("payment: advance order: %w", err)
	}
	if err = s.payments.Insert(ctx, p); err != nil {
		if revertErr := s.orders.UpdateStatus(ctx, orderID, domorder.StatusPaid, domorder.StatusCreated); revertErr != nil {
			s.log.Error("payment_revert_failed",
				observability.F("order_id", orderID),
				observability.F("error", revertErr),
			)
		}
		return nil, fmt.Errorf("payment: insert: %w", err)
	}

	span.SetAttributes(attribute.String("payment.id", p.ID))
	logctx.FromOr(ctx, s.log).Info("payment_created",
		observability.F("payment_id", p.ID),
		observability.F("order_id", orderID),
		observability.F("amount", p.Amount.String()),
	)
	s.publish(ctx, domain.NewPaymentCreatedEvent(p))
	return p, nil
}

// GetPayment returns one payment for the order's owner or an admin.
func (s *Service) GetPayment(ctx context.Context, cap auth.Capability, id string) (*domain.Payment, error) {
	p, err := s.payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrderAccess(ctx, cap, p.OrderID); err != nil {
		return nil, err
	}
	return p, nil
}

// ListByOrder returns the order's payments.
func (s *Service) ListByOrder(ctx context.Context, cap auth.Capability, orderID string) ([]*domain.Payment, error) {
	if err := s.requireOrderAccess(ctx, cap, orderID); err != nil {
		return nil, err
	}
	return s.payments.ListByOrder(ctx, orderID)
}

// DeletePayment voids a payment and reverts the owning order to
// CREATED. Stock stays where it is.
func (s *Service) DeletePayment(ctx context.Context, cap auth.Capability, id string) (err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "payment.delete", start, err) }()

	p, err := s.payments.Get(ctx, id)
	if err != nil {
		return err
	}

	s.locks.Lock(p.OrderID)
	defer s.locks.Unlock(p.OrderID)

	o, err := s.orders.Get(ctx, p.OrderID)
	if err != nil {
		return err
	}
	if err = cap.Require(o.UserID); err != nil {
		return err
	}

	if err = s.orders.UpdateStatus(ctx, p.OrderID, domorder.StatusPaid, domorder.StatusCreated); err != nil {
		return fmt.Errorf("payment: revert order: %w", err)
	}
	if err = s.payments.Delete(ctx, id); err != nil {
		if revertErr := s.orders.UpdateStatus(ctx, p.OrderID, domorder.StatusCreated, domorder.StatusPaid); revertErr != nil {
			s.log.Error("payment_delete_revert_failed",
				observability.F("order_id", p.OrderID),
				observability.F("error", revertErr),
			)
		}
		return fmt.Errorf("payment: delete: %w", err)
	}

	logctx.FromOr(ctx, s.log).Info("payment_voided",
		observability.F("payment_id", id),
		observability.F("order_id", p.OrderID),
	)
	s.publish(ctx, domain.NewPaymentVoidedEvent(p))
	return nil
}

// totalAmount sums unit price x quantity over the order's lines with
// decimal arithmetic, reading the catalog price at call time.
func (s *Service) totalAmount(ctx context.Context, orderID string) (decimal.Decimal, error) {
	items, err := s.items.ListByOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		p, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("payment: price item %s: %w", item.ID, err)
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, nil
}

func (s *Service) requireOrderAccess(ctx context.Context, cap auth.Capability, orderID string) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	return cap.Require(o.UserID)
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
