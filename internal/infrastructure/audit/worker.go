package audit

import (
	"context"

	domoutbox "github.com/froome/fulfillment/internal/domain/outbox"
	"github.com/froome/fulfillment/internal/observability"
	"github.com/froome/fulfillment/internal/observability/logctx"
)

// eventNames lists every domain event the fulfillment core emits.
var eventNames = []string{
	"order.created",
	"order.cancelled",
	"order.deleted",
	"payment.created",
	"payment.voided",
	"inventory.reserved",
	"inventory.released",
	"user.deleted",
}

// Worker tails the event bus and turns every domain event into a log
// line and a counter sample. It is fanout-only; nothing in the core
// depends on it.
type Worker struct {
	subscriber domoutbox.Subscriber
	tel        observability.Telemetry
	log        observability.Logger
}

func New(subscriber domoutbox.Subscriber, tel observability.Telemetry) *Worker {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Worker{
		subscriber: subscriber,
		tel:        tel,
		log:        tel.Logger().With(observability.F("service", "audit_worker")),
	}
}

func (w *Worker) Start() {
	for _, name := range eventNames {
		w.subscriber.Subscribe(name, w.handle)
	}
}

func (w *Worker) handle(ctx context.Context, e domoutbox.Event) error {
	name := e.EventName()
	w.tel.Counter(observability.MetricDomainEvents).Add(1,
		observability.L("event", name),
	)
	logctx.FromOr(ctx, w.log).Info("domain_event",
		observability.F("event", name),
		observability.F("payload", e),
	)
	return nil
}
