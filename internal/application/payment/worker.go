package payment

import (
	"context"

	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
	dompay "github.com/vberihuete/BIU-master-oop/internal/domain/payment"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
	"github.com/vberihuete/BIU-master-oop/internal/observability/logctx"
)

const auditWorker = "payment_audit_worker"

// AuditWorker logs and counts every payment lifecycle event.
type AuditWorker struct {
	subscriber event.Subscriber
	log        observability.Logger
	events     observability.Counter // payment_events_total{event,method}
}

func NewAuditWorker(subscriber event.Subscriber, tel observability.Observability) *AuditWorker {
	logger, _, metrics := observability.Components(tel)
	return &AuditWorker{
		subscriber: subscriber,
		log:        logger.With(observability.F("component", auditWorker)),
		events:     metrics.Counter(observability.MPaymentEvents),
	}
}

func (w *AuditWorker) Start() {
	if w.subscriber == nil {
		return
	}
	for _, k := range event.KindsIn(event.CategoryPayment) {
		w.subscriber.Subscribe(k, w.handle)
	}
}

func (w *AuditWorker) handle(ctx context.Context, e event.Event) error {
	logger := logctx.FromOr(ctx, w.log).With(observability.F("event", e.EventName()))

	change, ok := e.Payload.(dompay.Change)
	if !ok {
		w.events.Add(1, observability.L("event", e.EventName()), observability.L("method", "unknown"))
		logger.Debug("payment_event_unrecognized")
		return nil
	}
	w.events.Add(1,
		observability.L("event", e.EventName()),
		observability.L("method", change.Method),
	)

	fields := []observability.Field{
		observability.F("transaction_id", change.TransactionID),
		observability.F("method", change.Method),
		observability.F("amount", change.Amount),
		observability.F("currency", change.Currency),
		observability.F("state", string(change.State)),
	}
	if e.Kind == event.PaymentFailed {
		fields = append(fields,
			observability.F("code", string(change.Code)),
			observability.F("failure_reason", change.Reason),
		)
		logger.Warn("payment_event_recorded", fields...)
		return nil
	}
	logger.Info("payment_event_recorded", fields...)
	return nil
}
