package inventory

import (
	"context"
	"fmt"

	"github.com/vberihuete/BIU-master-oop/internal/application"
	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
	dominv "github.com/vberihuete/BIU-master-oop/internal/domain/inventory"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
	"github.com/vberihuete/BIU-master-oop/internal/observability/logctx"
)

const workerService = "stock_alert_worker"

// StockAlertWorker feeds stock changes into the alert use case.
type StockAlertWorker struct {
	subscriber event.Subscriber
	useCase    application.UseCase[dominv.EntryChange, *AlertResult]
	log        observability.Logger
}

func NewStockAlertWorker(
	subscriber event.Subscriber,
	useCase application.UseCase[dominv.EntryChange, *AlertResult],
	tel observability.Observability,
) *StockAlertWorker {
	logger, _, _ := observability.Components(tel)
	return &StockAlertWorker{
		subscriber: subscriber,
		useCase:    useCase,
		log:        logger.With(observability.F("component", workerService)),
	}
}

func (w *StockAlertWorker) Start() {
	if w.subscriber == nil || w.useCase == nil {
		return
	}
	w.subscriber.Subscribe(event.StockUpdated, w.handle)
	w.subscriber.Subscribe(event.ProductAdded, w.handle)
}

func (w *StockAlertWorker) handle(ctx context.Context, e event.Event) error {
	change, ok := e.Payload.(dominv.EntryChange)
	if !ok {
		logctx.FromOr(ctx, w.log).Debug("stock_alert_payload_ignored",
			observability.F("event", e.EventName()),
		)
		return nil
	}
	if _, err := w.useCase.Execute(ctx, change); err != nil {
		return fmt.Errorf("worker: evaluate stock: %w", err)
	}
	return nil
}
