package inventory

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vberihuete/BIU-master-oop/internal/application"
	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
	dominv "github.com/vberihuete/BIU-master-oop/internal/domain/inventory"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
)

const (
	useCaseEvaluateStock  = "inventory.evaluate_stock"
	DefaultLowStockLevel  = 5
	stockAlertServiceName = "stock-alert"
)

// StockAlert is the payload of STOCK_LOW and STOCK_DEPLETED.
type StockAlert struct {
	Ledger    string `json:"ledger"`
	EntryID   string `json:"entryId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
}

// AlertResult tells which alert, if any, an evaluation raised.
type AlertResult struct {
	Raised bool
	Kind   event.Kind
}

// EvaluateStockUseCase raises STOCK_DEPLETED when an entry reaches zero and
// STOCK_LOW when it falls to the threshold or below.
type EvaluateStockUseCase struct {
	publisher event.Publisher
	threshold int
	inst      application.Instrumentation
	alerts    observability.Counter // stock_alerts_total{ledger,event}
}

func NewEvaluateStockUseCase(publisher event.Publisher, threshold int, tel observability.Observability) *EvaluateStockUseCase {
	if threshold < 0 {
		threshold = DefaultLowStockLevel
	}
	_, _, metrics := observability.Components(tel)
	return &EvaluateStockUseCase{
		publisher: publisher,
		threshold: threshold,
		inst:      application.NewInstrumentation(tel, stockAlertServiceName),
		alerts:    metrics.Counter(observability.MStockAlerts),
	}
}

func (uc *EvaluateStockUseCase) Threshold() int { return uc.threshold }

func (uc *EvaluateStockUseCase) Execute(ctx context.Context, c dominv.EntryChange) (_ *AlertResult, err error) {
	ctx, call := uc.inst.Start(ctx, useCaseEvaluateStock, "EvaluateStock",
		attribute.String("ledger", c.Ledger),
		attribute.String("entry.id", c.EntryID),
		attribute.Int("entry.quantity", c.Current),
	)
	call.Annotate(
		observability.F("ledger", c.Ledger),
		observability.F("entry_id", c.EntryID),
		observability.F("quantity", c.Current),
	)
	defer func() { call.End(err) }()

	result := &AlertResult{}
	switch {
	case c.Current == 0:
		result.Kind = event.StockDepleted
	case c.Current <= uc.threshold:
		result.Kind = event.StockLow
	default:
		call.Ignore("STOCK_OK")
		return result, nil
	}
	result.Raised = true

	call.Span().AddEvent("stock.alert", trace.WithAttributes(attribute.String("event", result.Kind.Code())))
	call.Annotate(observability.F("alert", result.Kind.Code()))
	uc.alerts.Add(1,
		observability.L("ledger", c.Ledger),
		observability.L("event", result.Kind.Code()),
	)

	event.Publish(ctx, uc.publisher, result.Kind, StockAlert{
		Ledger:    c.Ledger,
		EntryID:   c.EntryID,
		Name:      c.Name,
		Quantity:  c.Current,
		Threshold: uc.threshold,
	})
	return result, nil
}
