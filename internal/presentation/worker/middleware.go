package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
	"github.com/vberihuete/BIU-master-oop/internal/observability/logctx"
)

const spanPrefix = "EVT."

// WithEventContext injects an event-scoped logger for listener executions.
// Fields: event_id (generated if empty), trace_id/span_id when valid, plus
// caller attributes. Keep attrs low-cardinality: event name, category, worker.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = logctx.FromOr(ctx, nil)
	}

	fields := make([]observability.Field, 0, 3+len(attrs))

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}
	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// Subscriber decorates an event.Subscriber so every listener runs inside its
// own span "EVT.<CODE>" with an event-scoped logger on the context.
type Subscriber struct {
	next   event.Subscriber
	log    observability.Logger
	tracer observability.Tracer
}

var _ event.Subscriber = (*Subscriber)(nil)

func NewSubscriber(next event.Subscriber, tel observability.Observability) *Subscriber {
	logger, tracer, _ := observability.Components(tel)
	return &Subscriber{
		next:   next,
		log:    logger.With(observability.F("component", "event_listener")),
		tracer: tracer,
	}
}

func (s *Subscriber) Subscribe(kind event.Kind, l event.Listener) {
	if l == nil {
		return
	}
	s.next.Subscribe(kind, func(ctx context.Context, e event.Event) error {
		code := e.EventName()
		ctx, span := s.tracer.Start(ctx, spanPrefix+code,
			attribute.String("event", code),
			attribute.String("event.category", string(e.Kind.Category())),
		)
		defer span.End()

		sc := span.SpanContext()
		ctx = WithEventContext(ctx, s.log, sc.TraceID(), sc.SpanID(), map[string]string{
			"event":    code,
			"category": string(e.Kind.Category()),
		})

		err := l(ctx, e)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
}
