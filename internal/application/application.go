package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vberihuete/BIU-master-oop/internal/observability"
	"github.com/vberihuete/BIU-master-oop/internal/observability/logctx"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

const spanPrefix = "UC."

const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
	OutcomeIgnored  = "ignored"
)

// Instrumentation records the span, RED metrics and completion log shared by
// every use case of a service.
type Instrumentation struct {
	log      observability.Logger
	tracer   observability.Tracer
	requests observability.Counter   // usecase_requests_total{use_case,outcome}
	duration observability.Histogram // usecase_duration_seconds{use_case}
}

func NewInstrumentation(tel observability.Observability, service string) Instrumentation {
	logger, tracer, metrics := observability.Components(tel)
	return Instrumentation{
		log:      logger.With(observability.F("component", service)),
		tracer:   tracer,
		requests: metrics.Counter(observability.MUsecaseRequests),
		duration: metrics.Histogram(observability.MUsecaseDuration),
	}
}

func (in Instrumentation) Logger() observability.Logger { return in.log }

// Call tracks one use case execution. Obtain it with Start and always End it.
type Call struct {
	useCase string
	start   time.Time
	span    trace.Span
	logger  observability.Logger
	in      Instrumentation

	outcome string
	status  string
	fields  []observability.Field
}

// Start opens the span "UC.<spanName>" and binds a use-case logger onto ctx.
func (in Instrumentation) Start(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Call) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, spanPrefix+spanName, attrs...)

	// A request or event scoped logger already carries the trace ids.
	scoped := logctx.From(ctx)
	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	if sc := trace.SpanContextFromContext(ctx); scoped == nil && sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	ctx = logctx.With(ctx, logger)

	return ctx, &Call{
		useCase: useCase,
		start:   time.Now(),
		span:    span,
		logger:  logger,
		in:      in,
		outcome: OutcomeSuccess,
		status:  "OK",
	}
}

// Span exposes the underlying span for events and attributes.
func (c *Call) Span() trace.Span { return c.span }

func (c *Call) Logger() observability.Logger { return c.logger }

// Annotate adds fields to the completion log.
func (c *Call) Annotate(fields ...observability.Field) {
	c.fields = append(c.fields, fields...)
}

// Fail marks the call as failed with a machine status. outcome is usually
// OutcomeError or OutcomeRejected.
func (c *Call) Fail(outcome, status string) {
	c.outcome, c.status = outcome, status
}

// Ignore marks the call as a no-op.
func (c *Call) Ignore(status string) {
	c.outcome, c.status = OutcomeIgnored, status
}

// End records metrics, closes the span and writes the use_case_done log.
func (c *Call) End(err error) {
	if err != nil && c.outcome == OutcomeSuccess {
		c.outcome, c.status = OutcomeError, "ERROR"
	}
	latency := time.Since(c.start).Seconds()

	c.in.requests.Add(1,
		observability.L("use_case", c.useCase),
		observability.L("outcome", c.outcome),
	)
	c.in.duration.Observe(latency,
		observability.L("use_case", c.useCase),
	)

	if c.span != nil {
		if err != nil {
			c.span.RecordError(err)
			c.span.SetStatus(codes.Error, c.status)
		} else {
			c.span.SetStatus(codes.Ok, c.status)
		}
		c.span.End()
	}

	fields := append([]observability.Field{
		observability.F("outcome", c.outcome),
		observability.F("status", c.status),
		observability.F("latency_seconds", latency),
	}, c.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	c.logger.Info("use_case_done", fields...)
}
