// Package relay forwards bus events to an external broker as JSON envelopes.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
	"github.com/vberihuete/BIU-master-oop/internal/observability/logctx"
)

const sendTimeout = 3 * time.Second

// Envelope is the wire shape of a relayed event.
type Envelope struct {
	EventName   string          `json:"eventName"`
	EventID     string          `json:"eventId"`
	Producer    string          `json:"producer"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// Message is what a sink writes: the encoded envelope plus routing metadata.
type Message struct {
	Key     string
	Body    []byte
	Headers map[string]string
}

// RoutingKey is the lower-case event code, used by topic exchanges.
func (m Message) RoutingKey() string { return strings.ToLower(m.Key) }

type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
	Close() error
}

// Relay is a bus listener that hands every event it receives to a sink.
type Relay struct {
	sink     Sink
	producer string
	newID    func() string

	log      observability.Logger
	requests observability.Counter   // external_requests_total{peer,endpoint,outcome}
	latency  observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func New(sink Sink, producer string, tel observability.Observability) *Relay {
	logger, _, metrics := observability.Components(tel)
	return &Relay{
		sink:     sink,
		producer: producer,
		newID:    uuid.NewString,
		log:      logger.With(observability.F("component", "relay"), observability.F("sink", sink.Name())),
		requests: metrics.Counter(observability.MExternalRequests),
		latency:  metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// Attach subscribes the relay to kinds, or to the whole catalog when none is given.
func (r *Relay) Attach(sub event.Subscriber, kinds ...event.Kind) {
	if len(kinds) == 0 {
		kinds = event.Kinds()
	}
	for _, k := range kinds {
		sub.Subscribe(k, r.Handle)
	}
}

// Handle encodes e and sends it. Errors go back to the bus, which logs them.
func (r *Relay) Handle(ctx context.Context, e event.Event) error {
	msg, err := r.Encode(ctx, e)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	err = r.sink.Send(sendCtx, msg)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.requests.Add(1,
		observability.L("peer", r.sink.Name()),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	r.latency.Observe(time.Since(start).Seconds(),
		observability.L("peer", r.sink.Name()),
		observability.L("endpoint", e.EventName()),
	)
	if err != nil {
		return fmt.Errorf("relay: send %s via %s: %w", e.EventName(), r.sink.Name(), err)
	}

	logctx.FromOr(ctx, r.log).Debug("event_relayed",
		observability.F("event", e.EventName()),
		observability.F("event_id", msg.Headers["event-id"]),
	)
	return nil
}

// Encode builds the envelope for e and carries the trace context in headers.
func (r *Relay) Encode(ctx context.Context, e event.Event) (Message, error) {
	env := Envelope{
		EventName:   e.EventName(),
		EventID:     r.newID(),
		Producer:    r.producer,
		OccurredAt:  e.OccurredAt,
		Category:    string(e.Kind.Category()),
		Description: e.Kind.Description(),
	}
	if e.Payload != nil {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return Message{}, fmt.Errorf("relay: marshal %s payload: %w", e.EventName(), err)
		}
		env.Payload = payload
	}
	body, err := json.Marshal(env)
	if err != nil {
		return Message{}, fmt.Errorf("relay: marshal %s envelope: %w", e.EventName(), err)
	}

	headers := map[string]string{
		"content-type": "application/json",
		"event-name":   env.EventName,
		"event-id":     env.EventID,
	}
	propagator := otel.GetTextMapPropagator()
	propagator.Inject(ctx, propagation.MapCarrier(headers))

	return Message{Key: env.EventName, Body: body, Headers: headers}, nil
}

func (r *Relay) Close() error { return r.sink.Close() }

// Discard is a sink that drops everything; used when no broker is configured.
type Discard struct{}

func (Discard) Name() string                        { return "none" }
func (Discard) Send(context.Context, Message) error { return nil }
func (Discard) Close() error                        { return nil }
