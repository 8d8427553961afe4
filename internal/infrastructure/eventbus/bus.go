package eventbus

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
	"github.com/vberihuete/BIU-master-oop/internal/observability/logctx"
)

const componentBus = "event_bus"

const (
	outcomeDelivered  = "delivered"
	outcomeDisabled   = "disabled"
	outcomeNoListener = "no_listener"
)

// Bus is an in-memory, synchronous fan-out bus. Publish returns only after every
// listener registered for the kind has run. A failing listener is logged and
// counted but never stops the remaining listeners nor reaches the publisher.
type Bus struct {
	mu        sync.RWMutex
	listeners map[event.Kind][]event.Listener
	enabled   atomic.Bool

	log       observability.Logger
	published observability.Counter // events_published_total{event,outcome}
	failures  observability.Counter // events_listener_failures_total{event}
}

// Stats is a point-in-time view of the bus registry.
type Stats struct {
	Enabled   bool           `json:"enabled"`
	Listeners map[string]int `json:"listeners"`
	Total     int            `json:"total"`
}

func New(tel observability.Observability) *Bus {
	logger, _, metrics := observability.Components(tel)
	b := &Bus{
		listeners: make(map[event.Kind][]event.Listener),
		log:       logger.With(observability.F("component", componentBus)),
		published: metrics.Counter(observability.MEventsPublished),
		failures:  metrics.Counter(observability.MEventListenerFailures),
	}
	b.enabled.Store(true)
	return b
}

// Subscribe appends l to the ordered listener list of kind. A nil listener is ignored.
func (b *Bus) Subscribe(kind event.Kind, l event.Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	b.listeners[kind] = append(b.listeners[kind], l)
	b.mu.Unlock()

	b.log.Debug("event_listener_subscribed",
		observability.F("event", kind.Code()),
	)
}

// UnsubscribeAll drops the listeners of the given kinds, or of every kind when none is given.
func (b *Bus) UnsubscribeAll(kinds ...event.Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(kinds) == 0 {
		b.listeners = make(map[event.Kind][]event.Listener)
		return
	}
	for _, k := range kinds {
		delete(b.listeners, k)
	}
}

// SetEnabled toggles delivery. Subscriptions survive a disable.
func (b *Bus) SetEnabled(enabled bool) {
	if b.enabled.Swap(enabled) != enabled {
		b.log.Info("event_bus_toggled", observability.F("enabled", enabled))
	}
}

func (b *Bus) Enabled() bool { return b.enabled.Load() }

// ListenerCount returns the number of listeners for the given kinds, or for all kinds.
func (b *Bus) ListenerCount(kinds ...event.Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	if len(kinds) == 0 {
		for _, ls := range b.listeners {
			n += len(ls)
		}
		return n
	}
	for _, k := range kinds {
		n += len(b.listeners[k])
	}
	return n
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := Stats{
		Enabled:   b.enabled.Load(),
		Listeners: make(map[string]int, len(b.listeners)),
	}
	for k, ls := range b.listeners {
		if len(ls) == 0 {
			continue
		}
		s.Listeners[k.Code()] = len(ls)
		s.Total += len(ls)
	}
	return s
}

// Kinds returns the codes that currently have listeners, sorted.
func (s Stats) Kinds() []string {
	out := make([]string, 0, len(s.Listeners))
	for k := range s.Listeners {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Publish delivers an event of the given kind to its listeners in registration order.
func (b *Bus) Publish(ctx context.Context, kind event.Kind, payload any) {
	name := kind.Code()
	if !b.enabled.Load() {
		b.count(name, outcomeDisabled)
		return
	}

	b.mu.RLock()
	listeners := append([]event.Listener(nil), b.listeners[kind]...)
	b.mu.RUnlock()

	if len(listeners) == 0 {
		b.count(name, outcomeNoListener)
		logctx.FromOr(ctx, b.log).Debug("event_dropped_no_listener",
			observability.F("event", name),
		)
		return
	}

	e := event.New(kind, payload)
	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", name))
	ctx = logctx.With(ctx, logger)

	for i, l := range listeners {
		b.dispatch(ctx, logger, e, i, l)
	}
	b.count(name, outcomeDelivered)

	logger.Debug("event_fanned_out",
		observability.F("listeners", len(listeners)),
	)
}

func (b *Bus) dispatch(ctx context.Context, logger observability.Logger, e event.Event, idx int, l event.Listener) {
	defer func() {
		if r := recover(); r != nil {
			b.fail(e)
			logger.Error("event_listener_panic",
				observability.F("listener", idx),
				observability.F("panic", fmt.Sprint(r)),
				observability.F("stack", string(debug.Stack())),
			)
		}
	}()

	if err := l(ctx, e); err != nil {
		b.fail(e)
		logger.Warn("event_listener_failed",
			observability.F("listener", idx),
			observability.F("error", err),
		)
	}
}

func (b *Bus) fail(e event.Event) {
	b.failures.Add(1, observability.L("event", e.EventName()))
}

func (b *Bus) count(name, outcome string) {
	b.published.Add(1,
		observability.L("event", name),
		observability.L("outcome", outcome),
	)
}

var _ event.Bus = (*Bus)(nil)
