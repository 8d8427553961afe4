package event

import (
	"context"
	"time"
)

// Event is an immutable notification: a catalog kind plus an optional opaque payload.
type Event struct {
	Kind       Kind
	Payload    any
	OccurredAt time.Time
}

// New stamps an event with the current UTC time.
func New(kind Kind, payload any) Event {
	return Event{
		Kind:       kind,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// EventName returns the stable code of the event kind.
func (e Event) EventName() string { return e.Kind.Code() }

// Listener reacts to a published event. A returned error is reported by the
// bus but never reaches the publisher.
type Listener func(ctx context.Context, e Event) error

// Publisher publishes events to interested listeners.
type Publisher interface {
	Publish(ctx context.Context, kind Kind, payload any)
}

// Subscriber registers listeners for event kinds.
type Subscriber interface {
	Subscribe(kind Kind, l Listener)
}

// Bus is both ends of the notification channel.
type Bus interface {
	Publisher
	Subscriber
}

// Publish is a nil-safe helper for components with an optional publisher.
func Publish(ctx context.Context, p Publisher, kind Kind, payload any) {
	if p == nil {
		return
	}
	p.Publish(ctx, kind, payload)
}
