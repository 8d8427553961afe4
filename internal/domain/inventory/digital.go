package inventory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
)

// DigitalLedger holds downloadable products. It has no capacity budget; an
// entry is admitted only when it carries a resource locator.
type DigitalLedger struct {
	name          string
	storageServer string
	publisher     event.Publisher

	mu    sync.Mutex
	store store
}

func NewDigitalLedger(name, storageServer string, publisher event.Publisher) *DigitalLedger {
	return &DigitalLedger{
		name:          name,
		storageServer: storageServer,
		publisher:     publisher,
		store:         newStore(),
	}
}

func (l *DigitalLedger) Name() string { return l.name }

// Location is the storage server that hosts the files.
func (l *DigitalLedger) Location() string { return l.storageServer }

func (l *DigitalLedger) Kind() EntryKind { return KindDigital }

// Add inserts e, replacing any entry with the same id in place.
func (l *DigitalLedger) Add(ctx context.Context, e Entry) error {
	if err := requireID(e.ID); err != nil {
		return err
	}
	if e.Kind != KindDigital || e.Digital == nil {
		return &InvalidEntryError{ID: e.ID, Reason: "not a digital entry"}
	}
	if strings.TrimSpace(e.Digital.URL) == "" {
		return &InvalidEntryError{ID: e.ID, Reason: "missing resource locator"}
	}
	if err := requireQuantity(e.Quantity); err != nil {
		return err
	}

	l.mu.Lock()
	previous := 0
	if old, ok := l.store.get(e.ID); ok {
		previous = old.Quantity
	}
	e.UpdatedAt = time.Now().UTC()
	l.store.put(e)
	l.mu.Unlock()

	emit(ctx, l.publisher, &pendingEvent{kind: event.ProductAdded, payload: changeOf(l.name, e, previous)})
	return nil
}

func (l *DigitalLedger) Remove(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}

	l.mu.Lock()
	e, ok := l.store.get(id)
	if !ok {
		l.mu.Unlock()
		return &NotFoundError{ID: id, Ledger: l.name}
	}
	l.store.delete(id)
	l.mu.Unlock()

	removed := changeOf(l.name, e, e.Quantity)
	removed.Current = 0
	emit(ctx, l.publisher, &pendingEvent{kind: event.ProductRemoved, payload: removed})
	return nil
}

// UpdateStock overwrites the quantity on hand; there is no budget to check.
func (l *DigitalLedger) UpdateStock(ctx context.Context, id string, quantity int) error {
	if err := requireID(id); err != nil {
		return err
	}
	if err := requireQuantity(quantity); err != nil {
		return err
	}

	l.mu.Lock()
	e, ok := l.store.get(id)
	if !ok {
		l.mu.Unlock()
		return &NotFoundError{ID: id, Ledger: l.name}
	}
	previous := e.Quantity
	e.Quantity = quantity
	e.UpdatedAt = time.Now().UTC()
	l.store.put(e)
	l.mu.Unlock()

	emit(ctx, l.publisher, &pendingEvent{kind: event.StockUpdated, payload: changeOf(l.name, e, previous)})
	return nil
}

func (l *DigitalLedger) Find(id string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.store.get(id)
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

func (l *DigitalLedger) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.list()
}

// Available reports whether the product can be downloaded right now.
func (l *DigitalLedger) Available(id string) bool {
	e, ok := l.Find(id)
	return ok && e.Digital != nil && strings.TrimSpace(e.Digital.URL) != "" && e.Quantity > 0
}

func (l *DigitalLedger) Capacity() (CapacityStatus, bool) { return CapacityStatus{}, false }

func (l *DigitalLedger) HasRoomFor(float64, float64) bool { return true }

var _ Ledger = (*DigitalLedger)(nil)
