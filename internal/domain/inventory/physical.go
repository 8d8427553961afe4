package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
)

// epsilon absorbs float drift when comparing running totals to budgets.
const epsilon = 1e-9

// PhysicalLedger is a warehouse with fixed weight (kg) and volume (m³) budgets.
// Running totals change in the same critical section as the entry set, and a
// mutation that would overrun either budget is rejected before anything changes.
type PhysicalLedger struct {
	name      string
	location  string
	maxWeight float64
	maxVolume float64
	publisher event.Publisher

	mu             sync.Mutex
	store          store
	occupiedWeight float64
	occupiedVolume float64
}

func NewPhysicalLedger(name, location string, maxWeight, maxVolume float64, publisher event.Publisher) (*PhysicalLedger, error) {
	if maxWeight <= 0 || maxVolume <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidArgument)
	}
	return &PhysicalLedger{
		name:      name,
		location:  location,
		maxWeight: maxWeight,
		maxVolume: maxVolume,
		publisher: publisher,
		store:     newStore(),
	}, nil
}

func (l *PhysicalLedger) Name() string { return l.name }

func (l *PhysicalLedger) Location() string { return l.location }

func (l *PhysicalLedger) Kind() EntryKind { return KindPhysical }

func (l *PhysicalLedger) Add(ctx context.Context, e Entry) error {
	if err := requireID(e.ID); err != nil {
		return err
	}
	if e.Kind != KindPhysical || e.Physical == nil {
		return &InvalidEntryError{ID: e.ID, Reason: "not a physical entry"}
	}
	if reason := checkPhysical(e.Physical.Weight, e.Physical.Dimensions); reason != "" {
		return &InvalidEntryError{ID: e.ID, Reason: reason}
	}
	if err := requireQuantity(e.Quantity); err != nil {
		return err
	}

	weight, volume := e.TotalWeight(), e.TotalVolume()

	l.mu.Lock()
	if _, ok := l.store.get(e.ID); ok {
		l.mu.Unlock()
		return &InvalidEntryError{ID: e.ID, Reason: "duplicate id"}
	}
	if err := l.checkLocked(e.ID, weight, volume); err != nil {
		l.mu.Unlock()
		return err
	}
	e.UpdatedAt = time.Now().UTC()
	l.store.put(e)
	l.occupiedWeight += weight
	l.occupiedVolume += volume
	l.mu.Unlock()

	emit(ctx, l.publisher, &pendingEvent{kind: event.ProductAdded, payload: changeOf(l.name, e, 0)})
	return nil
}

func (l *PhysicalLedger) Remove(ctx context.Context, id string) error {
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
	l.occupiedWeight -= e.TotalWeight()
	l.occupiedVolume -= e.TotalVolume()
	l.normalizeLocked()
	l.mu.Unlock()

	removed := changeOf(l.name, e, e.Quantity)
	removed.Current = 0
	emit(ctx, l.publisher, &pendingEvent{kind: event.ProductRemoved, payload: removed})
	return nil
}

// UpdateStock sets the quantity on hand. Increases are checked against both
// budgets; decreases always fit.
func (l *PhysicalLedger) UpdateStock(ctx context.Context, id string, quantity int) error {
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
	delta := float64(quantity - previous)
	dw, dv := e.UnitWeight()*delta, e.UnitVolume()*delta
	if delta > 0 {
		if err := l.checkLocked(id, dw, dv); err != nil {
			l.mu.Unlock()
			return err
		}
	}
	e.Quantity = quantity
	e.UpdatedAt = time.Now().UTC()
	l.store.put(e)
	l.occupiedWeight += dw
	l.occupiedVolume += dv
	l.normalizeLocked()
	l.mu.Unlock()

	emit(ctx, l.publisher, &pendingEvent{kind: event.StockUpdated, payload: changeOf(l.name, e, previous)})
	return nil
}

func (l *PhysicalLedger) Find(id string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.store.get(id)
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

func (l *PhysicalLedger) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.list()
}

func (l *PhysicalLedger) Capacity() (CapacityStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked(), true
}

// HasRoomFor reports whether weight and volume would both still fit. It never mutates.
func (l *PhysicalLedger) HasRoomFor(weight, volume float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.occupiedWeight+weight <= l.maxWeight+epsilon &&
		l.occupiedVolume+volume <= l.maxVolume+epsilon
}

// Summary renders the capacity status as a one-line report.
func (l *PhysicalLedger) Summary() string {
	s, _ := l.Capacity()
	return fmt.Sprintf("Warehouse: %s (%s) - Weight: %.2f/%.2f kg - Volume: %.3f/%.3f m³ - Entries: %d",
		s.Name, l.location, s.OccupiedWeight, s.CapacityWeight, s.OccupiedVolume, s.CapacityVolume, s.EntryCount)
}

// checkLocked validates weight first, then volume, so the reported dimension is deterministic.
func (l *PhysicalLedger) checkLocked(id string, weight, volume float64) error {
	if l.occupiedWeight+weight > l.maxWeight+epsilon {
		return &CapacityError{
			Ledger:    l.name,
			EntryID:   id,
			Dimension: DimensionWeight,
			Available: l.maxWeight - l.occupiedWeight,
			Required:  weight,
		}
	}
	if l.occupiedVolume+volume > l.maxVolume+epsilon {
		return &CapacityError{
			Ledger:    l.name,
			EntryID:   id,
			Dimension: DimensionVolume,
			Available: l.maxVolume - l.occupiedVolume,
			Required:  volume,
		}
	}
	return nil
}

func (l *PhysicalLedger) normalizeLocked() {
	if l.store.len() == 0 {
		l.occupiedWeight, l.occupiedVolume = 0, 0
		return
	}
	if l.occupiedWeight < 0 {
		l.occupiedWeight = 0
	}
	if l.occupiedVolume < 0 {
		l.occupiedVolume = 0
	}
}

func (l *PhysicalLedger) statusLocked() CapacityStatus {
	return CapacityStatus{
		Name:           l.name,
		OccupiedWeight: l.occupiedWeight,
		CapacityWeight: l.maxWeight,
		OccupiedVolume: l.occupiedVolume,
		CapacityVolume: l.maxVolume,
		EntryCount:     l.store.len(),
	}
}

var _ Ledger = (*PhysicalLedger)(nil)
