package inventory

import (
	"context"
	"fmt"
	"strings"
)

// Ledger owns a set of entries keyed by identifier. Variant-specific behaviour
// is exposed through the interface itself so callers never type-switch.
type Ledger interface {
	Name() string
	Location() string
	Kind() EntryKind
	Add(ctx context.Context, e Entry) error
	Remove(ctx context.Context, id string) error
	UpdateStock(ctx context.Context, id string, quantity int) error
	Find(id string) (Entry, bool)
	List() []Entry
	// Capacity reports the budget snapshot; ok is false for unconstrained ledgers.
	Capacity() (status CapacityStatus, ok bool)
	HasRoomFor(weight, volume float64) bool
}

// CapacityStatus is a point-in-time view of a constrained ledger's budgets.
type CapacityStatus struct {
	Name           string  `json:"name"`
	OccupiedWeight float64 `json:"occupiedWeight"`
	CapacityWeight float64 `json:"capacityWeight"`
	OccupiedVolume float64 `json:"occupiedVolume"`
	CapacityVolume float64 `json:"capacityVolume"`
	EntryCount     int     `json:"entryCount"`
}

func (s CapacityStatus) AvailableWeight() float64 { return s.CapacityWeight - s.OccupiedWeight }

func (s CapacityStatus) AvailableVolume() float64 { return s.CapacityVolume - s.OccupiedVolume }

// Ratio returns the share of the given budget in use, in [0,1].
func (s CapacityStatus) Ratio(d Dimension) float64 {
	switch d {
	case DimensionWeight:
		if s.CapacityWeight > 0 {
			return s.OccupiedWeight / s.CapacityWeight
		}
	case DimensionVolume:
		if s.CapacityVolume > 0 {
			return s.OccupiedVolume / s.CapacityVolume
		}
	}
	return 0
}

// store keeps entries by id plus their insertion order. Not safe for
// concurrent use; ledgers guard it with their own mutex.
type store struct {
	entries map[string]Entry
	order   []string
}

func newStore() store {
	return store{entries: make(map[string]Entry)}
}

func (s *store) get(id string) (Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// put inserts or replaces; a replaced entry keeps its position.
func (s *store) put(e Entry) {
	if _, ok := s.entries[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.entries[e.ID] = e.clone()
}

func (s *store) delete(id string) {
	if _, ok := s.entries[id]; !ok {
		return
	}
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *store) len() int { return len(s.entries) }

func (s *store) list() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].clone())
	}
	return out
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	return nil
}

func requireQuantity(q int) error {
	if q < 0 {
		return fmt.Errorf("%w: quantity must not be negative, got %d", ErrInvalidArgument, q)
	}
	return nil
}
