package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vberihuete/BIU-master-oop/internal/application"
	dominv "github.com/vberihuete/BIU-master-oop/internal/domain/inventory"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
)

const (
	inventoryService = "inventory-service"

	useCaseAddEntry       = "inventory.add_entry"
	useCaseRemoveEntry    = "inventory.remove_entry"
	useCaseUpdateStock    = "inventory.update_stock"
	useCaseFindEntry      = "inventory.find_entry"
	useCaseListEntries    = "inventory.list_entries"
	useCaseCapacityStatus = "inventory.capacity_status"
	useCaseHasRoomFor     = "inventory.has_room_for"
)

var (
	ErrLedgerNotFound = errors.New("inventory: ledger not found")
	ErrLedgerExists   = errors.New("inventory: ledger already registered")
)

// LedgerInfo describes a registered ledger.
type LedgerInfo struct {
	Name     string                 `json:"name"`
	Location string                 `json:"location"`
	Kind     dominv.EntryKind       `json:"kind"`
	Entries  int                    `json:"entries"`
	Capacity *dominv.CapacityStatus `json:"capacity,omitempty"`
}

// Service routes inventory use cases to named ledgers.
type Service struct {
	mu      sync.RWMutex
	ledgers map[string]dominv.Ledger
	order   []string

	inst      application.Instrumentation
	occupancy observability.Gauge // ledger_occupancy_ratio{ledger,dimension}
}

func NewService(tel observability.Observability) *Service {
	_, _, metrics := observability.Components(tel)
	return &Service{
		ledgers:   make(map[string]dominv.Ledger),
		inst:      application.NewInstrumentation(tel, inventoryService),
		occupancy: metrics.Gauge(observability.MLedgerOccupancy),
	}
}

func (s *Service) Register(l dominv.Ledger) error {
	if l == nil {
		return fmt.Errorf("%w: ledger is nil", dominv.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ledgers[l.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrLedgerExists, l.Name())
	}
	s.ledgers[l.Name()] = l
	s.order = append(s.order, l.Name())
	s.recordOccupancy(l)
	return nil
}

func (s *Service) Ledger(name string) (dominv.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLedgerNotFound, name)
	}
	return l, nil
}

func (s *Service) Describe(name string) (LedgerInfo, error) {
	l, err := s.Ledger(name)
	if err != nil {
		return LedgerInfo{}, err
	}
	return describe(l), nil
}

// Ledgers lists registered ledgers in registration order.
func (s *Service) Ledgers() []LedgerInfo {
	s.mu.RLock()
	ls := make([]dominv.Ledger, 0, len(s.order))
	for _, name := range s.order {
		ls = append(ls, s.ledgers[name])
	}
	s.mu.RUnlock()

	out := make([]LedgerInfo, 0, len(ls))
	for _, l := range ls {
		out = append(out, describe(l))
	}
	return out
}

func (s *Service) AddEntry(ctx context.Context, ledger string, e dominv.Entry) (err error) {
	ctx, call := s.inst.Start(ctx, useCaseAddEntry, "AddEntry",
		attribute.String("ledger", ledger),
		attribute.String("entry.id", e.ID),
		attribute.String("entry.kind", string(e.Kind)),
	)
	call.Annotate(
		observability.F("ledger", ledger),
		observability.F("entry_id", e.ID),
		observability.F("quantity", e.Quantity),
	)
	defer func() { call.End(err) }()

	l, err := s.Ledger(ledger)
	if err != nil {
		call.Fail(application.OutcomeRejected, "LEDGER_NOT_FOUND")
		return err
	}
	if err = l.Add(ctx, e); err != nil {
		call.Fail(application.OutcomeRejected, statusOf(err))
		annotateCapacity(call, err)
		return err
	}
	s.recordOccupancy(l)
	return nil
}

func (s *Service) RemoveEntry(ctx context.Context, ledger, id string) (err error) {
	ctx, call := s.inst.Start(ctx, useCaseRemoveEntry, "RemoveEntry",
		attribute.String("ledger", ledger),
		attribute.String("entry.id", id),
	)
	call.Annotate(observability.F("ledger", ledger), observability.F("entry_id", id))
	defer func() { call.End(err) }()

	l, err := s.Ledger(ledger)
	if err != nil {
		call.Fail(application.OutcomeRejected, "LEDGER_NOT_FOUND")
		return err
	}
	if err = l.Remove(ctx, id); err != nil {
		call.Fail(application.OutcomeRejected, statusOf(err))
		return err
	}
	s.recordOccupancy(l)
	return nil
}

func (s *Service) UpdateStock(ctx context.Context, ledger, id string, quantity int) (err error) {
	ctx, call := s.inst.Start(ctx, useCaseUpdateStock, "UpdateStock",
		attribute.String("ledger", ledger),
		attribute.String("entry.id", id),
		attribute.Int("entry.quantity", quantity),
	)
	call.Annotate(
		observability.F("ledger", ledger),
		observability.F("entry_id", id),
		observability.F("quantity", quantity),
	)
	defer func() { call.End(err) }()

	l, err := s.Ledger(ledger)
	if err != nil {
		call.Fail(application.OutcomeRejected, "LEDGER_NOT_FOUND")
		return err
	}
	if err = l.UpdateStock(ctx, id, quantity); err != nil {
		call.Fail(application.OutcomeRejected, statusOf(err))
		annotateCapacity(call, err)
		return err
	}
	s.recordOccupancy(l)
	return nil
}

// FindEntry returns a NotFoundError when the ledger has no such entry.
func (s *Service) FindEntry(ctx context.Context, ledger, id string) (_ dominv.Entry, err error) {
	_, call := s.inst.Start(ctx, useCaseFindEntry, "FindEntry",
		attribute.String("ledger", ledger),
		attribute.String("entry.id", id),
	)
	call.Annotate(observability.F("ledger", ledger), observability.F("entry_id", id))
	defer func() { call.End(err) }()

	l, err := s.Ledger(ledger)
	if err != nil {
		call.Fail(application.OutcomeRejected, "LEDGER_NOT_FOUND")
		return dominv.Entry{}, err
	}
	e, ok := l.Find(id)
	if !ok {
		call.Fail(application.OutcomeRejected, "NOT_FOUND")
		return dominv.Entry{}, &dominv.NotFoundError{ID: id, Ledger: ledger}
	}
	return e, nil
}

func (s *Service) ListEntries(ctx context.Context, ledger string) (_ []dominv.Entry, err error) {
	_, call := s.inst.Start(ctx, useCaseListEntries, "ListEntries", attribute.String("ledger", ledger))
	call.Annotate(observability.F("ledger", ledger))
	defer func() { call.End(err) }()

	l, err := s.Ledger(ledger)
	if err != nil {
		call.Fail(application.OutcomeRejected, "LEDGER_NOT_FOUND")
		return nil, err
	}
	entries := l.List()
	call.Annotate(observability.F("entries", len(entries)))
	return entries, nil
}

// CapacityStatus reports ok=false for ledgers without a budget.
func (s *Service) CapacityStatus(ctx context.Context, ledger string) (_ dominv.CapacityStatus, ok bool, err error) {
	_, call := s.inst.Start(ctx, useCaseCapacityStatus, "CapacityStatus", attribute.String("ledger", ledger))
	call.Annotate(observability.F("ledger", ledger))
	defer func() { call.End(err) }()

	l, err := s.Ledger(ledger)
	if err != nil {
		call.Fail(application.OutcomeRejected, "LEDGER_NOT_FOUND")
		return dominv.CapacityStatus{}, false, err
	}
	st, ok := l.Capacity()
	return st, ok, nil
}

func (s *Service) HasRoomFor(ctx context.Context, ledger string, weight, volume float64) (_ bool, err error) {
	_, call := s.inst.Start(ctx, useCaseHasRoomFor, "HasRoomFor",
		attribute.String("ledger", ledger),
		attribute.Float64("weight", weight),
		attribute.Float64("volume", volume),
	)
	call.Annotate(observability.F("ledger", ledger))
	defer func() { call.End(err) }()

	l, err := s.Ledger(ledger)
	if err != nil {
		call.Fail(application.OutcomeRejected, "LEDGER_NOT_FOUND")
		return false, err
	}
	room := l.HasRoomFor(weight, volume)
	call.Annotate(observability.F("room", room))
	return room, nil
}

func (s *Service) recordOccupancy(l dominv.Ledger) {
	st, ok := l.Capacity()
	if !ok {
		return
	}
	for _, d := range []dominv.Dimension{dominv.DimensionWeight, dominv.DimensionVolume} {
		s.occupancy.Set(st.Ratio(d),
			observability.L("ledger", l.Name()),
			observability.L("dimension", string(d)),
		)
	}
}

func describe(l dominv.Ledger) LedgerInfo {
	info := LedgerInfo{
		Name:     l.Name(),
		Location: l.Location(),
		Kind:     l.Kind(),
		Entries:  len(l.List()),
	}
	if st, ok := l.Capacity(); ok {
		info.Capacity = &st
	}
	return info
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, dominv.ErrInsufficientCapacity):
		return "INSUFFICIENT_CAPACITY"
	case errors.Is(err, dominv.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, dominv.ErrInvalidEntry):
		return "INVALID_ENTRY"
	case errors.Is(err, dominv.ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	default:
		return "ERROR"
	}
}

func annotateCapacity(call *application.Call, err error) {
	var capErr *dominv.CapacityError
	if !errors.As(err, &capErr) {
		return
	}
	call.Annotate(
		observability.F("dimension", string(capErr.Dimension)),
		observability.F("available", capErr.Available),
		observability.F("required", capErr.Required),
	)
}
