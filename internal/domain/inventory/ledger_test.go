package inventory

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
)

type published struct {
	kind    event.Kind
	payload any
}

type recordingPublisher struct{ events []published }

func (p *recordingPublisher) Publish(_ context.Context, kind event.Kind, payload any) {
	p.events = append(p.events, published{kind: kind, payload: payload})
}

func (p *recordingPublisher) kinds() []event.Kind {
	out := make([]event.Kind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.kind)
	}
	return out
}

func mustPhysical(t *testing.T, id string, weight float64, qty int, dims Dimensions) Entry {
	t.Helper()
	e, err := NewPhysicalEntry(id, "item "+id, 10, qty, weight, dims)
	require.NoError(t, err)
	return e
}

func mustDigital(t *testing.T, id, url string, qty int) Entry {
	t.Helper()
	e, err := NewDigitalEntry(id, "ebook "+id, 9.99, qty, "PDF", url)
	require.NoError(t, err)
	return e
}

func newWarehouse(t *testing.T, pub event.Publisher) *PhysicalLedger {
	t.Helper()
	l, err := NewPhysicalLedger("central", "Madrid", 100, 50, pub)
	require.NoError(t, err)
	return l
}

func TestPhysicalAddWithinCapacity(t *testing.T) {
	pub := &recordingPublisher{}
	l := newWarehouse(t, pub)

	e := mustPhysical(t, "P1", 2.5, 5, Dimensions{Height: 0.3, Width: 0.4, Depth: 0.05})
	require.NoError(t, l.Add(context.Background(), e))

	s, ok := l.Capacity()
	require.True(t, ok)
	assert.InDelta(t, 12.5, s.OccupiedWeight, 1e-9)
	assert.InDelta(t, 0.03, s.OccupiedVolume, 1e-9)
	assert.Equal(t, 1, s.EntryCount)
	assert.Equal(t, []event.Kind{event.ProductAdded}, pub.kinds())
	assert.Equal(t, EntryChange{Ledger: "central", EntryID: "P1", Name: "item P1", Kind: KindPhysical, Current: 5}, pub.events[0].payload)
}

func TestPhysicalAddOverWeightIsRejectedAtomically(t *testing.T) {
	pub := &recordingPublisher{}
	l := newWarehouse(t, pub)
	require.NoError(t, l.Add(context.Background(), mustPhysical(t, "P1", 2.5, 5, Dimensions{Height: 0.3, Width: 0.4, Depth: 0.05})))
	before, _ := l.Capacity()
	entriesBefore := l.List()

	err := l.Add(context.Background(), mustPhysical(t, "HEAVY", 500, 1, Dimensions{Height: 1, Width: 1, Depth: 1}))

	require.ErrorIs(t, err, ErrInsufficientCapacity)
	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, DimensionWeight, capErr.Dimension)
	assert.InDelta(t, 87.5, capErr.Available, 1e-9)
	assert.InDelta(t, 500, capErr.Required, 1e-9)
	assert.Equal(t, "HEAVY", capErr.EntryID)

	after, _ := l.Capacity()
	assert.Equal(t, before, after)
	assert.Equal(t, entriesBefore, l.List())
	assert.Len(t, pub.events, 1)
}

func TestPhysicalAddOverVolume(t *testing.T) {
	l := newWarehouse(t, nil)

	err := l.Add(context.Background(), mustPhysical(t, "BULKY", 1, 1, Dimensions{Height: 5, Width: 5, Depth: 5}))

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, DimensionVolume, capErr.Dimension)
	assert.InDelta(t, 50, capErr.Available, 1e-9)
	assert.InDelta(t, 125, capErr.Required, 1e-9)
	s, _ := l.Capacity()
	assert.Zero(t, s.OccupiedWeight)
	assert.Zero(t, s.EntryCount)
}

func TestPhysicalAddRejectsDigitalAndDuplicates(t *testing.T) {
	l := newWarehouse(t, nil)

	err := l.Add(context.Background(), mustDigital(t, "D1", "https://cdn/d1", 1))
	assert.ErrorIs(t, err, ErrInvalidEntry)

	e := mustPhysical(t, "P1", 1, 1, Dimensions{Height: 0.1, Width: 0.1, Depth: 0.1})
	require.NoError(t, l.Add(context.Background(), e))
	err = l.Add(context.Background(), e)
	var invalid *InvalidEntryError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "duplicate id", invalid.Reason)

	s, _ := l.Capacity()
	assert.InDelta(t, 1, s.OccupiedWeight, 1e-9)
}

func TestPhysicalRemoveReleasesCapacity(t *testing.T) {
	pub := &recordingPublisher{}
	l := newWarehouse(t, pub)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, mustPhysical(t, "A", 3, 2, Dimensions{Height: 0.5, Width: 0.5, Depth: 0.5})))
	require.NoError(t, l.Add(ctx, mustPhysical(t, "B", 1.5, 4, Dimensions{Height: 0.2, Width: 0.2, Depth: 0.2})))

	require.NoError(t, l.Remove(ctx, "A"))
	s, _ := l.Capacity()
	assert.InDelta(t, 6, s.OccupiedWeight, 1e-9)
	assert.InDelta(t, 0.032, s.OccupiedVolume, 1e-9)

	require.NoError(t, l.Remove(ctx, "B"))
	s, _ = l.Capacity()
	assert.Zero(t, s.OccupiedWeight)
	assert.Zero(t, s.OccupiedVolume)

	err := l.Remove(ctx, "B")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "central", nf.Ledger)
	assert.Equal(t, "B", nf.ID)
	assert.Equal(t, []event.Kind{event.ProductAdded, event.ProductAdded, event.ProductRemoved, event.ProductRemoved}, pub.kinds())
}

func TestPhysicalUpdateStock(t *testing.T) {
	pub := &recordingPublisher{}
	l := newWarehouse(t, pub)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, mustPhysical(t, "P1", 2, 10, Dimensions{Height: 0.1, Width: 0.1, Depth: 0.1})))

	require.NoError(t, l.UpdateStock(ctx, "P1", 40))
	s, _ := l.Capacity()
	assert.InDelta(t, 80, s.OccupiedWeight, 1e-9)

	err := l.UpdateStock(ctx, "P1", 51)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, DimensionWeight, capErr.Dimension)
	assert.InDelta(t, 20, capErr.Available, 1e-9)
	assert.InDelta(t, 22, capErr.Required, 1e-9)
	e, _ := l.Find("P1")
	assert.Equal(t, 40, e.Quantity)

	require.NoError(t, l.UpdateStock(ctx, "P1", 0))
	s, _ = l.Capacity()
	assert.InDelta(t, 0, s.OccupiedWeight, 1e-9)
	assert.Equal(t, 1, s.EntryCount)

	assert.ErrorIs(t, l.UpdateStock(ctx, "P1", -1), ErrInvalidArgument)
	assert.ErrorIs(t, l.UpdateStock(ctx, "missing", 1), ErrNotFound)

	last := pub.events[len(pub.events)-1].payload.(EntryChange)
	assert.Equal(t, 40, last.Previous)
	assert.Equal(t, 0, last.Current)
}

func TestHasRoomForIsPure(t *testing.T) {
	l := newWarehouse(t, nil)
	require.NoError(t, l.Add(context.Background(), mustPhysical(t, "P1", 2.5, 5, Dimensions{Height: 0.3, Width: 0.4, Depth: 0.05})))

	assert.True(t, l.HasRoomFor(87.5, 49.97))
	assert.False(t, l.HasRoomFor(87.6, 1))
	assert.False(t, l.HasRoomFor(1, 50))
	s, _ := l.Capacity()
	assert.InDelta(t, 12.5, s.OccupiedWeight, 1e-9)
}

func TestCapacityInvariantHoldsUnderRandomMutations(t *testing.T) {
	l := newWarehouse(t, nil)
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(42))
	ids := []string{"a", "b", "c", "d", "e", "f"}

	for i := 0; i < 2000; i++ {
		id := ids[rnd.Intn(len(ids))]
		before, _ := l.Capacity()
		var err error
		switch rnd.Intn(3) {
		case 0:
			dims := Dimensions{Height: rnd.Float64() + 0.01, Width: rnd.Float64() + 0.01, Depth: rnd.Float64() + 0.01}
			err = l.Add(ctx, mustPhysical(t, id, rnd.Float64()*20, rnd.Intn(6), dims))
		case 1:
			err = l.Remove(ctx, id)
		case 2:
			err = l.UpdateStock(ctx, id, rnd.Intn(12))
		}

		s, _ := l.Capacity()
		require.LessOrEqual(t, s.OccupiedWeight, s.CapacityWeight+epsilon)
		require.LessOrEqual(t, s.OccupiedVolume, s.CapacityVolume+epsilon)
		require.GreaterOrEqual(t, s.OccupiedWeight, 0.0)
		require.GreaterOrEqual(t, s.OccupiedVolume, 0.0)
		if err != nil {
			require.Equal(t, before, s, "failed mutation changed totals at step %d", i)
		}

		var w, v float64
		for _, e := range l.List() {
			w += e.TotalWeight()
			v += e.TotalVolume()
		}
		require.InDelta(t, w, s.OccupiedWeight, 1e-6)
		require.InDelta(t, v, s.OccupiedVolume, 1e-6)
	}
}

func TestDigitalLedger(t *testing.T) {
	pub := &recordingPublisher{}
	l := NewDigitalLedger("ebooks", "cdn.example.com", pub)
	ctx := context.Background()

	require.NoError(t, l.Add(ctx, mustDigital(t, "D1", "https://cdn/d1", 3)))
	require.NoError(t, l.Add(ctx, mustDigital(t, "D2", "https://cdn/d2", 0)))

	assert.ErrorIs(t, l.Add(ctx, mustDigital(t, "D3", "", 1)), ErrInvalidEntry)
	assert.ErrorIs(t, l.Add(ctx, mustPhysical(t, "P1", 1, 1, Dimensions{Height: 1, Width: 1, Depth: 1})), ErrInvalidEntry)

	assert.True(t, l.Available("D1"))
	assert.False(t, l.Available("D2"))
	assert.False(t, l.Available("missing"))

	require.NoError(t, l.UpdateStock(ctx, "D2", 1000000))
	e, ok := l.Find("D2")
	require.True(t, ok)
	assert.Equal(t, 1000000, e.Quantity)

	_, ok = l.Capacity()
	assert.False(t, ok)
	assert.True(t, l.HasRoomFor(1e9, 1e9))

	require.NoError(t, l.Remove(ctx, "D1"))
	assert.ErrorIs(t, l.Remove(ctx, "D1"), ErrNotFound)
	_, ok = l.Find("D1")
	assert.False(t, ok)

	assert.Equal(t, []event.Kind{event.ProductAdded, event.ProductAdded, event.StockUpdated, event.ProductRemoved}, pub.kinds())
}

func TestDigitalDuplicateOverwritesInPlace(t *testing.T) {
	l := NewDigitalLedger("ebooks", "cdn", nil)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, mustDigital(t, "D1", "https://cdn/v1", 1)))
	require.NoError(t, l.Add(ctx, mustDigital(t, "D2", "https://cdn/d2", 1)))
	require.NoError(t, l.Add(ctx, mustDigital(t, "D1", "https://cdn/v2", 7)))

	list := l.List()
	require.Len(t, list, 2)
	assert.Equal(t, "D1", list[0].ID)
	assert.Equal(t, "https://cdn/v2", list[0].Digital.URL)
	assert.Equal(t, 7, list[0].Quantity)
}

func TestListReturnsDetachedCopies(t *testing.T) {
	l := newWarehouse(t, nil)
	require.NoError(t, l.Add(context.Background(), mustPhysical(t, "P1", 1, 2, Dimensions{Height: 0.1, Width: 0.1, Depth: 0.1})))

	list := l.List()
	list[0].Quantity = 999
	list[0].Physical.Weight = 999

	e, _ := l.Find("P1")
	assert.Equal(t, 2, e.Quantity)
	assert.InDelta(t, 1, e.Physical.Weight, 1e-9)
	assert.Len(t, l.List(), 1)
}

func TestEntryConstructorsValidate(t *testing.T) {
	_, err := NewPhysicalEntry("", "x", 1, 1, 1, Dimensions{Height: 1, Width: 1, Depth: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewPhysicalEntry("p", "x", -1, 1, 1, Dimensions{Height: 1, Width: 1, Depth: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewPhysicalEntry("p", "x", 1, -1, 1, Dimensions{Height: 1, Width: 1, Depth: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewPhysicalEntry("p", "x", 1, 1, 1, Dimensions{Height: 0, Width: 1, Depth: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	e, err := NewDigitalEntry("d", "x", 0, 0, "EPUB", "")
	require.NoError(t, err)
	assert.Equal(t, KindDigital, e.Kind)
}

func TestPhysicalEntryRejectsNonFiniteMeasurements(t *testing.T) {
	unit := Dimensions{Height: 1, Width: 1, Depth: 1}
	cases := map[string]struct {
		weight float64
		dims   Dimensions
	}{
		"nan weight":      {math.NaN(), unit},
		"inf weight":      {math.Inf(1), unit},
		"nan height":      {1, Dimensions{Height: math.NaN(), Width: 1, Depth: 1}},
		"inf width":       {1, Dimensions{Height: 1, Width: math.Inf(1), Depth: 1}},
		"negative depth":  {1, Dimensions{Height: 1, Width: 1, Depth: -1}},
		"negative weight": {-1, unit},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPhysicalEntry("p", "x", 1, 1, tc.weight, tc.dims)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	_, err := NewPhysicalEntry("p", "x", math.NaN(), 1, 1, unit)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPhysicalAddRechecksLiteralEntries(t *testing.T) {
	ctx := context.Background()
	unit := Dimensions{Height: 0.1, Width: 0.1, Depth: 0.1}
	literal := func(id string, weight float64, dims Dimensions) Entry {
		return Entry{ID: id, Quantity: 1, Kind: KindPhysical, Physical: &PhysicalAttrs{Weight: weight, Dimensions: dims}}
	}

	pub := &recordingPublisher{}
	l := newWarehouse(t, pub)
	for _, e := range []Entry{
		literal("neg", -1000, unit),
		literal("nan", math.NaN(), unit),
		literal("inf", math.Inf(1), unit),
		literal("flat", 1, Dimensions{Height: 0, Width: 1, Depth: 1}),
		literal("nandim", 1, Dimensions{Height: math.NaN(), Width: 1, Depth: 1}),
	} {
		var invalid *InvalidEntryError
		require.ErrorAs(t, l.Add(ctx, e), &invalid, e.ID)
		assert.ErrorIs(t, invalid, ErrInvalidEntry)
	}
	assert.Empty(t, pub.events)

	st, _ := l.Capacity()
	assert.Zero(t, st.OccupiedWeight)
	assert.Zero(t, st.EntryCount)

	// The budget still holds after the rejected attempts.
	err := l.Add(ctx, literal("heavy", 500, unit))
	assert.ErrorIs(t, err, ErrInsufficientCapacity)
	require.NoError(t, l.Add(ctx, literal("ok", 100, unit)))
	st, _ = l.Capacity()
	assert.InDelta(t, 100, st.OccupiedWeight, 1e-9)
}

func TestBlankIDsAreInvalidArguments(t *testing.T) {
	ctx := context.Background()
	physical := newWarehouse(t, nil)
	digital := NewDigitalLedger("digital", "cdn.local", nil)

	for _, l := range []Ledger{physical, digital} {
		for _, id := range []string{"", "   "} {
			err := l.Remove(ctx, id)
			assert.ErrorIs(t, err, ErrInvalidArgument, "%s remove %q", l.Name(), id)
			assert.NotErrorIs(t, err, ErrNotFound)

			err = l.UpdateStock(ctx, id, 3)
			assert.ErrorIs(t, err, ErrInvalidArgument, "%s update %q", l.Name(), id)
			assert.NotErrorIs(t, err, ErrNotFound)
		}
	}
}

func TestDigitalAddRejectsBlankLocator(t *testing.T) {
	l := NewDigitalLedger("digital", "cdn.local", nil)
	e := Entry{ID: "EB1", Quantity: 1, Kind: KindDigital, Digital: &DigitalAttrs{Format: "PDF", URL: "   "}}

	var invalid *InvalidEntryError
	require.ErrorAs(t, l.Add(context.Background(), e), &invalid)
	assert.Empty(t, l.List())
}

func TestSummaryAndNewLedgerValidation(t *testing.T) {
	_, err := NewPhysicalLedger("bad", "nowhere", 0, 10, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	l := newWarehouse(t, nil)
	require.NoError(t, l.Add(context.Background(), mustPhysical(t, "P1", 2.5, 5, Dimensions{Height: 0.3, Width: 0.4, Depth: 0.05})))
	assert.Equal(t, "Warehouse: central (Madrid) - Weight: 12.50/100.00 kg - Volume: 0.030/50.000 m³ - Entries: 1", l.Summary())
}
