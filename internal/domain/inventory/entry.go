package inventory

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// EntryKind tags the variant of a stock-keeping entry.
type EntryKind string

const (
	KindDigital  EntryKind = "digital"
	KindPhysical EntryKind = "physical"
)

// Dimensions are the per-unit measurements of a physical product, in metres.
type Dimensions struct {
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
}

func (d Dimensions) Volume() float64 { return d.Height * d.Width * d.Depth }

// DigitalAttrs carries the fields only digital entries have.
type DigitalAttrs struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

// PhysicalAttrs carries the fields only physical entries have.
type PhysicalAttrs struct {
	Weight     float64    `json:"weight"`
	Dimensions Dimensions `json:"dimensions"`
}

// Entry is one stock-keeping record. Exactly one of Digital or Physical is set,
// matching Kind. Quantity only changes through a ledger.
type Entry struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Price     float64        `json:"price"`
	Quantity  int            `json:"quantity"`
	Kind      EntryKind      `json:"kind"`
	Digital   *DigitalAttrs  `json:"digital,omitempty"`
	Physical  *PhysicalAttrs `json:"physical,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func NewDigitalEntry(id, name string, price float64, quantity int, format, url string) (Entry, error) {
	if err := validateCommon(id, price, quantity); err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:        id,
		Name:      name,
		Price:     price,
		Quantity:  quantity,
		Kind:      KindDigital,
		Digital:   &DigitalAttrs{Format: format, URL: strings.TrimSpace(url)},
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func NewPhysicalEntry(id, name string, price float64, quantity int, weight float64, dims Dimensions) (Entry, error) {
	if err := validateCommon(id, price, quantity); err != nil {
		return Entry{}, err
	}
	if reason := checkPhysical(weight, dims); reason != "" {
		return Entry{}, fmt.Errorf("%w: %s", ErrInvalidArgument, reason)
	}
	return Entry{
		ID:        id,
		Name:      name,
		Price:     price,
		Quantity:  quantity,
		Kind:      KindPhysical,
		Physical:  &PhysicalAttrs{Weight: weight, Dimensions: dims},
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func validateCommon(id string, price float64, quantity int) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidArgument)
	case price < 0 || !finite(price):
		return fmt.Errorf("%w: price must be a finite non-negative number", ErrInvalidArgument)
	case quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidArgument)
	}
	return nil
}

// checkPhysical returns why the measurements cannot be admitted, or "" when
// they can. NaN compares false against every bound, so finiteness is explicit.
func checkPhysical(weight float64, dims Dimensions) string {
	if weight < 0 || !finite(weight) {
		return "weight must be a finite non-negative number"
	}
	for _, d := range []float64{dims.Height, dims.Width, dims.Depth} {
		if d <= 0 || !finite(d) {
			return "dimensions must be finite positive numbers"
		}
	}
	return ""
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// UnitWeight is zero for entries without physical attributes.
func (e Entry) UnitWeight() float64 {
	if e.Physical == nil {
		return 0
	}
	return e.Physical.Weight
}

func (e Entry) UnitVolume() float64 {
	if e.Physical == nil {
		return 0
	}
	return e.Physical.Dimensions.Volume()
}

// TotalWeight is the weight the entry occupies at its current quantity.
func (e Entry) TotalWeight() float64 { return e.UnitWeight() * float64(e.Quantity) }

func (e Entry) TotalVolume() float64 { return e.UnitVolume() * float64(e.Quantity) }

// StockValue is price times quantity on hand.
func (e Entry) StockValue() float64 { return e.Price * float64(e.Quantity) }

// clone detaches the variant attributes so the copy shares no memory with e.
func (e Entry) clone() Entry {
	if e.Digital != nil {
		d := *e.Digital
		e.Digital = &d
	}
	if e.Physical != nil {
		p := *e.Physical
		e.Physical = &p
	}
	return e
}
