package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument      = errors.New("inventory: invalid argument")
	ErrInvalidEntry         = errors.New("inventory: invalid entry")
	ErrNotFound             = errors.New("inventory: entry not found")
	ErrInsufficientCapacity = errors.New("inventory: insufficient capacity")
)

// Dimension names the capacity budget that was exceeded.
type Dimension string

const (
	DimensionWeight Dimension = "weight"
	DimensionVolume Dimension = "volume"
)

type NotFoundError struct {
	ID     string
	Ledger string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("inventory: entry %q not found in ledger %q", e.ID, e.Ledger)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CapacityError reports the budget a mutation would have overrun. Available is
// what remains in the dimension; Required is what the mutation asked for.
type CapacityError struct {
	Ledger    string
	EntryID   string
	Dimension Dimension
	Available float64
	Required  float64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("inventory: insufficient %s capacity in ledger %q for entry %q: available %.3f, required %.3f",
		e.Dimension, e.Ledger, e.EntryID, e.Available, e.Required)
}

func (e *CapacityError) Is(target error) bool { return target == ErrInsufficientCapacity }

type InvalidEntryError struct {
	ID     string
	Reason string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("inventory: invalid entry %q: %s", e.ID, e.Reason)
}

func (e *InvalidEntryError) Is(target error) bool { return target == ErrInvalidEntry }
