package inventory

import (
	"context"

	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
)

// EntryChange is the payload of PRODUCT_ADDED, PRODUCT_REMOVED and STOCK_UPDATED.
type EntryChange struct {
	Ledger   string    `json:"ledger"`
	EntryID  string    `json:"entryId"`
	Name     string    `json:"name"`
	Kind     EntryKind `json:"kind"`
	Previous int       `json:"previousQuantity"`
	Current  int       `json:"currentQuantity"`
}

type pendingEvent struct {
	kind    event.Kind
	payload EntryChange
}

func changeOf(ledger string, e Entry, previous int) EntryChange {
	return EntryChange{
		Ledger:   ledger,
		EntryID:  e.ID,
		Name:     e.Name,
		Kind:     e.Kind,
		Previous: previous,
		Current:  e.Quantity,
	}
}

// emit runs after the ledger lock is released so listeners may read the ledger.
func emit(ctx context.Context, p event.Publisher, pe *pendingEvent) {
	if pe == nil {
		return
	}
	event.Publish(ctx, p, pe.kind, pe.payload)
}
