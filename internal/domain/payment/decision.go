package payment

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Request is what an authorizer or settlement step is asked to approve.
type Request struct {
	TransactionID string
	Method        string
	Amount        float64
	Currency      string
}

// Decision approves or rejects a step. A non-nil error means the provider could
// not be reached, which is reported differently from a rejection.
type Decision func(ctx context.Context, req Request) (approved bool, err error)

// Always returns a decision with a fixed outcome.
func Always(approved bool) Decision {
	return func(context.Context, Request) (bool, error) { return approved, nil }
}

// Simulated approves with the given probability.
func Simulated(rate float64) Decision {
	return SimulatedWithSource(rate, rand.NewSource(time.Now().UnixNano()))
}

// SimulatedWithSource is Simulated with an explicit random source.
func SimulatedWithSource(rate float64, src rand.Source) Decision {
	var mu sync.Mutex
	rnd := rand.New(src)
	return func(ctx context.Context, _ Request) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		mu.Lock()
		defer mu.Unlock()
		return rnd.Float64() < rate, nil
	}
}
