package payment

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
)

// Transaction is one attempted payment. It is safe for concurrent use; each
// call runs under the transaction's own lock and events are published after
// the lock is released.
type Transaction struct {
	method    Method
	authorize Decision
	settle    Decision
	publisher event.Publisher
	newID     func(prefix string) string
	now       func() time.Time

	mu          sync.Mutex
	id          string
	amount      float64
	currency    string
	initiatedAt time.Time
	token       string
	state       State
}

type Option func(*Transaction)

// WithAuthorizer replaces the simulated verification step.
func WithAuthorizer(d Decision) Option {
	return func(t *Transaction) {
		if d != nil {
			t.authorize = d
		}
	}
}

// WithSettlement replaces the simulated confirmation step.
func WithSettlement(d Decision) Option {
	return func(t *Transaction) {
		if d != nil {
			t.settle = d
		}
	}
}

func WithPublisher(p event.Publisher) Option {
	return func(t *Transaction) { t.publisher = p }
}

func WithIDGenerator(fn func(prefix string) string) Option {
	return func(t *Transaction) {
		if fn != nil {
			t.newID = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Transaction) {
		if now != nil {
			t.now = now
		}
	}
}

// NewID returns prefix followed by eight upper-case hex characters.
func NewID(prefix string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func NewTransaction(method Method, opts ...Option) *Transaction {
	t := &Transaction{
		method: method,
		newID:  NewID,
		now:    func() time.Time { return time.Now().UTC() },
		state:  StatePending,
	}
	if method != nil {
		rates := method.DefaultRates()
		t.authorize = Simulated(rates.Authorize)
		t.settle = Simulated(rates.Settle)
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.authorize == nil {
		t.authorize = Always(false)
	}
	if t.settle == nil {
		t.settle = Always(false)
	}
	return t
}

// pending is an event decided under the lock and published after it.
type pending struct {
	kind   event.Kind
	change Change
}

func (t *Transaction) flush(ctx context.Context, p *pending) {
	if p == nil {
		return
	}
	event.Publish(ctx, t.publisher, p.kind, p.change)
}

// Initiate validates amount, currency and credentials, in that order, and on
// success assigns the transaction id.
func (t *Transaction) Initiate(ctx context.Context, amount float64, currency string) (string, error) {
	t.mu.Lock()
	id, p, err := t.initiateLocked(amount, currency)
	t.mu.Unlock()

	t.flush(ctx, p)
	return id, err
}

func (t *Transaction) initiateLocked(amount float64, currency string) (string, *pending, error) {
	if !t.state.CanTransitionTo(StateInitiated) {
		return t.failLocked(amount, Violation{Code: CodeInvalidState, Field: "state", Reason: "transaction already " + strings.ToLower(string(t.state))}, nil)
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return t.failLocked(amount, Violation{Code: CodeInvalidAmount, Field: "amount", Reason: "amount must be positive"}, nil)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return t.failLocked(amount, Violation{Code: CodeInvalidCurrency, Field: "currency", Reason: "currency is required"}, nil)
	}
	if t.method == nil {
		return t.failLocked(amount, Violation{Code: CodeProcessingError, Field: "method", Reason: "payment method is required"}, nil)
	}
	if v := t.method.Validate(); v != nil {
		return t.failLocked(amount, *v, nil)
	}

	t.id = t.newID(t.method.IDPrefix())
	t.amount = amount
	t.currency = currency
	t.initiatedAt = t.now()
	if t.method.Redirect() {
		t.token = "tok_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	t.moveLocked(StateInitiated)

	return t.id, &pending{kind: event.PaymentInitiated, change: t.changeLocked("", "")}, nil
}

// Verify runs the authorization step. Only an Initiated transaction can be verified.
func (t *Transaction) Verify(ctx context.Context, transactionID string) error {
	t.mu.Lock()
	p, err := t.stepLocked(ctx, transactionID, StateInitiated, StateVerified, t.authorize,
		Violation{Code: CodeBankRejected, Reason: "authorization declined"}, CodeVerificationError)
	t.mu.Unlock()

	t.flush(ctx, p)
	return err
}

// Confirm runs the settlement step. Only a Verified transaction can be confirmed.
func (t *Transaction) Confirm(ctx context.Context, transactionID string) error {
	t.mu.Lock()
	p, err := t.stepLocked(ctx, transactionID, StateVerified, StateConfirmed, t.settle,
		Violation{Code: CodeProcessingError, Reason: "settlement declined"}, CodeConfirmationError)
	t.mu.Unlock()

	t.flush(ctx, p)
	return err
}

func (t *Transaction) stepLocked(
	ctx context.Context,
	transactionID string,
	from, to State,
	decide Decision,
	rejected Violation,
	unreachable Code,
) (*pending, error) {
	if v := t.checkIDLocked(transactionID); v != nil {
		_, p, err := t.failLocked(t.amount, *v, nil)
		return p, err
	}
	if t.state != from {
		_, p, err := t.failLocked(t.amount, Violation{
			Code:   CodeInvalidState,
			Field:  "state",
			Reason: "expected " + string(from) + ", got " + string(t.state),
		}, nil)
		return p, err
	}

	approved, derr := decide(ctx, t.requestLocked())
	if derr != nil {
		_, p, err := t.failLocked(t.amount, Violation{Code: unreachable, Reason: "provider unavailable"}, derr)
		return p, err
	}
	if !approved {
		_, p, err := t.failLocked(t.amount, rejected, nil)
		return p, err
	}

	t.moveLocked(to)
	if to == StateConfirmed {
		return &pending{kind: event.PaymentSucceeded, change: t.changeLocked("", "")}, nil
	}
	return nil, nil
}

// Cancel aborts an Initiated or Verified transaction. It returns false, and
// changes nothing, when the id does not match or the transaction already
// settled or failed. Cancelling a cancelled transaction reports true.
func (t *Transaction) Cancel(_ context.Context, transactionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.id == "" || transactionID != t.id {
		return false
	}
	if t.state == StateCancelled {
		return true
	}
	return t.moveLocked(StateCancelled)
}

// Status returns the state label when transactionID matches, StatusNotFound otherwise.
// A transaction that never obtained an id answers to the empty id.
func (t *Transaction) Status(transactionID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if transactionID != t.id {
		return StatusNotFound
	}
	return string(t.state)
}

func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *Transaction) Method() Method { return t.method }

// AccessToken is set for redirect methods once initiation succeeds.
func (t *Transaction) AccessToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token
}

// Snapshot is a read-only copy of a transaction.
type Snapshot struct {
	ID          string    `json:"transactionId,omitempty"`
	Method      string    `json:"method"`
	Details     string    `json:"details"`
	Amount      float64   `json:"amount"`
	Fee         float64   `json:"fee"`
	Total       float64   `json:"total"`
	Currency    string    `json:"currency,omitempty"`
	State       State     `json:"state"`
	InitiatedAt time.Time `json:"initiatedAt,omitzero"`
	Tokenized   bool      `json:"tokenized"`
}

func (t *Transaction) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Snapshot{
		ID:          t.id,
		Method:      t.label(),
		Amount:      t.amount,
		Currency:    t.currency,
		State:       t.state,
		InitiatedAt: t.initiatedAt,
		Tokenized:   t.token != "",
	}
	if t.method != nil {
		s.Details = t.method.Details()
		s.Fee = t.method.Fee(t.amount)
		s.Total = Total(t.method, t.amount)
	}
	return s
}

func (t *Transaction) checkIDLocked(transactionID string) *Violation {
	if strings.TrimSpace(transactionID) == "" {
		return &Violation{Code: CodeInvalidTransactionID, Field: "transactionId", Reason: "transaction id is required"}
	}
	if transactionID != t.id {
		return &Violation{Code: CodeTransactionMismatch, Field: "transactionId", Reason: "transaction id does not match"}
	}
	return nil
}

// failLocked moves a live transaction to Error and builds the failure. A
// transaction already in a terminal state keeps it and publishes nothing.
func (t *Transaction) failLocked(amount float64, v Violation, cause error) (string, *pending, error) {
	live := t.moveLocked(StateError)
	ferr := &FailedError{
		TransactionID: t.id,
		Method:        t.label(),
		Amount:        amount,
		Code:          v.Code,
		Field:         v.Field,
		Reason:        v.Reason,
		Err:           cause,
	}
	if !live {
		return "", nil, ferr
	}
	change := t.changeLocked(v.Code, v.Reason)
	change.Amount = amount
	return "", &pending{kind: event.PaymentFailed, change: change}, ferr
}

// moveLocked applies next when the transition table allows it.
func (t *Transaction) moveLocked(next State) bool {
	if !t.state.CanTransitionTo(next) {
		return false
	}
	t.state = next
	return true
}

func (t *Transaction) changeLocked(code Code, reason string) Change {
	return Change{
		TransactionID: t.id,
		Method:        t.label(),
		Amount:        t.amount,
		Currency:      t.currency,
		State:         t.state,
		Code:          code,
		Reason:        reason,
	}
}

func (t *Transaction) requestLocked() Request {
	return Request{
		TransactionID: t.id,
		Method:        t.label(),
		Amount:        t.amount,
		Currency:      t.currency,
	}
}

func (t *Transaction) label() string {
	if t.method == nil {
		return "unknown"
	}
	return t.method.Label()
}
