package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vberihuete/BIU-master-oop/internal/application"
	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
	dompay "github.com/vberihuete/BIU-master-oop/internal/domain/payment"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
)

const (
	paymentService = "payment-service"

	useCaseStart   = "payment.start"
	useCaseVerify  = "payment.verify"
	useCaseConfirm = "payment.confirm"
	useCaseCancel  = "payment.cancel"
	useCaseStatus  = "payment.status"
)

// StartInput is the command to open a payment.
type StartInput struct {
	Amount   float64
	Currency string
}

// Config tunes how new transactions are built. Nil decisions fall back to the
// method's simulated provider.
type Config struct {
	Authorizer dompay.Decision
	Settlement dompay.Decision
	NewID      func(prefix string) string
}

// Service opens transactions and keeps them by transaction id so later steps
// can be addressed by id alone.
type Service struct {
	publisher event.Publisher
	cfg       Config
	inst      application.Instrumentation

	mu           sync.RWMutex
	transactions map[string]*dompay.Transaction
}

func NewService(publisher event.Publisher, cfg Config, tel observability.Observability) *Service {
	return &Service{
		publisher:    publisher,
		cfg:          cfg,
		inst:         application.NewInstrumentation(tel, paymentService),
		transactions: make(map[string]*dompay.Transaction),
	}
}

func (s *Service) StartCard(ctx context.Context, card dompay.Card, in StartInput) (dompay.Snapshot, error) {
	return s.start(ctx, card, in)
}

func (s *Service) StartWallet(ctx context.Context, wallet dompay.Wallet, in StartInput) (dompay.Snapshot, error) {
	return s.start(ctx, wallet, in)
}

// start registers the transaction only when initiation succeeds; a failed
// start has no id to address it by.
func (s *Service) start(ctx context.Context, m dompay.Method, in StartInput) (_ dompay.Snapshot, err error) {
	ctx, call := s.inst.Start(ctx, useCaseStart, "StartPayment",
		attribute.String("payment.method", m.Label()),
		attribute.Float64("payment.amount", in.Amount),
		attribute.String("payment.currency", in.Currency),
	)
	call.Annotate(
		observability.F("method", m.Label()),
		observability.F("amount", in.Amount),
		observability.F("currency", in.Currency),
	)
	defer func() { call.End(err) }()

	tx := dompay.NewTransaction(m, s.options()...)
	id, err := tx.Initiate(ctx, in.Amount, in.Currency)
	if err != nil {
		failed(call, err)
		return tx.Snapshot(), err
	}

	s.mu.Lock()
	s.transactions[id] = tx
	s.mu.Unlock()

	call.Annotate(observability.F("transaction_id", id))
	call.Span().SetAttributes(attribute.String("payment.transaction_id", id))
	return tx.Snapshot(), nil
}

func (s *Service) Verify(ctx context.Context, id string) (dompay.Snapshot, error) {
	return s.step(ctx, useCaseVerify, "VerifyPayment", id, (*dompay.Transaction).Verify)
}

func (s *Service) Confirm(ctx context.Context, id string) (dompay.Snapshot, error) {
	return s.step(ctx, useCaseConfirm, "ConfirmPayment", id, (*dompay.Transaction).Confirm)
}

func (s *Service) step(
	ctx context.Context,
	useCase, spanName, id string,
	run func(*dompay.Transaction, context.Context, string) error,
) (_ dompay.Snapshot, err error) {
	ctx, call := s.inst.Start(ctx, useCase, spanName, attribute.String("payment.transaction_id", id))
	call.Annotate(observability.F("transaction_id", id))
	defer func() { call.End(err) }()

	tx, err := s.Get(id)
	if err != nil {
		call.Fail(application.OutcomeRejected, "NOT_FOUND")
		return dompay.Snapshot{}, err
	}
	err = run(tx, ctx, id)
	snap := tx.Snapshot()
	call.Annotate(observability.F("state", string(snap.State)))
	if err != nil {
		failed(call, err)
	}
	return snap, err
}

// Cancel reports whether the transaction is now cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (_ bool, err error) {
	ctx, call := s.inst.Start(ctx, useCaseCancel, "CancelPayment", attribute.String("payment.transaction_id", id))
	call.Annotate(observability.F("transaction_id", id))
	defer func() { call.End(err) }()

	tx, err := s.Get(id)
	if err != nil {
		call.Fail(application.OutcomeRejected, "NOT_FOUND")
		return false, err
	}
	ok := tx.Cancel(ctx, id)
	if !ok {
		call.Fail(application.OutcomeRejected, "NOT_CANCELLABLE")
	}
	call.Annotate(observability.F("cancelled", ok), observability.F("state", string(tx.State())))
	return ok, nil
}

// Status never fails: unknown ids report StatusNotFound.
func (s *Service) Status(ctx context.Context, id string) string {
	_, call := s.inst.Start(ctx, useCaseStatus, "PaymentStatus", attribute.String("payment.transaction_id", id))
	defer call.End(nil)

	tx, err := s.Get(id)
	if err != nil {
		call.Ignore("NOT_FOUND")
		return dompay.StatusNotFound
	}
	status := tx.Status(id)
	call.Annotate(observability.F("transaction_id", id), observability.F("state", status))
	return status
}

func (s *Service) Get(id string) (*dompay.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dompay.ErrNotFound, id)
	}
	return tx, nil
}

func (s *Service) options() []dompay.Option {
	opts := []dompay.Option{dompay.WithPublisher(s.publisher)}
	if s.cfg.Authorizer != nil {
		opts = append(opts, dompay.WithAuthorizer(s.cfg.Authorizer))
	}
	if s.cfg.Settlement != nil {
		opts = append(opts, dompay.WithSettlement(s.cfg.Settlement))
	}
	if s.cfg.NewID != nil {
		opts = append(opts, dompay.WithIDGenerator(s.cfg.NewID))
	}
	return opts
}

func failed(call *application.Call, err error) {
	var ferr *dompay.FailedError
	if !errors.As(err, &ferr) {
		call.Fail(application.OutcomeError, "ERROR")
		return
	}
	call.Fail(application.OutcomeRejected, string(ferr.Code))
	call.Annotate(observability.F("failure_reason", ferr.Reason))
	if ferr.Field != "" {
		call.Annotate(observability.F("field", ferr.Field))
	}
}
