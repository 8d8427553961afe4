package payment

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberihuete/BIU-master-oop/internal/domain/event"
)

type recordingPublisher struct{ events []event.Kind }

func (p *recordingPublisher) Publish(_ context.Context, kind event.Kind, _ any) {
	p.events = append(p.events, kind)
}

func validCard() Card {
	return Card{Number: "4111111111111111", CVV: "123", Expiry: "12/27", Holder: "Ada Lovelace"}
}

func approvingTx(m Method, opts ...Option) *Transaction {
	base := []Option{WithAuthorizer(Always(true)), WithSettlement(Always(true))}
	return NewTransaction(m, append(base, opts...)...)
}

func TestNegativeAmountFailsAndMovesToError(t *testing.T) {
	pub := &recordingPublisher{}
	tx := approvingTx(validCard(), WithPublisher(pub))

	id, err := tx.Initiate(context.Background(), -100.0, "USD")

	assert.Empty(t, id)
	require.ErrorIs(t, err, ErrPaymentFailed)
	var failed *FailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, CodeInvalidAmount, failed.Code)
	assert.Equal(t, "amount", failed.Field)
	assert.Equal(t, "card", failed.Method)
	assert.InDelta(t, -100.0, failed.Amount, 1e-9)
	assert.Empty(t, failed.TransactionID)
	assert.Equal(t, StateError, tx.State())
	assert.Equal(t, "ERROR", tx.Status(""))
	assert.Equal(t, []event.Kind{event.PaymentFailed}, pub.events)
}

func TestHappyPathConfirmsAndRefusesCancel(t *testing.T) {
	pub := &recordingPublisher{}
	tx := approvingTx(validCard(), WithPublisher(pub))
	ctx := context.Background()

	id, err := tx.Initiate(ctx, 250, "eur")
	require.NoError(t, err)
	assert.Regexp(t, `^TXN_[0-9A-F]{8}$`, id)
	assert.Equal(t, "INITIATED", tx.Status(id))

	require.NoError(t, tx.Verify(ctx, id))
	assert.Equal(t, "VERIFIED", tx.Status(id))
	require.NoError(t, tx.Confirm(ctx, id))
	assert.Equal(t, "CONFIRMED", tx.Status(id))

	assert.False(t, tx.Cancel(ctx, id))
	assert.Equal(t, StateConfirmed, tx.State())
	assert.Equal(t, []event.Kind{event.PaymentInitiated, event.PaymentSucceeded}, pub.events)

	s := tx.Snapshot()
	assert.Equal(t, "EUR", s.Currency)
	assert.Equal(t, "Card payment - 4111****1111 (Ada Lovelace, exp 12/27)", s.Details)
	assert.False(t, s.Tokenized)
}

func TestValidationOrder(t *testing.T) {
	badCard := Card{Number: "42", CVV: "1", Expiry: "", Holder: ""}

	_, err := NewTransaction(badCard).Initiate(context.Background(), 0, "")
	assert.Equal(t, CodeInvalidAmount, codeOf(t, err))

	_, err = NewTransaction(badCard).Initiate(context.Background(), 10, " ")
	assert.Equal(t, CodeInvalidCurrency, codeOf(t, err))

	_, err = NewTransaction(badCard).Initiate(context.Background(), 10, "USD")
	assert.Equal(t, CodeInvalidCardData, codeOf(t, err))
}

func TestCardValidation(t *testing.T) {
	cases := map[string]struct {
		card  Card
		field string
	}{
		"short number":   {Card{Number: "411111111111", CVV: "123", Expiry: "1/30", Holder: "A"}, "number"},
		"long number":    {Card{Number: "41111111111111111111", CVV: "123", Expiry: "1/30", Holder: "A"}, "number"},
		"letters":        {Card{Number: "4111abcd11111111", CVV: "123", Expiry: "1/30", Holder: "A"}, "number"},
		"short cvv":      {Card{Number: "4111111111111", CVV: "12", Expiry: "1/30", Holder: "A"}, "cvv"},
		"long cvv":       {Card{Number: "4111111111111", CVV: "12345", Expiry: "1/30", Holder: "A"}, "cvv"},
		"missing expiry": {Card{Number: "4111111111111", CVV: "1234", Holder: "A"}, "expiry"},
		"missing holder": {Card{Number: "4111111111111", CVV: "1234", Expiry: "1/30"}, "holder"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			v := tc.card.Validate()
			require.NotNil(t, v)
			assert.Equal(t, CodeInvalidCardData, v.Code)
			assert.Equal(t, tc.field, v.Field)
		})
	}

	assert.Nil(t, Card{Number: "4111 1111 1111 1111", CVV: "123", Expiry: "1/30", Holder: "A"}.Validate())
	assert.Equal(t, "****", Card{Number: "123"}.Masked())
}

func TestVerifyFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("mismatch moves to error", func(t *testing.T) {
		tx := approvingTx(validCard())
		id, err := tx.Initiate(ctx, 10, "USD")
		require.NoError(t, err)

		err = tx.Verify(ctx, "TXN_NOPE")
		assert.Equal(t, CodeTransactionMismatch, codeOf(t, err))
		assert.Equal(t, "ERROR", tx.Status(id))
	})

	t.Run("empty id", func(t *testing.T) {
		tx := approvingTx(validCard())
		_, err := tx.Initiate(ctx, 10, "USD")
		require.NoError(t, err)
		assert.Equal(t, CodeInvalidTransactionID, codeOf(t, tx.Verify(ctx, "")))
	})

	t.Run("rejected by authorizer", func(t *testing.T) {
		tx := NewTransaction(validCard(), WithAuthorizer(Always(false)))
		id, err := tx.Initiate(ctx, 10, "USD")
		require.NoError(t, err)
		assert.Equal(t, CodeBankRejected, codeOf(t, tx.Verify(ctx, id)))
		assert.Equal(t, StateError, tx.State())
	})

	t.Run("authorizer unreachable", func(t *testing.T) {
		boom := errors.New("gateway timeout")
		tx := NewTransaction(validCard(), WithAuthorizer(func(context.Context, Request) (bool, error) {
			return false, boom
		}))
		id, err := tx.Initiate(ctx, 10, "USD")
		require.NoError(t, err)
		err = tx.Verify(ctx, id)
		assert.Equal(t, CodeVerificationError, codeOf(t, err))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("confirm before verify", func(t *testing.T) {
		tx := approvingTx(validCard())
		id, err := tx.Initiate(ctx, 10, "USD")
		require.NoError(t, err)
		assert.Equal(t, CodeInvalidState, codeOf(t, tx.Confirm(ctx, id)))
		assert.Equal(t, StateError, tx.State())
	})

	t.Run("settlement declined", func(t *testing.T) {
		tx := NewTransaction(validCard(), WithAuthorizer(Always(true)), WithSettlement(Always(false)))
		id, err := tx.Initiate(ctx, 10, "USD")
		require.NoError(t, err)
		require.NoError(t, tx.Verify(ctx, id))
		assert.Equal(t, CodeProcessingError, codeOf(t, tx.Confirm(ctx, id)))
		assert.Equal(t, StateError, tx.State())
	})
}

func TestTerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()

	confirmed := approvingTx(validCard())
	cid, _ := confirmed.Initiate(ctx, 10, "USD")
	require.NoError(t, confirmed.Verify(ctx, cid))
	require.NoError(t, confirmed.Confirm(ctx, cid))

	cancelled := approvingTx(validCard())
	kid, _ := cancelled.Initiate(ctx, 10, "USD")
	require.True(t, cancelled.Cancel(ctx, kid))

	failed := NewTransaction(validCard(), WithAuthorizer(Always(false)))
	fid, _ := failed.Initiate(ctx, 10, "USD")
	require.Error(t, failed.Verify(ctx, fid))

	for _, tc := range []struct {
		tx   *Transaction
		id   string
		want State
	}{
		{confirmed, cid, StateConfirmed},
		{cancelled, kid, StateCancelled},
		{failed, fid, StateError},
	} {
		assert.Error(t, tc.tx.Verify(ctx, tc.id))
		assert.Error(t, tc.tx.Confirm(ctx, tc.id))
		tc.tx.Cancel(ctx, tc.id)
		_, err := tc.tx.Initiate(ctx, 10, "USD")
		assert.Equal(t, CodeInvalidState, codeOf(t, err))
		assert.Equal(t, tc.want, tc.tx.State())
	}
}

func TestLateCallsOnFinishedPaymentsPublishNothing(t *testing.T) {
	ctx := context.Background()

	pub := &recordingPublisher{}
	confirmed := approvingTx(validCard(), WithPublisher(pub))
	cid, err := confirmed.Initiate(ctx, 10, "USD")
	require.NoError(t, err)
	require.NoError(t, confirmed.Verify(ctx, cid))
	require.NoError(t, confirmed.Confirm(ctx, cid))

	assert.Equal(t, CodeInvalidState, codeOf(t, confirmed.Verify(ctx, cid)))
	assert.Equal(t, CodeInvalidState, codeOf(t, confirmed.Confirm(ctx, cid)))
	assert.Equal(t, CodeTransactionMismatch, codeOf(t, confirmed.Confirm(ctx, "TXN_OTHER")))
	assert.Equal(t, StateConfirmed, confirmed.State())
	assert.Equal(t, []event.Kind{event.PaymentInitiated, event.PaymentSucceeded}, pub.events)

	pub = &recordingPublisher{}
	cancelled := approvingTx(validCard(), WithPublisher(pub))
	kid, err := cancelled.Initiate(ctx, 10, "USD")
	require.NoError(t, err)
	require.True(t, cancelled.Cancel(ctx, kid))

	assert.Equal(t, CodeInvalidState, codeOf(t, cancelled.Verify(ctx, kid)))
	assert.Equal(t, StateCancelled, cancelled.State())
	assert.Equal(t, []event.Kind{event.PaymentInitiated}, pub.events)

	// A live transaction still reports its failure.
	pub = &recordingPublisher{}
	live := approvingTx(validCard(), WithPublisher(pub))
	lid, err := live.Initiate(ctx, 10, "USD")
	require.NoError(t, err)
	assert.Equal(t, CodeInvalidState, codeOf(t, live.Confirm(ctx, lid)))
	assert.Equal(t, StateError, live.State())
	assert.Equal(t, []event.Kind{event.PaymentInitiated, event.PaymentFailed}, pub.events)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	tx := approvingTx(validCard())

	assert.False(t, tx.Cancel(ctx, ""), "pending transaction has no id to match")

	id, err := tx.Initiate(ctx, 10, "USD")
	require.NoError(t, err)
	assert.False(t, tx.Cancel(ctx, "TXN_OTHER"))
	assert.Equal(t, StateInitiated, tx.State())

	assert.True(t, tx.Cancel(ctx, id))
	assert.True(t, tx.Cancel(ctx, id))
	assert.Equal(t, "CANCELLED", tx.Status(id))

	verified := approvingTx(validCard())
	vid, _ := verified.Initiate(ctx, 10, "USD")
	require.NoError(t, verified.Verify(ctx, vid))
	assert.True(t, verified.Cancel(ctx, vid))

	failed := NewTransaction(validCard(), WithAuthorizer(Always(false)))
	fid, _ := failed.Initiate(ctx, 10, "USD")
	_ = failed.Verify(ctx, fid)
	assert.False(t, failed.Cancel(ctx, fid))
	assert.Equal(t, StateError, failed.State())
}

func TestStatusIsIdempotent(t *testing.T) {
	tx := approvingTx(validCard())
	id, err := tx.Initiate(context.Background(), 10, "USD")
	require.NoError(t, err)

	assert.Equal(t, tx.Status(id), tx.Status(id))
	assert.Equal(t, StatusNotFound, tx.Status("TXN_00000000"))
	assert.Equal(t, StatusNotFound, tx.Status("TXN_00000000"))
}

func TestWallet(t *testing.T) {
	ctx := context.Background()
	tx := approvingTx(Wallet{Account: "ada@example.com"})

	id, err := tx.Initiate(ctx, 100, "USD")
	require.NoError(t, err)
	assert.Regexp(t, `^WAL_[0-9A-F]{8}$`, id)
	assert.NotEmpty(t, tx.AccessToken())

	s := tx.Snapshot()
	assert.InDelta(t, 3.2, s.Fee, 1e-9)
	assert.InDelta(t, 103.2, s.Total, 1e-9)
	assert.True(t, s.Tokenized)
	assert.Equal(t, "Wallet payment - ada@example.com", s.Details)

	for _, account := range []string{"", "a@b.c", "nobody.example.com", "nobody@example"} {
		_, err := NewTransaction(Wallet{Account: account}).Initiate(ctx, 10, "USD")
		assert.Equal(t, CodeInvalidAccount, codeOf(t, err), account)
	}
}

func TestInjectedIDGenerator(t *testing.T) {
	tx := approvingTx(validCard(), WithIDGenerator(func(prefix string) string { return prefix + "FIXED001" }))
	id, err := tx.Initiate(context.Background(), 1, "USD")
	require.NoError(t, err)
	assert.Equal(t, "TXN_FIXED001", id)
	assert.Equal(t, id, tx.ID())
}

func TestSimulatedDecisionIsDeterministicWithSource(t *testing.T) {
	always := SimulatedWithSource(1, rand.NewSource(1))
	never := SimulatedWithSource(0, rand.NewSource(1))

	ok, err := always(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = never(context.Background(), Request{})
	require.NoError(t, err)
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = always(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, StatePending.CanTransitionTo(StateInitiated))
	assert.True(t, StateVerified.CanTransitionTo(StateCancelled))
	assert.False(t, StatePending.CanTransitionTo(StateConfirmed))
	assert.False(t, StateInitiated.CanTransitionTo(StateConfirmed))
	for _, s := range []State{StatePending, StateInitiated, StateVerified} {
		assert.False(t, s.Terminal())
		assert.True(t, s.CanTransitionTo(StateError))
	}
	for _, s := range []State{StateConfirmed, StateCancelled, StateError} {
		assert.True(t, s.Terminal())
		for _, n := range []State{StatePending, StateInitiated, StateVerified, StateConfirmed, StateCancelled, StateError} {
			assert.False(t, s.CanTransitionTo(n))
		}
	}
}

func codeOf(t *testing.T, err error) Code {
	t.Helper()
	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	return failed.Code
}
