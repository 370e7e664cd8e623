package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/obligation"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func TestRecordPayment_PostsOnceAndIsIdempotent(t *testing.T) {
	h := newHarness()
	f := createTestFacility(t, h)
	paymentID := ids.NewPaymentID()

	outcome, err := h.svc.RecordPayment(context.Background(), paymentID, f.ID(), money.UsdCents(10_000_00))
	require.NoError(t, err)
	require.True(t, outcome.WasExecuted())
	assert.Equal(t, []string{"PaymentReceived"}, h.outbox.types())

	again, err := h.svc.RecordPayment(context.Background(), paymentID, f.ID(), money.UsdCents(10_000_00))
	require.NoError(t, err)
	assert.False(t, again.WasExecuted())
	assert.Len(t, h.ledger.transactions(), 1)
}

func TestAllocatePayment_PrioritizesOverdueBeforeDue(t *testing.T) {
	h := newHarness()
	f := createTestFacility(t, h)

	makeObligation := func(kind obligation.Kind, amount money.UsdCents, status string) ids.ObligationID {
		obligationID := ids.NewObligationID()
		dueAt, overdueAt, defaultedAt := f.Terms().ObligationDates(h.now)

		o, err := obligation.Create(obligationID, f.ID(), kind, amount, dueAt, overdueAt, defaultedAt, h.now)
		require.NoError(t, err)

		switch status {
		case "due":
			_, err = o.RecordDue("due:"+obligationID.String(), h.now)
			require.NoError(t, err)
		case "overdue":
			_, err = o.RecordDue("due:"+obligationID.String(), h.now)
			require.NoError(t, err)
			_, err = o.RecordOverdue("overdue:"+obligationID.String(), h.now)
			require.NoError(t, err)
		}

		require.NoError(t, h.obligations.Save(context.Background(), obligationID.String(), o, 1))
		h.obIndex.add(f.ID().String(), obligationID.String())

		return obligationID
	}

	dueID := makeObligation(obligation.KindDisbursal, money.UsdCents(30_000_00), "due")
	overdueID := makeObligation(obligation.KindDisbursal, money.UsdCents(20_000_00), "overdue")

	paymentID := ids.NewPaymentID()
	_, err := h.svc.RecordPayment(context.Background(), paymentID, f.ID(), money.UsdCents(25_000_00))
	require.NoError(t, err)

	err = h.svc.AllocatePayment(context.Background(), paymentID)
	require.NoError(t, err)

	overdue, err := h.obligations.Load(context.Background(), overdueID.String())
	require.NoError(t, err)
	assert.True(t, overdue.Outstanding().IsZero(), "overdue obligation should be fully paid first")

	due, err := h.obligations.Load(context.Background(), dueID.String())
	require.NoError(t, err)
	assert.Equal(t, money.UsdCents(25_000_00), due.Outstanding(), "only the $5,000 left after paying off the $20,000 overdue balance applies to the $30,000 due obligation")

	p, err := h.payments.Load(context.Background(), paymentID.String())
	require.NoError(t, err)
	assert.True(t, p.Remaining().IsZero())

	assert.Contains(t, h.outbox.types(), "PaymentAllocated")
	assert.Contains(t, h.outbox.types(), "ObligationCompleted")
}

func TestAllocatePayment_NoOpWhenNothingRemains(t *testing.T) {
	h := newHarness()
	f := createTestFacility(t, h)
	paymentID := ids.NewPaymentID()

	_, err := h.svc.RecordPayment(context.Background(), paymentID, f.ID(), money.ZeroUsdCents)
	require.NoError(t, err)

	err = h.svc.AllocatePayment(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Empty(t, h.ledger.transactions())
}
