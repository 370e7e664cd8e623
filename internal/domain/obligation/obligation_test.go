package obligation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func newObligation(t *testing.T, amount money.UsdCents) *Obligation {
	now := time.Now()
	overdue := now.Add(15 * 24 * time.Hour)
	defaulted := now.Add(45 * 24 * time.Hour)

	o, err := Create(ids.NewObligationID(), ids.CreditFacilityID{}, KindDisbursal, amount, now.Add(30*24*time.Hour), &overdue, &defaulted, now)
	require.NoError(t, err)

	return o
}

func TestRecordDue_IsIdempotent(t *testing.T) {
	o := newObligation(t, money.UsdCents(10_000_00))

	outcome, err := o.RecordDue("tx-1", time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())
	assert.Equal(t, Due, o.Status())

	second, err := o.RecordDue("tx-2", time.Now())
	require.NoError(t, err)
	assert.False(t, second.WasExecuted())
}

func TestRecordOverdue_RequiresDueFirst(t *testing.T) {
	o := newObligation(t, money.UsdCents(10_000_00))

	outcome, err := o.RecordOverdue("tx-1", time.Now())
	require.NoError(t, err)
	assert.False(t, outcome.WasExecuted())
	assert.Equal(t, NotYetDue, o.Status())

	_, err = o.RecordDue("tx-1", time.Now())
	require.NoError(t, err)

	outcome, err = o.RecordOverdue("tx-2", time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())
	assert.Equal(t, Overdue, o.Status())
}

func TestAllocatePayment_PartialThenFullCompletesObligation(t *testing.T) {
	o := newObligation(t, money.UsdCents(10_000_00))

	outcome, err := o.AllocatePayment(ids.NewPaymentAllocationID(), ids.NewPaymentID(), money.UsdCents(4_000_00), time.Now())
	require.NoError(t, err)
	assert.Equal(t, money.UsdCents(4_000_00), outcome.Value())
	assert.Equal(t, money.UsdCents(6_000_00), o.Outstanding())
	assert.False(t, o.IsTerminal())

	outcome, err = o.AllocatePayment(ids.NewPaymentAllocationID(), ids.NewPaymentID(), money.UsdCents(9_000_00), time.Now())
	require.NoError(t, err)
	// Only the remaining 6_000_00 is consumed, not the full 9_000_00 offered.
	assert.Equal(t, money.UsdCents(6_000_00), outcome.Value())
	assert.True(t, o.Outstanding().IsZero())
	assert.True(t, o.IsTerminal())
}

func TestAllocatePayment_AlreadyAppliedOnTerminalObligation(t *testing.T) {
	o := newObligation(t, money.UsdCents(1_000_00))

	_, err := o.AllocatePayment(ids.NewPaymentAllocationID(), ids.NewPaymentID(), money.UsdCents(1_000_00), time.Now())
	require.NoError(t, err)
	require.True(t, o.IsTerminal())

	outcome, err := o.AllocatePayment(ids.NewPaymentAllocationID(), ids.NewPaymentID(), money.UsdCents(500_00), time.Now())
	require.NoError(t, err)
	assert.False(t, outcome.WasExecuted())
}

func TestStatus_AllocationPriorityOrdering(t *testing.T) {
	assert.Less(t, Overdue.AllocationPriority(), Due.AllocationPriority())
	assert.Less(t, Due.AllocationPriority(), NotYetDue.AllocationPriority())
	assert.Less(t, NotYetDue.AllocationPriority(), Defaulted.AllocationPriority())
}
