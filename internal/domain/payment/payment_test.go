package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func TestReceive_AppendsReceivedEvent(t *testing.T) {
	p, outcome, err := Receive(ids.NewPaymentID(), ids.CreditFacilityID{}, money.UsdCents(5_000_00), time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())
	assert.Equal(t, money.UsdCents(5_000_00), p.Amount())
	assert.True(t, p.Remaining().GreaterThan(money.ZeroUsdCents))
}

func TestRecordAllocation_TracksRemaining(t *testing.T) {
	p, _, err := Receive(ids.NewPaymentID(), ids.CreditFacilityID{}, money.UsdCents(10_000_00), time.Now())
	require.NoError(t, err)

	_, err = p.RecordAllocation(ids.NewPaymentAllocationID(), ids.NewObligationID(), money.UsdCents(4_000_00), time.Now())
	require.NoError(t, err)

	assert.Equal(t, money.UsdCents(4_000_00), p.Allocated())
	assert.Equal(t, money.UsdCents(6_000_00), p.Remaining())
	assert.Len(t, p.Allocations(), 1)
}

func TestHydrate_ReplaysAllocations(t *testing.T) {
	id := ids.NewPaymentID()
	p, _, err := Receive(id, ids.CreditFacilityID{}, money.UsdCents(10_000_00), time.Now())
	require.NoError(t, err)

	_, err = p.RecordAllocation(ids.NewPaymentAllocationID(), ids.NewObligationID(), money.UsdCents(3_000_00), time.Now())
	require.NoError(t, err)

	replayed, err := Hydrate(id, p.NewEvents())
	require.NoError(t, err)

	assert.Equal(t, money.UsdCents(3_000_00), replayed.Allocated())
	assert.Equal(t, money.UsdCents(7_000_00), replayed.Remaining())
}
