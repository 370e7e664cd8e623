package liquidation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func TestInitiate_CapturesTriggerEstimates(t *testing.T) {
	l, err := Initiate(ids.NewLiquidationID(), ids.CreditFacilityID{}, ids.NewCollateralID(),
		money.PriceOfOneBTC(40_000_00), money.UsdCents(12_000_00), money.Satoshis(30_000_000), time.Now())
	require.NoError(t, err)

	assert.Equal(t, money.PriceOfOneBTC(40_000_00), l.TriggerPrice())
	assert.False(t, l.IsCompleted())
}

func TestRecordCollateralSentOut_IdempotentOnTxID(t *testing.T) {
	l, err := Initiate(ids.NewLiquidationID(), ids.CreditFacilityID{}, ids.NewCollateralID(),
		money.PriceOfOneBTC(40_000_00), money.UsdCents(12_000_00), money.Satoshis(30_000_000), time.Now())
	require.NoError(t, err)

	outcome, err := l.RecordCollateralSentOut("tx-1", money.Satoshis(30_000_000), time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())

	second, err := l.RecordCollateralSentOut("tx-1", money.Satoshis(30_000_000), time.Now())
	require.NoError(t, err)
	assert.False(t, second.WasExecuted())
	assert.Equal(t, money.Satoshis(30_000_000), l.SentOutSats())
}

func TestRecordProceedsThenComplete(t *testing.T) {
	l, err := Initiate(ids.NewLiquidationID(), ids.CreditFacilityID{}, ids.NewCollateralID(),
		money.PriceOfOneBTC(40_000_00), money.UsdCents(12_000_00), money.Satoshis(30_000_000), time.Now())
	require.NoError(t, err)

	_, err = l.RecordProceedsReceived("tx-proceeds", money.UsdCents(11_800_00), time.Now())
	require.NoError(t, err)
	assert.Equal(t, money.UsdCents(11_800_00), l.ProceedsUSD())

	outcome, err := l.Complete(time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())

	second, err := l.Complete(time.Now())
	require.NoError(t, err)
	assert.False(t, second.WasExecuted())
}
