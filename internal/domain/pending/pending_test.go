package pending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/collateralization"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func sampleTerms() terms.Terms {
	return terms.Terms{
		InitialCVL:     money.NewCVLPct(140, 0),
		MarginCallCVL:  money.NewCVLPct(125, 0),
		LiquidationCVL: money.NewCVLPct(105, 0),
	}
}

func newPending(t *testing.T, amount money.UsdCents) *Pending {
	id := ids.PendingCreditFacilityID{}
	p, err := Create(id, ids.CustomerID{}, amount, sampleTerms(), ledger.NewAccountSet("f1"), "", time.Now())
	require.NoError(t, err)

	return p
}

func TestUpdateCollateral_RejectsOperatorUpdateOnCustodialFacility(t *testing.T) {
	p, err := Create(ids.PendingCreditFacilityID{}, ids.CustomerID{}, money.UsdCents(100_000_00), sampleTerms(), ledger.NewAccountSet("f1"), "wallet-1", time.Now())
	require.NoError(t, err)

	_, err = p.UpdateCollateral(SourceOperator, money.Satoshis(1_000_000), time.Now())
	assert.ErrorIs(t, err, ErrCustodianPrecondition)
}

func TestUpdateCollateral_IsIdempotentOnSameBalance(t *testing.T) {
	p := newPending(t, money.UsdCents(100_000_00))

	outcome, err := p.UpdateCollateral(SourceOperator, money.Satoshis(200_000_000), time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())

	second, err := p.UpdateCollateral(SourceOperator, money.Satoshis(200_000_000), time.Now())
	require.NoError(t, err)
	assert.False(t, second.WasExecuted())
}

func TestReevaluateAndComplete_ActivatesOnceFullyCollateralized(t *testing.T) {
	// 100_000 USD facility; 3 BTC at $50,000 = $150,000 collateral => 150%.
	// Upgrades climb one rung per evaluation, so reaching
	// FullyCollateralized from UnderLiquidationThreshold takes two.
	p := newPending(t, money.UsdCents(100_000_00))

	_, err := p.UpdateCollateral(SourceOperator, money.Satoshis(3*100_000_000), time.Now())
	require.NoError(t, err)

	first, err := p.Reevaluate(money.PriceOfOneBTC(50_000_00), money.NewCVLPct(5, 0), time.Now())
	require.NoError(t, err)
	assert.True(t, first.WasExecuted())
	assert.Equal(t, collateralization.UnderMarginCallThreshold, first.Value())

	outcome, err := p.Reevaluate(money.PriceOfOneBTC(50_000_00), money.NewCVLPct(5, 0), time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())
	assert.Equal(t, collateralization.FullyCollateralized, outcome.Value())
	assert.True(t, p.ReadyToActivate())

	facilityID := ids.CreditFacilityID{}
	completed, err := p.Complete(facilityID, time.Now())
	require.NoError(t, err)
	assert.True(t, completed.WasExecuted())
	assert.True(t, p.IsCompleted())

	second, err := p.Complete(facilityID, time.Now())
	require.NoError(t, err)
	assert.False(t, second.WasExecuted())
}

func TestComplete_FailsBeforeActivationThreshold(t *testing.T) {
	p := newPending(t, money.UsdCents(100_000_00))

	_, err := p.Complete(ids.CreditFacilityID{}, time.Now())
	assert.ErrorIs(t, err, ErrNotReadyToActivate)
}
