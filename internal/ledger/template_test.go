package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func TestTransactionBalance_BalancedPasses(t *testing.T) {
	accts := NewAccountSet("facility-1")
	tx := BuildDisbursalSettled("tx-1", accts, money.UsdCents(1_000_00), SystemInitiated, nil)

	assert.NoError(t, tx.Balance())
}

func TestTransactionBalance_UnbalancedFails(t *testing.T) {
	tx := Transaction{
		Legs: []Leg{
			{Account: "a", Currency: CurrencyUSD, Layer: LayerSettled, Direction: Debit, Amount: 100},
			{Account: "b", Currency: CurrencyUSD, Layer: LayerSettled, Direction: Credit, Amount: 99},
		},
	}

	err := tx.Balance()
	assert.Error(t, err)

	var unbalanced *ErrUnbalancedTransaction
	assert.ErrorAs(t, err, &unbalanced)
}

func TestBuildReceiveProceedsFromLiquidation_FourBalancedLegs(t *testing.T) {
	accts := NewAccountSet("facility-1")
	omni := DefaultOmnibus()

	tx := BuildReceiveProceedsFromLiquidation("tx-liq-1", accts, omni, money.UsdCents(400_000_00), money.Satoshis(10_000_000), SystemInitiated, nil)

	assert.Len(t, tx.Legs, 4)
	assert.NoError(t, tx.Balance())
}

func TestBuildAllocatePayment_BalancesAcrossMultipleObligations(t *testing.T) {
	accts := NewAccountSet("facility-1")

	tx := BuildAllocatePayment("tx-alloc-1", accts, []AllocationLeg{
		{Account: AccountDisbursedDue, Amount: money.UsdCents(500_00)},
		{Account: AccountInterestOverdue, Amount: money.UsdCents(125_00)},
	}, SystemInitiated, nil)

	assert.Len(t, tx.Legs, 4)
	assert.NoError(t, tx.Balance())
}

func TestBuildActivateFacility_ZeroFeeStillBalances(t *testing.T) {
	accts := NewAccountSet("facility-1")

	tx := BuildActivateFacility("tx-act-1", accts, money.ZeroUsdCents, SystemInitiated, nil)

	assert.Empty(t, tx.Legs)
	assert.NoError(t, tx.Balance())
}
