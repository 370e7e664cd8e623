package collateral

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func TestAddThenRemove_TracksBalance(t *testing.T) {
	c := Create(ids.NewCollateralID(), ids.CreditFacilityID{}, "")

	_, err := c.Add(money.Satoshis(1_000_000), time.Now())
	require.NoError(t, err)

	_, err = c.Remove(money.Satoshis(400_000), time.Now())
	require.NoError(t, err)

	assert.Equal(t, money.Satoshis(600_000), c.BalanceSats())
}

func TestStartLiquidation_RefusesSecondConcurrent(t *testing.T) {
	c := Create(ids.NewCollateralID(), ids.CreditFacilityID{}, "")

	first := ids.NewLiquidationID()
	outcome, err := c.StartLiquidation(first, time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())

	active, ok := c.ActiveLiquidation()
	assert.True(t, ok)
	assert.Equal(t, first, active)

	_, err = c.StartLiquidation(ids.NewLiquidationID(), time.Now())
	assert.ErrorIs(t, err, ErrLiquidationAlreadyActive)
}

func TestEndLiquidation_ClearsActivePointerIdempotently(t *testing.T) {
	c := Create(ids.NewCollateralID(), ids.CreditFacilityID{}, "")

	id := ids.NewLiquidationID()
	_, err := c.StartLiquidation(id, time.Now())
	require.NoError(t, err)

	outcome, err := c.EndLiquidation(id, time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())

	_, ok := c.ActiveLiquidation()
	assert.False(t, ok)

	second, err := c.EndLiquidation(id, time.Now())
	require.NoError(t, err)
	assert.False(t, second.WasExecuted())
}
