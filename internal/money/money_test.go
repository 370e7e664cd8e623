package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsdCentsSub_PanicsOnUnderflow(t *testing.T) {
	assert.Panics(t, func() {
		UsdCents(10).Sub(UsdCents(20))
	})
}

func TestSatoshisValuationUSD_FloorsTruncation(t *testing.T) {
	// 1 sat at $50,000/BTC = 50_000_00 cents / 100_000_000 sats = 0.05 cents, floors to 0.
	v := Satoshis(1).ValuationUSD(PriceOfOneBTC(50_000_00))
	assert.Equal(t, UsdCents(0), v)

	// 230 BTC (23_000_000_000 sats) at $50,000/BTC = $11,500,000.
	v = Satoshis(23_000_000_000).ValuationUSD(PriceOfOneBTC(50_000_00))
	assert.Equal(t, UsdCents(11_500_000_00), v)
}

func TestCVLPctFromRatio(t *testing.T) {
	cvl := CVLPctFromRatio(UsdCents(11_500_000_00), UsdCents(10_000_000_00))
	assert.Equal(t, "115.00", cvl.String())
}

func TestCVLPctFromRatio_ZeroOutstandingWithCollateral(t *testing.T) {
	cvl := CVLPctFromRatio(UsdCents(100), UsdCents(0))
	assert.True(t, cvl.GreaterThanOrEqual(NewCVLPct(100, 0)))
}

func TestCVLPctFromRatio_BothZero(t *testing.T) {
	cvl := CVLPctFromRatio(UsdCents(0), UsdCents(0))
	assert.Equal(t, "0.00", cvl.String())
}

func TestCVLPctApplyFloor(t *testing.T) {
	rate := NewCVLPct(12, 0)
	assert.Equal(t, uint64(120_00), rate.ApplyFloor(UsdCents(1_000_00)))
}
