package repaymentplan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func TestBuild_CombinesRealizedAndProjected(t *testing.T) {
	now := time.Now()
	tm := terms.Terms{
		AnnualInterestRatePct: money.NewCVLPct(12, 0),
		Duration:              terms.Duration{Periods: 3, Interval: terms.AccrualMonthly},
	}

	realized := []RealizedObligation{
		{Kind: "Disbursal", DueAt: now, Amount: money.UsdCents(100_000_00), Outstanding: money.UsdCents(100_000_00)},
	}

	plan := Build(realized, tm, money.UsdCents(100_000_00), now)

	assert.Equal(t, StatusRealized, plan[0].Status)

	var projectedCount int
	for _, li := range plan[1:] {
		assert.Equal(t, StatusProjected, li.Status)
		projectedCount++
	}

	assert.Equal(t, 3, projectedCount)
}

func TestBuild_NoProjectionWhenFullyRepaid(t *testing.T) {
	tm := terms.Terms{Duration: terms.Duration{Periods: 3, Interval: terms.AccrualMonthly}}

	plan := Build(nil, tm, money.ZeroUsdCents, time.Now())
	assert.Empty(t, plan)
}
