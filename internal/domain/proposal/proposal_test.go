package proposal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func sampleTerms() terms.Terms {
	return terms.Terms{
		AnnualInterestRatePct: money.NewCVLPct(12, 0),
		Duration:              terms.Duration{Periods: 12, Interval: terms.AccrualMonthly},
		InitialCVL:            money.NewCVLPct(140, 0),
		MarginCallCVL:         money.NewCVLPct(125, 0),
		LiquidationCVL:        money.NewCVLPct(105, 0),
		ObligationDueAfter:    30 * 24 * time.Hour,
	}
}

func TestCreate_AppendsCreatedEvent(t *testing.T) {
	now := time.Now()
	p, err := Create(ids.NewCreditFacilityProposalID(), ids.CustomerID{}, money.UsdCents(1_000_00), sampleTerms(), now)
	require.NoError(t, err)

	assert.Len(t, p.NewEvents(), 1)
	assert.Equal(t, EventCreated, p.NewEvents()[0].EventType)
	assert.False(t, p.IsConcluded())
}

func TestApprove_ConcludesAndIsIdempotent(t *testing.T) {
	now := time.Now()
	p, err := Create(ids.NewCreditFacilityProposalID(), ids.CustomerID{}, money.UsdCents(1_000_00), sampleTerms(), now)
	require.NoError(t, err)
	p.MarkPersisted()

	outcome, err := p.Approve(now)
	require.NoError(t, err)
	assert.True(t, outcome.WasExecuted())
	assert.Equal(t, Approved, outcome.Value())

	conclusion, ok := p.Conclusion()
	assert.True(t, ok)
	assert.Equal(t, Approved, conclusion)

	second, err := p.Approve(now)
	require.NoError(t, err)
	assert.False(t, second.WasExecuted())
}

func TestDenyAfterApprove_IsAlreadyApplied(t *testing.T) {
	now := time.Now()
	p, err := Create(ids.NewCreditFacilityProposalID(), ids.CustomerID{}, money.UsdCents(1_000_00), sampleTerms(), now)
	require.NoError(t, err)

	_, err = p.Approve(now)
	require.NoError(t, err)

	outcome, err := p.Deny(now)
	require.NoError(t, err)
	assert.False(t, outcome.WasExecuted())
}

func TestHydrate_ReplaysToSameState(t *testing.T) {
	now := time.Now()
	id := ids.NewCreditFacilityProposalID()
	p, err := Create(id, ids.CustomerID{}, money.UsdCents(500_00), sampleTerms(), now)
	require.NoError(t, err)

	_, err = p.Approve(now)
	require.NoError(t, err)

	replayed, err := Hydrate(id, p.NewEvents())
	require.NoError(t, err)

	assert.True(t, replayed.IsConcluded())
	conclusion, ok := replayed.Conclusion()
	assert.True(t, ok)
	assert.Equal(t, Approved, conclusion)
	assert.Equal(t, money.UsdCents(500_00), replayed.Amount())
}
