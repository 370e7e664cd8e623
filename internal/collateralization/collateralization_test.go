package collateralization

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

func sampleTerms() terms.Terms {
	return terms.Terms{
		InitialCVL:     money.NewCVLPct(140, 0),
		MarginCallCVL:  money.NewCVLPct(125, 0),
		LiquidationCVL: money.NewCVLPct(105, 0),
	}
}

func TestReevaluate_DowngradeIsImmediate(t *testing.T) {
	next := Reevaluate(FullyCollateralized, money.NewCVLPct(110, 0), sampleTerms(), money.NewCVLPct(5, 0))
	assert.Equal(t, UnderMarginCallThreshold, next)
}

func TestReevaluate_UpgradeRequiresBuffer(t *testing.T) {
	// Ratio clears the raw MarginCall threshold (125) but not 125+5=130.
	next := Reevaluate(UnderMarginCallThreshold, money.NewCVLPct(127, 0), sampleTerms(), money.NewCVLPct(5, 0))
	assert.Equal(t, UnderMarginCallThreshold, next)
}

func TestReevaluate_UpgradeClearsBuffer(t *testing.T) {
	next := Reevaluate(UnderMarginCallThreshold, money.NewCVLPct(131, 0), sampleTerms(), money.NewCVLPct(5, 0))
	assert.Equal(t, FullyCollateralized, next)
}

func TestReevaluate_NoOscillationAtExactThreshold(t *testing.T) {
	// Sitting just at the raw threshold after a prior downgrade should
	// not re-upgrade without clearing the buffer.
	state := UnderMarginCallThreshold
	state = Reevaluate(state, money.NewCVLPct(125, 0), sampleTerms(), money.NewCVLPct(5, 0))
	assert.Equal(t, UnderMarginCallThreshold, state)
}

func TestMeetsActivationThreshold(t *testing.T) {
	tm := sampleTerms()
	assert.True(t, MeetsActivationThreshold(money.NewCVLPct(140, 0), tm))
	assert.False(t, MeetsActivationThreshold(money.NewCVLPct(139, 99), tm))
}

func TestLiquidationTriggered_GatedByTermsFlag(t *testing.T) {
	tm := sampleTerms()
	tm.LiquidationEnabled = false
	assert.False(t, LiquidationTriggered(UnderLiquidationThreshold, tm))

	tm.LiquidationEnabled = true
	assert.True(t, LiquidationTriggered(UnderLiquidationThreshold, tm))
	assert.False(t, LiquidationTriggered(UnderMarginCallThreshold, tm))
}
