// Package collateralization implements the re-evaluation engine from
// spec.md §3/§4.8: a lattice of collateralization states driven by CVL
// thresholds, with an upgrade buffer that damps oscillation when the
// ratio hovers near a boundary. Grounded on the teacher's threshold-state
// pattern for account-tier evaluation (no single teacher file owns this;
// it is pure domain control flow per SPEC_FULL.md §4.5-4.8 grounding
// note, so it stays dependency-free Go).
package collateralization

import (
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

// State is a position in the collateralization lattice, ordered worst
// to best: Liquidation < MarginCall < FullyCollateralized.
type State int

const (
	UnderLiquidationThreshold State = iota
	UnderMarginCallThreshold
	FullyCollateralized
)

func (s State) String() string {
	switch s {
	case FullyCollateralized:
		return "FullyCollateralized"
	case UnderMarginCallThreshold:
		return "UnderMarginCallThreshold"
	default:
		return "UnderLiquidationThreshold"
	}
}

// rawState classifies a ratio against the term's thresholds with no
// damping — the "downgrade" view, applied immediately.
func rawState(ratio money.CVLPct, t terms.Terms) State {
	switch {
	case ratio.GreaterThanOrEqual(t.MarginCallCVL):
		return FullyCollateralized
	case ratio.GreaterThanOrEqual(t.LiquidationCVL):
		return UnderMarginCallThreshold
	default:
		return UnderLiquidationThreshold
	}
}

// thresholdFor returns the CVL threshold a ratio must clear to occupy
// state s.
func thresholdFor(s State, t terms.Terms) money.CVLPct {
	switch s {
	case FullyCollateralized:
		return t.MarginCallCVL
	case UnderMarginCallThreshold:
		return t.LiquidationCVL
	default:
		return money.NewCVLPct(0, 0)
	}
}

// Reevaluate computes the next state given the current state, the
// latest collateral/outstanding ratio, the facility's terms, and the
// configured upgrade buffer. A move to a worse state is applied as soon
// as the raw thresholds cross it. A move to a better state additionally
// requires the ratio to clear that state's threshold plus buffer, per
// spec.md §3 "A configured upgrade_buffer damps oscillation around
// boundaries."
func Reevaluate(current State, ratio money.CVLPct, t terms.Terms, buffer money.CVLPct) State {
	raw := rawState(ratio, t)

	if raw <= current {
		return raw
	}

	// raw is an improvement over current: require the ratio to clear
	// every intermediate threshold plus buffer, one rung at a time, so a
	// ratio that only just crosses the immediate next threshold does not
	// jump multiple states in one evaluation.
	next := current + 1

	required := thresholdFor(next, t).Add(buffer)
	if ratio.LessThan(required) {
		return current
	}

	return next
}

// MeetsActivationThreshold reports whether a pending facility's ratio
// is sufficient to activate, per the term's InitialCVL.
func MeetsActivationThreshold(ratio money.CVLPct, t terms.Terms) bool {
	return ratio.GreaterThanOrEqual(t.InitialCVL)
}

// LiquidationTriggered reports whether the current state warrants
// starting a partial liquidation, gated by the term's
// LiquidationEnabled flag (spec.md §4.7).
func LiquidationTriggered(state State, t terms.Terms) bool {
	return t.LiquidationEnabled && state == UnderLiquidationThreshold
}
