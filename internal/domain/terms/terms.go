// Package terms holds the facility terms template: interest rate,
// accrual period, obligation due/overdue/defaulted offsets, and the
// collateralization thresholds that drive activation and liquidation.
package terms

import (
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

// AccrualInterval is the period over which interest accrues before a
// cycle closes and posts.
type AccrualInterval string

const (
	AccrualMonthly   AccrualInterval = "MONTHLY"
	AccrualQuarterly AccrualInterval = "QUARTERLY"
)

// Duration is the facility's overall term length in accrual periods.
type Duration struct {
	Periods  int
	Interval AccrualInterval
}

// Terms is the immutable set of parameters governing a facility for its
// entire lifetime; captured at proposal time and never mutated.
type Terms struct {
	AnnualInterestRatePct money.CVLPct
	Duration              Duration

	// InitialCVL is the activation margin checked by
	// collateralization.MeetsActivationThreshold. Pending facility
	// activation (pending.ReadyToActivate and Complete) keys off the
	// FullyCollateralized state and does not consult InitialCVL.
	InitialCVL money.CVLPct
	// MarginCallCVL is the threshold below which the facility enters
	// UnderMarginCallThreshold.
	MarginCallCVL money.CVLPct
	// LiquidationCVL is the threshold below which the facility enters
	// UnderLiquidationThreshold and liquidation may be triggered.
	LiquidationCVL money.CVLPct

	// ObligationDueAfter is how long after creation an obligation
	// becomes due.
	ObligationDueAfter time.Duration
	// ObligationOverdueAfter is how long after due_at an obligation
	// becomes overdue. Zero means the term defines no overdue stage.
	ObligationOverdueAfter time.Duration
	// ObligationDefaultedAfter is how long after overdue_at (or due_at
	// if no overdue stage) an obligation defaults. Zero means the term
	// defines no defaulted stage.
	ObligationDefaultedAfter time.Duration

	// LiquidationEnabled gates whether the collateralization engine may
	// ever trigger a partial liquidation for facilities under this term.
	LiquidationEnabled bool

	// OneTimeFeeRatePct is charged as an initial structuring disbursal
	// at activation, expressed as a percentage of the facility amount.
	OneTimeFeeRatePct money.CVLPct
}

// PeriodDuration returns the wall-clock length of one accrual period.
func (d Duration) PeriodDuration() time.Duration {
	switch d.Interval {
	case AccrualQuarterly:
		return 90 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// TotalDuration returns the full facility term length.
func (d Duration) TotalDuration() time.Duration {
	return time.Duration(d.Periods) * d.PeriodDuration()
}

// ObligationDates computes the due/overdue/defaulted instants for an
// obligation created at createdAt, honoring optional overdue/defaulted
// stages (zero duration means the stage is skipped and the dated
// pointer remains nil).
func (t Terms) ObligationDates(createdAt time.Time) (dueAt time.Time, overdueAt, defaultedAt *time.Time) {
	dueAt = createdAt.Add(t.ObligationDueAfter)

	cursor := dueAt

	if t.ObligationOverdueAfter > 0 {
		v := cursor.Add(t.ObligationOverdueAfter)
		overdueAt = &v
		cursor = v
	}

	if t.ObligationDefaultedAfter > 0 {
		v := cursor.Add(t.ObligationDefaultedAfter)
		defaultedAt = &v
	}

	return dueAt, overdueAt, defaultedAt
}

// AccrualAmount computes simple interest for a principal balance over
// one accrual period at the term's annual rate, floored to whole cents.
func (t Terms) AccrualAmount(principal money.UsdCents) money.UsdCents {
	periodsPerYear := int64(12)
	if t.Duration.Interval == AccrualQuarterly {
		periodsPerYear = 4
	}

	return money.UsdCents(t.AnnualInterestRatePct.ApplyFloor(principal) / uint64(periodsPerYear))
}
