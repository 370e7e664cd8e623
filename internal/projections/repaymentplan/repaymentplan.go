// Package repaymentplan implements the repayment-plan projection from
// spec.md §4.9: a derived schedule of upcoming obligations, combining
// terms-driven expected interest/principal with realized obligations
// and allocations, for operator display.
package repaymentplan

import (
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

// Status distinguishes a realized obligation (already materialized in
// the event stream) from a projected one (expected future interest
// period, not yet created).
type Status string

const (
	StatusRealized  Status = "Realized"
	StatusProjected Status = "Projected"
)

// LineItem is one row of the repayment plan.
type LineItem struct {
	Kind        string         `json:"kind"` // "Disbursal" | "Interest"
	DueAt       time.Time      `json:"dueAt"`
	Amount      money.UsdCents `json:"amount"`
	Outstanding money.UsdCents `json:"outstanding"`
	Status      Status         `json:"status"`
}

// RealizedObligation is the minimal view of an Obligation this
// projection needs, decoupled from internal/domain/obligation to avoid
// a read-model depending on the write-model's package.
type RealizedObligation struct {
	Kind        string
	DueAt       time.Time
	Amount      money.UsdCents
	Outstanding money.UsdCents
}

// Build combines realized obligations with projected future interest
// periods out to the end of the facility term.
func Build(realized []RealizedObligation, t terms.Terms, principalOutstanding money.UsdCents, now time.Time) []LineItem {
	plan := make([]LineItem, 0, len(realized))

	for _, r := range realized {
		plan = append(plan, LineItem{
			Kind: r.Kind, DueAt: r.DueAt, Amount: r.Amount, Outstanding: r.Outstanding, Status: StatusRealized,
		})
	}

	if principalOutstanding.IsZero() {
		return plan
	}

	period := t.Duration.PeriodDuration()
	termEnd := now.Add(t.Duration.TotalDuration())

	projectedAmount := money.UsdCents(t.AccrualAmount(principalOutstanding))

	for due := now.Add(period); due.Before(termEnd) || due.Equal(termEnd); due = due.Add(period) {
		plan = append(plan, LineItem{
			Kind: "Interest", DueAt: due, Amount: projectedAmount, Outstanding: projectedAmount, Status: StatusProjected,
		})
	}

	return plan
}
