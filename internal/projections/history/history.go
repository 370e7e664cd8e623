// Package history implements the per-facility history timeline
// projection from spec.md §4.9: an append-only list of semantic
// entries rebuilt deterministically from the event stream, iterated
// newest-first. Grounded on the teacher's read-model rebuild pattern
// (components/ledger projections over postgres, reconstructed from
// spec.md since no teacher projection package survived retrieval
// intact).
package history

import (
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
)

// EntryKind is the semantic label attached to a history entry, per
// spec.md §4.9's fixed vocabulary.
type EntryKind string

const (
	KindApproved                 EntryKind = "Approved"
	KindCollateral               EntryKind = "Collateral"
	KindCollateralization        EntryKind = "Collateralization"
	KindPendingCollateralization EntryKind = "PendingCreditFacilityCollateralization"
	KindDisbursal                EntryKind = "Disbursal"
	KindInterest                 EntryKind = "Interest"
	KindPayment                  EntryKind = "Payment"
	KindLiquidation              EntryKind = "Liquidation"
	KindRepayment                EntryKind = "Repayment"
)

// Entry is one timeline row.
type Entry struct {
	Kind       EntryKind `json:"kind"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Timeline is the full per-facility history, kept in append order
// internally; Entries() below returns it newest-first per spec.md.
type Timeline struct {
	entries []Entry
}

// NewTimeline builds an empty timeline, ready to Apply outbox events
// against.
func NewTimeline() *Timeline { return &Timeline{} }

// Entries returns the timeline newest-first, per spec.md §4.9
// "Iteration yields newest-first."
func (t *Timeline) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[len(t.entries)-1-i] = e
	}

	return out
}

// Apply folds one outbound event into the timeline, classifying it by
// the fixed EntryKind vocabulary. Unrecognized event types are ignored
// (the projection only tracks semantic milestones, not every event).
func (t *Timeline) Apply(ev events.Event) {
	kind, ok := classify(ev.Type)
	if !ok {
		return
	}

	t.entries = append(t.entries, Entry{Kind: kind, OccurredAt: ev.OccurredAt, Payload: ev.Payload})
}

func classify(t events.Type) (EntryKind, bool) {
	switch t {
	case events.TypeFacilityProposalConcluded:
		return KindApproved, true
	case events.TypeFacilityCollateralUpdated:
		return KindCollateral, true
	case events.TypeFacilityCollateralizationChanged:
		return KindCollateralization, true
	case events.TypePendingCreditFacilityCollateralizationChanged:
		return KindPendingCollateralization, true
	case events.TypeDisbursalSettled:
		return KindDisbursal, true
	case events.TypeAccrualPosted:
		return KindInterest, true
	case events.TypePaymentReceived, events.TypePaymentAllocated:
		return KindPayment, true
	case events.TypePartialLiquidationInitiated, events.TypePartialLiquidationCollateralSentOut,
		events.TypePartialLiquidationProceedsReceived, events.TypePartialLiquidationCompleted:
		return KindLiquidation, true
	case events.TypeObligationDue, events.TypeObligationOverdue, events.TypeObligationDefaulted, events.TypeObligationCompleted:
		return KindRepayment, true
	default:
		return "", false
	}
}
