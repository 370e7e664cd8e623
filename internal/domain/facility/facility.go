// Package facility implements the CreditFacility aggregate from spec.md
// §4.5: created from a completed pending facility, owns zero or more
// disbursals and its interest-accrual-cycle subgraph, and transitions
// Active -> Closed once every obligation is terminal and all receivables
// are zero. Grounded on the same event-sourced shape as the sibling
// domain packages.
package facility

import (
	"errors"
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

const (
	EventCreated           = "FacilityCreated"
	EventDisbursalAdded    = "FacilityDisbursalCreated"
	EventDisbursalApproved = "FacilityDisbursalApproved"
	EventDisbursalDenied   = "FacilityDisbursalDenied"
	EventCycleOpened       = "FacilityAccrualCycleOpened"
	EventCycleClosed       = "FacilityAccrualCycleClosed"
	EventClosed            = "FacilityClosed"
)

// ErrAlreadyClosed is returned by mutations attempted on a Closed facility.
var ErrAlreadyClosed = errors.New("facility: facility is already closed")

// DisbursalStatus is a disbursal's approval state.
type DisbursalStatus int

const (
	DisbursalPendingApproval DisbursalStatus = iota
	DisbursalApproved
	DisbursalDenied
)

// Disbursal is one draw against the facility.
type Disbursal struct {
	ID          ids.DisbursalID
	Amount      money.UsdCents
	Status      DisbursalStatus
	ObligationID ids.ObligationID
}

type CreatedPayload struct {
	CustomerID ids.CustomerID    `json:"customerId"`
	Amount     money.UsdCents    `json:"amount"`
	Terms      terms.Terms       `json:"terms"`
	Accounts   ledger.AccountSet `json:"accounts"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type DisbursalAddedPayload struct {
	DisbursalID ids.DisbursalID `json:"disbursalId"`
	Amount      money.UsdCents  `json:"amount"`
	AddedAt     time.Time       `json:"addedAt"`
}

type DisbursalDecidedPayload struct {
	DisbursalID  ids.DisbursalID  `json:"disbursalId"`
	ObligationID ids.ObligationID `json:"obligationId,omitempty"`
	DecidedAt    time.Time        `json:"decidedAt"`
}

type CycleOpenedPayload struct {
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

type CycleClosedPayload struct {
	ObligationID ids.ObligationID `json:"obligationId"`
	Amount       money.UsdCents   `json:"amount"`
	ClosedAt     time.Time        `json:"closedAt"`
}

type ClosedPayload struct {
	ClosedAt time.Time `json:"closedAt"`
}

// Cycle is the currently open interest-accrual period.
type Cycle struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Facility is the CreditFacility aggregate.
type Facility struct {
	id         ids.CreditFacilityID
	stream     *eventlog.Stream
	customerID ids.CustomerID
	amount     money.UsdCents
	terms      terms.Terms
	accounts   ledger.AccountSet

	disbursals   []Disbursal
	currentCycle *Cycle
	closed       bool
}

// Create opens a facility from a completed pending facility, per
// spec.md §4.5. The id is the same 128-bit value as the pending facility
// it completes (ids.PendingCreditFacilityID.AsCreditFacilityID).
func Create(id ids.CreditFacilityID, customerID ids.CustomerID, amount money.UsdCents, t terms.Terms, accounts ledger.AccountSet, now time.Time) (*Facility, error) {
	f := &Facility{
		id:         id,
		stream:     eventlog.NewStream(id.String(), nil),
		customerID: customerID,
		amount:     amount,
		terms:      t,
		accounts:   accounts,
	}

	_, err := f.stream.Append(EventCreated, CreatedPayload{
		CustomerID: customerID, Amount: amount, Terms: t, Accounts: accounts, CreatedAt: now,
	}, now)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Hydrate rebuilds a Facility from persisted events.
func Hydrate(id ids.CreditFacilityID, events []eventlog.Event) (*Facility, error) {
	f := &Facility{id: id, stream: eventlog.NewStream(id.String(), events)}

	for _, ev := range f.stream.All() {
		if err := f.apply(ev); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func (f *Facility) apply(ev eventlog.Event) error {
	switch ev.EventType {
	case EventCreated:
		var p CreatedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		f.customerID = p.CustomerID
		f.amount = p.Amount
		f.terms = p.Terms
		f.accounts = p.Accounts
	case EventDisbursalAdded:
		var p DisbursalAddedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		f.disbursals = append(f.disbursals, Disbursal{ID: p.DisbursalID, Amount: p.Amount, Status: DisbursalPendingApproval})
	case EventDisbursalApproved:
		var p DisbursalDecidedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		f.setDisbursalStatus(p.DisbursalID, DisbursalApproved, p.ObligationID)
	case EventDisbursalDenied:
		var p DisbursalDecidedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		f.setDisbursalStatus(p.DisbursalID, DisbursalDenied, ids.ObligationID{})
	case EventCycleOpened:
		var p CycleOpenedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		f.currentCycle = &Cycle{PeriodStart: p.PeriodStart, PeriodEnd: p.PeriodEnd}
	case EventCycleClosed:
		f.currentCycle = nil
	case EventClosed:
		f.closed = true
	}

	return nil
}

func (f *Facility) setDisbursalStatus(id ids.DisbursalID, status DisbursalStatus, obligationID ids.ObligationID) {
	for i := range f.disbursals {
		if f.disbursals[i].ID == id {
			f.disbursals[i].Status = status
			f.disbursals[i].ObligationID = obligationID

			return
		}
	}
}

func (f *Facility) ID() ids.CreditFacilityID       { return f.id }
func (f *Facility) CustomerID() ids.CustomerID     { return f.customerID }
func (f *Facility) Amount() money.UsdCents         { return f.amount }
func (f *Facility) Terms() terms.Terms             { return f.terms }
func (f *Facility) Accounts() ledger.AccountSet    { return f.accounts }
func (f *Facility) Disbursals() []Disbursal        { return f.disbursals }
func (f *Facility) CurrentCycle() *Cycle           { return f.currentCycle }
func (f *Facility) IsClosed() bool                 { return f.closed }

func (f *Facility) NewEvents() []eventlog.Event { return f.stream.NewEvents() }
func (f *Facility) NextSequence() int           { return f.stream.NextSequence() }
func (f *Facility) MarkPersisted()              { f.stream.MarkPersisted() }

// AddDisbursal records a new pending-approval disbursal.
func (f *Facility) AddDisbursal(id ids.DisbursalID, amount money.UsdCents, now time.Time) (eventlog.Outcome[ids.DisbursalID], error) {
	if f.closed {
		return eventlog.Outcome[ids.DisbursalID]{}, ErrAlreadyClosed
	}

	_, err := f.stream.Append(EventDisbursalAdded, DisbursalAddedPayload{DisbursalID: id, Amount: amount, AddedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[ids.DisbursalID]{}, err
	}

	f.disbursals = append(f.disbursals, Disbursal{ID: id, Amount: amount, Status: DisbursalPendingApproval})

	return eventlog.Executed(id), nil
}

// ApproveDisbursal approves a pending disbursal, recording the
// obligation id it materializes (a DISBURSAL_SETTLED ledger transaction
// and the new Obligation are created by the caller in the same
// transaction, per spec.md §4.5). Idempotent.
func (f *Facility) ApproveDisbursal(id ids.DisbursalID, obligationID ids.ObligationID, now time.Time) (eventlog.Outcome[ids.ObligationID], error) {
	d, ok := f.findDisbursal(id)
	if !ok {
		return eventlog.Outcome[ids.ObligationID]{}, errors.New("facility: unknown disbursal id")
	}

	if d.Status != DisbursalPendingApproval {
		return eventlog.AlreadyApplied[ids.ObligationID](), nil
	}

	_, err := f.stream.Append(EventDisbursalApproved, DisbursalDecidedPayload{DisbursalID: id, ObligationID: obligationID, DecidedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[ids.ObligationID]{}, err
	}

	f.setDisbursalStatus(id, DisbursalApproved, obligationID)

	return eventlog.Executed(obligationID), nil
}

// DenyDisbursal denies a pending disbursal. Idempotent.
func (f *Facility) DenyDisbursal(id ids.DisbursalID, now time.Time) (eventlog.Outcome[struct{}], error) {
	d, ok := f.findDisbursal(id)
	if !ok {
		return eventlog.Outcome[struct{}]{}, errors.New("facility: unknown disbursal id")
	}

	if d.Status != DisbursalPendingApproval {
		return eventlog.AlreadyApplied[struct{}](), nil
	}

	_, err := f.stream.Append(EventDisbursalDenied, DisbursalDecidedPayload{DisbursalID: id, DecidedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[struct{}]{}, err
	}

	f.setDisbursalStatus(id, DisbursalDenied, ids.ObligationID{})

	return eventlog.Executed(struct{}{}), nil
}

func (f *Facility) findDisbursal(id ids.DisbursalID) (Disbursal, bool) {
	for _, d := range f.disbursals {
		if d.ID == id {
			return d, true
		}
	}

	return Disbursal{}, false
}

// OpenCycle opens a new interest-accrual period, per spec.md §4.5
// "cycles are opened per facility period." A cycle cannot be opened
// while one is already open.
func (f *Facility) OpenCycle(now time.Time) (eventlog.Outcome[Cycle], error) {
	if f.closed {
		return eventlog.Outcome[Cycle]{}, ErrAlreadyClosed
	}

	if f.currentCycle != nil {
		return eventlog.AlreadyApplied[Cycle](), nil
	}

	end := now.Add(f.terms.Duration.PeriodDuration())

	_, err := f.stream.Append(EventCycleOpened, CycleOpenedPayload{PeriodStart: now, PeriodEnd: end}, now)
	if err != nil {
		return eventlog.Outcome[Cycle]{}, err
	}

	c := Cycle{PeriodStart: now, PeriodEnd: end}
	f.currentCycle = &c

	return eventlog.Executed(c), nil
}

// CloseCycle closes the open cycle, recording the interest obligation it
// produced (materialized by the caller in the same transaction as the
// INTEREST_ACCRUAL_POSTED ledger posting).
func (f *Facility) CloseCycle(obligationID ids.ObligationID, amount money.UsdCents, now time.Time) (eventlog.Outcome[struct{}], error) {
	if f.currentCycle == nil {
		return eventlog.AlreadyApplied[struct{}](), nil
	}

	_, err := f.stream.Append(EventCycleClosed, CycleClosedPayload{ObligationID: obligationID, Amount: amount, ClosedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[struct{}]{}, err
	}

	f.currentCycle = nil

	return eventlog.Executed(struct{}{}), nil
}

// Close transitions the facility to Closed. The caller must have
// already verified every obligation is terminal and all receivables are
// zero (spec.md §3 invariant); Close itself only records the transition.
func (f *Facility) Close(now time.Time) (eventlog.Outcome[struct{}], error) {
	if f.closed {
		return eventlog.AlreadyApplied[struct{}](), nil
	}

	_, err := f.stream.Append(EventClosed, ClosedPayload{ClosedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[struct{}]{}, err
	}

	f.closed = true

	return eventlog.Executed(struct{}{}), nil
}
