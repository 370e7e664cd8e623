// Package obligation implements the Obligation lifecycle from spec.md
// §4.6: NotYetDue -> Due -> Overdue -> Defaulted, plus terminal
// Completed once fully allocated. Every date-driven transition is
// idempotent and each reclassification posts exactly one ledger
// transaction. Grounded on the teacher's event-sourced aggregate shape
// (internal/domain/proposal, internal/domain/pending).
package obligation

import (
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

const (
	EventCreated   = "ObligationCreated"
	EventDue       = "ObligationDue"
	EventOverdue   = "ObligationOverdue"
	EventDefaulted = "ObligationDefaulted"
	EventAllocated = "ObligationAllocated"
	EventCompleted = "ObligationCompleted"
)

// Kind distinguishes a disbursal obligation (draw principal repayment)
// from an interest obligation (accrued interest repayment).
type Kind string

const (
	KindDisbursal Kind = "Disbursal"
	KindInterest  Kind = "Interest"
)

// Status is the obligation's position in its date-driven lifecycle.
type Status int

const (
	NotYetDue Status = iota
	Due
	Overdue
	Defaulted
	Completed
)

// AllocationPriority orders statuses for the allocation algorithm's sort key
// per spec.md §4.6 step 1: "Overdue > Due > NotYetDue > Defaulted
// reconciliation" — lower number sorts first.
func (s Status) AllocationPriority() int {
	switch s {
	case Overdue:
		return 0
	case Due:
		return 1
	case NotYetDue:
		return 2
	default:
		return 3
	}
}

type CreatedPayload struct {
	FacilityID  ids.CreditFacilityID `json:"facilityId"`
	Kind        Kind                 `json:"kind"`
	Amount      money.UsdCents       `json:"amount"`
	DueAt       time.Time            `json:"dueAt"`
	OverdueAt   *time.Time           `json:"overdueAt,omitempty"`
	DefaultedAt *time.Time           `json:"defaultedAt,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

type TransitionPayload struct {
	TxID      string    `json:"txId"`
	Effective time.Time `json:"effective"`
}

type AllocatedPayload struct {
	AllocationID ids.PaymentAllocationID `json:"allocationId"`
	PaymentID    ids.PaymentID           `json:"paymentId"`
	Amount       money.UsdCents          `json:"amount"`
	Effective    time.Time               `json:"effective"`
}

type CompletedPayload struct {
	CompletedAt time.Time `json:"completedAt"`
}

// Obligation is the Obligation aggregate.
type Obligation struct {
	id         ids.ObligationID
	stream     *eventlog.Stream
	facilityID ids.CreditFacilityID

	kind   Kind
	amount money.UsdCents

	dueAt       time.Time
	overdueAt   *time.Time
	defaultedAt *time.Time
	createdAt   time.Time

	status    Status
	allocated money.UsdCents
}

// Create materializes a new obligation with its date ladder already
// computed by the caller (terms.Terms.ObligationDates).
func Create(id ids.ObligationID, facilityID ids.CreditFacilityID, kind Kind, amount money.UsdCents, dueAt time.Time, overdueAt, defaultedAt *time.Time, now time.Time) (*Obligation, error) {
	o := &Obligation{
		id:          id,
		stream:      eventlog.NewStream(id.String(), nil),
		facilityID:  facilityID,
		kind:        kind,
		amount:      amount,
		dueAt:       dueAt,
		overdueAt:   overdueAt,
		defaultedAt: defaultedAt,
		createdAt:   now,
		status:      NotYetDue,
	}

	_, err := o.stream.Append(EventCreated, CreatedPayload{
		FacilityID: facilityID, Kind: kind, Amount: amount,
		DueAt: dueAt, OverdueAt: overdueAt, DefaultedAt: defaultedAt, CreatedAt: now,
	}, now)
	if err != nil {
		return nil, err
	}

	return o, nil
}

// Hydrate rebuilds an Obligation from persisted events.
func Hydrate(id ids.ObligationID, events []eventlog.Event) (*Obligation, error) {
	o := &Obligation{id: id, stream: eventlog.NewStream(id.String(), events)}

	for _, ev := range o.stream.All() {
		if err := o.apply(ev); err != nil {
			return nil, err
		}
	}

	return o, nil
}

func (o *Obligation) apply(ev eventlog.Event) error {
	switch ev.EventType {
	case EventCreated:
		var p CreatedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		o.facilityID = p.FacilityID
		o.kind = p.Kind
		o.amount = p.Amount
		o.dueAt = p.DueAt
		o.overdueAt = p.OverdueAt
		o.defaultedAt = p.DefaultedAt
		o.createdAt = p.CreatedAt
		o.status = NotYetDue
	case EventDue:
		o.status = Due
	case EventOverdue:
		o.status = Overdue
	case EventDefaulted:
		o.status = Defaulted
	case EventAllocated:
		var p AllocatedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		o.allocated = o.allocated.Add(p.Amount)
	case EventCompleted:
		o.status = Completed
	}

	return nil
}

func (o *Obligation) ID() ids.ObligationID             { return o.id }
func (o *Obligation) FacilityID() ids.CreditFacilityID  { return o.facilityID }
func (o *Obligation) Kind() Kind                        { return o.kind }
func (o *Obligation) Amount() money.UsdCents            { return o.amount }
func (o *Obligation) DueAt() time.Time                  { return o.dueAt }
func (o *Obligation) OverdueAt() *time.Time             { return o.overdueAt }
func (o *Obligation) DefaultedAt() *time.Time           { return o.defaultedAt }
func (o *Obligation) CreatedAt() time.Time              { return o.createdAt }
func (o *Obligation) Status() Status                    { return o.status }
func (o *Obligation) Allocated() money.UsdCents         { return o.allocated }
func (o *Obligation) Outstanding() money.UsdCents        { return o.amount.Sub(o.allocated) }
func (o *Obligation) IsTerminal() bool                  { return o.status == Completed }

func (o *Obligation) NewEvents() []eventlog.Event { return o.stream.NewEvents() }
func (o *Obligation) NextSequence() int           { return o.stream.NextSequence() }
func (o *Obligation) MarkPersisted()              { o.stream.MarkPersisted() }

// RecordDue fires at dueAt; idempotent per spec.md §4.6.
func (o *Obligation) RecordDue(txID string, effective time.Time) (eventlog.Outcome[struct{}], error) {
	if o.status != NotYetDue {
		return eventlog.AlreadyApplied[struct{}](), nil
	}

	_, err := o.stream.Append(EventDue, TransitionPayload{TxID: txID, Effective: effective}, effective)
	if err != nil {
		return eventlog.Outcome[struct{}]{}, err
	}

	o.status = Due

	return eventlog.Executed(struct{}{}), nil
}

// RecordOverdue fires at overdueAt, if the term defines one.
func (o *Obligation) RecordOverdue(txID string, effective time.Time) (eventlog.Outcome[struct{}], error) {
	if o.status != Due {
		return eventlog.AlreadyApplied[struct{}](), nil
	}

	_, err := o.stream.Append(EventOverdue, TransitionPayload{TxID: txID, Effective: effective}, effective)
	if err != nil {
		return eventlog.Outcome[struct{}]{}, err
	}

	o.status = Overdue

	return eventlog.Executed(struct{}{}), nil
}

// RecordDefaulted fires at defaultedAt, if the term defines one.
func (o *Obligation) RecordDefaulted(txID string, effective time.Time) (eventlog.Outcome[struct{}], error) {
	if o.status != Overdue && o.status != Due {
		return eventlog.AlreadyApplied[struct{}](), nil
	}

	_, err := o.stream.Append(EventDefaulted, TransitionPayload{TxID: txID, Effective: effective}, effective)
	if err != nil {
		return eventlog.Outcome[struct{}]{}, err
	}

	o.status = Defaulted

	return eventlog.Executed(struct{}{}), nil
}

// CurrentBucketAccount reports which receivable ladder bucket this
// obligation's kind and current status occupy (disbursal or interest;
// due, overdue or defaulted, with all three false meaning not yet due),
// for picking the account a payment allocation leg posts against.
func (o *Obligation) CurrentBucketAccount() (isDisbursal bool, due, overdue, defaulted bool) {
	isDisbursal = o.kind == KindDisbursal

	switch o.status {
	case Due:
		due = true
	case Overdue:
		overdue = true
	case Defaulted:
		defaulted = true
	}

	return
}

// AllocatePayment applies up to `available` against the obligation's
// remaining outstanding amount, returning the amount actually allocated
// (which may be less than available) and appending a completion event
// if the obligation becomes fully allocated. Per spec.md §4.6 step 3.
func (o *Obligation) AllocatePayment(allocationID ids.PaymentAllocationID, paymentID ids.PaymentID, available money.UsdCents, now time.Time) (eventlog.Outcome[money.UsdCents], error) {
	if o.IsTerminal() || o.Outstanding().IsZero() {
		return eventlog.AlreadyApplied[money.UsdCents](), nil
	}

	amount := o.Outstanding().Min(available)

	_, err := o.stream.Append(EventAllocated, AllocatedPayload{
		AllocationID: allocationID, PaymentID: paymentID, Amount: amount, Effective: now,
	}, now)
	if err != nil {
		return eventlog.Outcome[money.UsdCents]{}, err
	}

	o.allocated = o.allocated.Add(amount)

	if o.Outstanding().IsZero() {
		if _, err := o.stream.Append(EventCompleted, CompletedPayload{CompletedAt: now}, now); err != nil {
			return eventlog.Outcome[money.UsdCents]{}, err
		}

		o.status = Completed
	}

	return eventlog.Executed(amount), nil
}
