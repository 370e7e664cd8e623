// Package payment implements Payment and PaymentAllocation from spec.md
// §3/§4.6: a Payment is external funds arriving from a payer, idempotent
// on payment_id; a PaymentAllocation applies a slice of a payment's
// amount against a single obligation. Grounded on the same event-sourced
// aggregate shape as the other domain packages.
package payment

import (
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

const (
	EventReceived  = "PaymentReceived"
	EventAllocated = "PaymentAllocated"
)

type ReceivedPayload struct {
	FacilityID ids.CreditFacilityID `json:"facilityId"`
	Amount     money.UsdCents       `json:"amount"`
	ReceivedAt time.Time            `json:"receivedAt"`
}

type AllocatedPayload struct {
	AllocationID ids.PaymentAllocationID `json:"allocationId"`
	ObligationID ids.ObligationID        `json:"obligationId"`
	Amount       money.UsdCents          `json:"amount"`
	AllocatedAt  time.Time               `json:"allocatedAt"`
}

// Allocation is one application of a payment against a single
// obligation.
type Allocation struct {
	ID           ids.PaymentAllocationID
	ObligationID ids.ObligationID
	Amount       money.UsdCents
}

// Payment is the Payment aggregate: one per payment id, accumulating
// Allocations as the allocation algorithm consumes it. Duplicate receipt
// is caught by services.RecordPayment, which loads the id first and
// returns AlreadyApplied when IsReceived is already true.
type Payment struct {
	id         ids.PaymentID
	stream     *eventlog.Stream
	facilityID ids.CreditFacilityID

	amount      money.UsdCents
	received    bool
	allocations []Allocation
}

// Receive records a new incoming payment and always returns Executed:
// it builds a fresh Payment and does not look up an existing one under
// the same id.
func Receive(id ids.PaymentID, facilityID ids.CreditFacilityID, amount money.UsdCents, now time.Time) (*Payment, eventlog.Outcome[money.UsdCents], error) {
	p := &Payment{id: id, stream: eventlog.NewStream(id.String(), nil)}

	_, err := p.stream.Append(EventReceived, ReceivedPayload{
		FacilityID: facilityID, Amount: amount, ReceivedAt: now,
	}, now)
	if err != nil {
		return nil, eventlog.Outcome[money.UsdCents]{}, err
	}

	p.facilityID = facilityID
	p.amount = amount
	p.received = true

	return p, eventlog.Executed(amount), nil
}

// Hydrate rebuilds a Payment from persisted events.
func Hydrate(id ids.PaymentID, events []eventlog.Event) (*Payment, error) {
	p := &Payment{id: id, stream: eventlog.NewStream(id.String(), events)}

	for _, ev := range p.stream.All() {
		if err := p.apply(ev); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Payment) apply(ev eventlog.Event) error {
	switch ev.EventType {
	case EventReceived:
		var payload ReceivedPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}

		p.facilityID = payload.FacilityID
		p.amount = payload.Amount
		p.received = true
	case EventAllocated:
		var payload AllocatedPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}

		p.allocations = append(p.allocations, Allocation{
			ID: payload.AllocationID, ObligationID: payload.ObligationID, Amount: payload.Amount,
		})
	}

	return nil
}

func (p *Payment) ID() ids.PaymentID                   { return p.id }
func (p *Payment) FacilityID() ids.CreditFacilityID    { return p.facilityID }
func (p *Payment) Amount() money.UsdCents              { return p.amount }
func (p *Payment) Allocations() []Allocation           { return p.allocations }
func (p *Payment) IsReceived() bool                    { return p.received }

// Allocated returns the sum allocated against obligations so far.
func (p *Payment) Allocated() money.UsdCents {
	sum := money.ZeroUsdCents
	for _, a := range p.allocations {
		sum = sum.Add(a.Amount)
	}

	return sum
}

// Remaining is the portion of the payment not yet allocated to any
// obligation — credited to the facility's payment-holding account per
// spec.md §4.6 step 5 when the payment is not fully consumed.
func (p *Payment) Remaining() money.UsdCents {
	return p.amount.Sub(p.Allocated())
}

func (p *Payment) NewEvents() []eventlog.Event { return p.stream.NewEvents() }
func (p *Payment) NextSequence() int           { return p.stream.NextSequence() }
func (p *Payment) MarkPersisted()              { p.stream.MarkPersisted() }

// RecordAllocation appends one allocation. The caller (the allocation
// algorithm in internal/services) is responsible for not exceeding
// Remaining(); this aggregate only records the fact.
func (p *Payment) RecordAllocation(allocationID ids.PaymentAllocationID, obligationID ids.ObligationID, amount money.UsdCents, now time.Time) (eventlog.Outcome[Allocation], error) {
	_, err := p.stream.Append(EventAllocated, AllocatedPayload{
		AllocationID: allocationID, ObligationID: obligationID, Amount: amount, AllocatedAt: now,
	}, now)
	if err != nil {
		return eventlog.Outcome[Allocation]{}, err
	}

	a := Allocation{ID: allocationID, ObligationID: obligationID, Amount: amount}
	p.allocations = append(p.allocations, a)

	return eventlog.Executed(a), nil
}
