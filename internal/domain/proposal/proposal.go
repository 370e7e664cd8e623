// Package proposal implements the CreditFacilityProposal lifecycle from
// spec.md §4.5: Created -> (Approved | Denied | Expired), terminal on
// conclusion. Grounded on the teacher's event-sourced aggregate shape
// (components/ledger/internal/services/command/create-ledger.go builds
// a root, appends domain events, and returns a result the caller
// persists) generalized onto internal/eventlog.Stream.
package proposal

import (
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

const (
	EventCreated  = "ProposalCreated"
	EventApproved = "ProposalApproved"
	EventDenied   = "ProposalDenied"
	EventExpired  = "ProposalExpired"
)

// Conclusion is the terminal disposition of a proposal.
type Conclusion string

const (
	Approved Conclusion = "Approved"
	Denied   Conclusion = "Denied"
	Expired  Conclusion = "Expired"
)

// CreatedPayload is the event body for ProposalCreated.
type CreatedPayload struct {
	CustomerID ids.CustomerID `json:"customerId"`
	Amount     money.UsdCents `json:"amount"`
	Terms      terms.Terms    `json:"terms"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// ConcludedPayload is the event body for ProposalApproved/Denied/Expired.
type ConcludedPayload struct {
	Conclusion  Conclusion `json:"conclusion"`
	ConcludedAt time.Time  `json:"concludedAt"`
}

// Proposal is the CreditFacilityProposal aggregate: an event-sourced
// wrapper exposing only the transitions spec.md §4.5 permits.
type Proposal struct {
	id     ids.CreditFacilityProposalID
	stream *eventlog.Stream

	customerID ids.CustomerID
	amount     money.UsdCents
	terms      terms.Terms
	concluded  *Conclusion
}

// Create starts a new proposal and appends its ProposalCreated event.
// The caller is expected to persist the returned Proposal's new events
// and post no ledger transaction — a proposal owns no ledger accounts
// until it is approved into a PendingCreditFacility (spec.md §3
// Ownership).
func Create(id ids.CreditFacilityProposalID, customerID ids.CustomerID, amount money.UsdCents, t terms.Terms, now time.Time) (*Proposal, error) {
	p := &Proposal{
		id:         id,
		stream:     eventlog.NewStream(id.String(), nil),
		customerID: customerID,
		amount:     amount,
		terms:      t,
	}

	_, err := p.stream.Append(EventCreated, CreatedPayload{
		CustomerID: customerID,
		Amount:     amount,
		Terms:      t,
		CreatedAt:  now,
	}, now)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Hydrate rebuilds a Proposal by replaying previously persisted events.
func Hydrate(id ids.CreditFacilityProposalID, events []eventlog.Event) (*Proposal, error) {
	p := &Proposal{id: id, stream: eventlog.NewStream(id.String(), events)}

	for _, ev := range p.stream.All() {
		if err := p.apply(ev); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Proposal) apply(ev eventlog.Event) error {
	switch ev.EventType {
	case EventCreated:
		var payload CreatedPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}

		p.customerID = payload.CustomerID
		p.amount = payload.Amount
		p.terms = payload.Terms
	case EventApproved, EventDenied, EventExpired:
		var payload ConcludedPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}

		c := payload.Conclusion
		p.concluded = &c
	}

	return nil
}

// ID returns the proposal's identifier.
func (p *Proposal) ID() ids.CreditFacilityProposalID { return p.id }

// CustomerID returns the proposal's owning customer.
func (p *Proposal) CustomerID() ids.CustomerID { return p.customerID }

// Amount returns the requested facility amount.
func (p *Proposal) Amount() money.UsdCents { return p.amount }

// Terms returns the proposal's captured terms.
func (p *Proposal) Terms() terms.Terms { return p.terms }

// IsConcluded reports whether the proposal has reached a terminal state.
func (p *Proposal) IsConcluded() bool { return p.concluded != nil }

// Conclusion returns the terminal disposition, if any.
func (p *Proposal) Conclusion() (Conclusion, bool) {
	if p.concluded == nil {
		return "", false
	}

	return *p.concluded, true
}

// NewEvents returns the events appended since load/creation, for the
// repository to persist.
func (p *Proposal) NewEvents() []eventlog.Event { return p.stream.NewEvents() }

// NextSequence is the sequence the next persisted event must start at.
func (p *Proposal) NextSequence() int { return p.stream.NextSequence() }

// MarkPersisted advances the stream's persisted watermark.
func (p *Proposal) MarkPersisted() { p.stream.MarkPersisted() }

func (p *Proposal) conclude(c Conclusion, now time.Time) (eventlog.Outcome[Conclusion], error) {
	if p.concluded != nil {
		return eventlog.AlreadyApplied[Conclusion](), nil
	}

	var eventType string

	switch c {
	case Approved:
		eventType = EventApproved
	case Denied:
		eventType = EventDenied
	case Expired:
		eventType = EventExpired
	}

	_, err := p.stream.Append(eventType, ConcludedPayload{Conclusion: c, ConcludedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[Conclusion]{}, err
	}

	p.concluded = &c

	return eventlog.Executed(c), nil
}

// Approve concludes the proposal with Approved. Idempotent: a second
// call against an already-concluded proposal returns AlreadyApplied
// rather than re-appending.
func (p *Proposal) Approve(now time.Time) (eventlog.Outcome[Conclusion], error) {
	return p.conclude(Approved, now)
}

// Deny concludes the proposal with Denied.
func (p *Proposal) Deny(now time.Time) (eventlog.Outcome[Conclusion], error) {
	return p.conclude(Denied, now)
}

// Expire concludes the proposal with Expired.
func (p *Proposal) Expire(now time.Time) (eventlog.Outcome[Conclusion], error) {
	return p.conclude(Expired, now)
}
