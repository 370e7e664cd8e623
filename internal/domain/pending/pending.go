// Package pending implements the PendingCreditFacility lifecycle from
// spec.md §4.5: created on proposal approval, owning a facility and
// collateral ledger account pair, accumulating collateral and
// re-evaluating its collateralization state until it clears the
// activation threshold and completes into a CreditFacility. Grounded on
// the same event-sourced aggregate shape as internal/domain/proposal.
package pending

import (
	"errors"
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/collateralization"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

const (
	EventCreated                  = "PendingCreated"
	EventCollateralUpdated        = "PendingCollateralUpdated"
	EventCollateralizationChanged = "PendingCollateralizationChanged"
	EventCompleted                = "PendingCompleted"
)

// CollateralSource distinguishes an operator-entered balance from a
// custodian wallet sync, per spec.md §4.5 "rejected if a custodian
// wallet is attached" / "custodian sync (wallet-balance updates)".
type CollateralSource int

const (
	SourceOperator CollateralSource = iota
	SourceCustodianSync
)

// ErrCustodianPrecondition is returned when an operator attempts a
// manual collateral update on a facility with an attached custody
// wallet, or a custodian sync arrives for a facility with none — spec's
// "External precondition" error kind.
var ErrCustodianPrecondition = errors.New("pending: collateral update source does not match custody configuration")

// ErrNotReadyToActivate is returned by Complete when the facility has
// not yet cleared its activation threshold.
var ErrNotReadyToActivate = errors.New("pending: collateralization has not cleared the activation threshold")

type CreatedPayload struct {
	CustomerID ids.CustomerID    `json:"customerId"`
	Amount     money.UsdCents    `json:"amount"`
	Terms      terms.Terms       `json:"terms"`
	Accounts   ledger.AccountSet `json:"accounts"`
	WalletID   string            `json:"walletId,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type CollateralUpdatedPayload struct {
	NewBalanceSats money.Satoshis `json:"newBalanceSats"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type CollateralizationChangedPayload struct {
	State     collateralization.State `json:"state"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

type CompletedPayload struct {
	FacilityID  ids.CreditFacilityID `json:"facilityId"`
	CompletedAt time.Time            `json:"completedAt"`
}

// Pending is the PendingCreditFacility aggregate.
type Pending struct {
	id     ids.PendingCreditFacilityID
	stream *eventlog.Stream

	customerID     ids.CustomerID
	amount         money.UsdCents
	terms          terms.Terms
	accounts       ledger.AccountSet
	hasWallet      bool
	walletID       string
	collateralSats money.Satoshis
	state          collateralization.State
	completed      bool
	facilityID     ids.CreditFacilityID
}

// Create starts a pending facility on proposal approval, with its
// facility/collateral account pair already allocated.
func Create(id ids.PendingCreditFacilityID, customerID ids.CustomerID, amount money.UsdCents, t terms.Terms, accounts ledger.AccountSet, walletID string, now time.Time) (*Pending, error) {
	p := &Pending{
		id:         id,
		stream:     eventlog.NewStream(id.String(), nil),
		customerID: customerID,
		amount:     amount,
		terms:      t,
		accounts:   accounts,
		hasWallet:  walletID != "",
		walletID:   walletID,
		state:      collateralization.UnderLiquidationThreshold,
	}

	_, err := p.stream.Append(EventCreated, CreatedPayload{
		CustomerID: customerID,
		Amount:     amount,
		Terms:      t,
		Accounts:   accounts,
		WalletID:   walletID,
		CreatedAt:  now,
	}, now)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Hydrate rebuilds a Pending by replaying persisted events.
func Hydrate(id ids.PendingCreditFacilityID, events []eventlog.Event) (*Pending, error) {
	p := &Pending{id: id, stream: eventlog.NewStream(id.String(), events)}

	for _, ev := range p.stream.All() {
		if err := p.apply(ev); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Pending) apply(ev eventlog.Event) error {
	switch ev.EventType {
	case EventCreated:
		var payload CreatedPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}

		p.customerID = payload.CustomerID
		p.amount = payload.Amount
		p.terms = payload.Terms
		p.accounts = payload.Accounts
		p.hasWallet = payload.WalletID != ""
		p.walletID = payload.WalletID
	case EventCollateralUpdated:
		var payload CollateralUpdatedPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}

		p.collateralSats = payload.NewBalanceSats
	case EventCollateralizationChanged:
		var payload CollateralizationChangedPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}

		p.state = payload.State
	case EventCompleted:
		var payload CompletedPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}

		p.completed = true
		p.facilityID = payload.FacilityID
	}

	return nil
}

func (p *Pending) ID() ids.PendingCreditFacilityID { return p.id }
func (p *Pending) CustomerID() ids.CustomerID       { return p.customerID }
func (p *Pending) Amount() money.UsdCents           { return p.amount }
func (p *Pending) Terms() terms.Terms               { return p.terms }
func (p *Pending) Accounts() ledger.AccountSet      { return p.accounts }
func (p *Pending) CollateralSats() money.Satoshis   { return p.collateralSats }
func (p *Pending) State() collateralization.State   { return p.state }
func (p *Pending) WalletID() string                 { return p.walletID }
func (p *Pending) IsCompleted() bool                { return p.completed }

func (p *Pending) NewEvents() []eventlog.Event { return p.stream.NewEvents() }
func (p *Pending) NextSequence() int           { return p.stream.NextSequence() }
func (p *Pending) MarkPersisted()              { p.stream.MarkPersisted() }

// UpdateCollateral records a new collateral balance, validating that the
// update source matches whether a custody wallet is attached. Idempotent:
// a no-op update (same balance) returns AlreadyApplied.
func (p *Pending) UpdateCollateral(source CollateralSource, newBalance money.Satoshis, now time.Time) (eventlog.Outcome[money.Satoshis], error) {
	if p.hasWallet && source == SourceOperator {
		return eventlog.Outcome[money.Satoshis]{}, ErrCustodianPrecondition
	}

	if !p.hasWallet && source == SourceCustodianSync {
		return eventlog.Outcome[money.Satoshis]{}, ErrCustodianPrecondition
	}

	if newBalance == p.collateralSats {
		return eventlog.AlreadyApplied[money.Satoshis](), nil
	}

	_, err := p.stream.Append(EventCollateralUpdated, CollateralUpdatedPayload{
		NewBalanceSats: newBalance,
		UpdatedAt:      now,
	}, now)
	if err != nil {
		return eventlog.Outcome[money.Satoshis]{}, err
	}

	p.collateralSats = newBalance

	return eventlog.Executed(newBalance), nil
}

// Reevaluate recomputes the collateralization state from the current
// collateral balance against the facility amount (pending facilities
// have no disbursed outstanding yet, so the facility amount stands in
// for "outstanding" per spec.md §4.5). A no-op evaluation (state
// unchanged) returns AlreadyApplied.
func (p *Pending) Reevaluate(price money.PriceOfOneBTC, buffer money.CVLPct, now time.Time) (eventlog.Outcome[collateralization.State], error) {
	ratio := money.CVLPctFromRatio(p.collateralSats.ValuationUSD(price), p.amount)
	next := collateralization.Reevaluate(p.state, ratio, p.terms, buffer)

	if next == p.state {
		return eventlog.AlreadyApplied[collateralization.State](), nil
	}

	_, err := p.stream.Append(EventCollateralizationChanged, CollateralizationChangedPayload{
		State:     next,
		UpdatedAt: now,
	}, now)
	if err != nil {
		return eventlog.Outcome[collateralization.State]{}, err
	}

	p.state = next

	return eventlog.Executed(next), nil
}

// CollateralizationRatio recomputes the same ratio Reevaluate uses,
// for callers (e.g. the ReevaluatePendingCollateralization command)
// that need to publish it alongside the state.
func (p *Pending) CollateralizationRatio(price money.PriceOfOneBTC) money.CVLPct {
	return money.CVLPctFromRatio(p.collateralSats.ValuationUSD(price), p.amount)
}

// ReadyToActivate reports whether the pending facility's
// collateralization state is FullyCollateralized and it has not already
// completed. The term's InitialCVL is not checked here.
func (p *Pending) ReadyToActivate() bool {
	return !p.completed && p.state == collateralization.FullyCollateralized
}

// Complete transitions the pending facility to Completed once it has
// cleared the activation threshold, recording the id of the
// CreditFacility it produces. Idempotent on repeat calls.
func (p *Pending) Complete(facilityID ids.CreditFacilityID, now time.Time) (eventlog.Outcome[ids.CreditFacilityID], error) {
	if p.completed {
		return eventlog.AlreadyApplied[ids.CreditFacilityID](), nil
	}

	if p.state != collateralization.FullyCollateralized {
		return eventlog.Outcome[ids.CreditFacilityID]{}, ErrNotReadyToActivate
	}

	_, err := p.stream.Append(EventCompleted, CompletedPayload{
		FacilityID:  facilityID,
		CompletedAt: now,
	}, now)
	if err != nil {
		return eventlog.Outcome[ids.CreditFacilityID]{}, err
	}

	p.completed = true
	p.facilityID = facilityID

	return eventlog.Executed(facilityID), nil
}

// FacilityID returns the facility id produced at completion, if any.
func (p *Pending) FacilityID() (ids.CreditFacilityID, bool) {
	if !p.completed {
		return ids.CreditFacilityID{}, false
	}

	return p.facilityID, true
}
