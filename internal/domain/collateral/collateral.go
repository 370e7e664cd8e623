// Package collateral implements the Collateral entity from spec.md
// §3/§4.7: tracks an on-chain custody balance (if any) or an
// operator-recorded BTC balance, and holds at most one active
// liquidation at a time, derived from the event stream rather than
// stored as mutable state (a LiquidationStarted with no matching
// LiquidationCompleted).
package collateral

import (
	"errors"
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/collateralization"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

const (
	EventAdded                  = "CollateralAdded"
	EventRemoved                = "CollateralRemoved"
	EventLiquidationStarted     = "LiquidationStarted"
	EventLiquidationEnded       = "LiquidationCompleted"
	EventCollateralizationMoved = "FacilityCollateralizationMoved"
)

// ErrLiquidationAlreadyActive is returned by StartLiquidation when the
// collateral already has an active liquidation, per spec.md §3
// invariant "at most one Active liquidation id at any replayed state."
var ErrLiquidationAlreadyActive = errors.New("collateral: a liquidation is already active")

type AddedPayload struct {
	AmountSats money.Satoshis `json:"amountSats"`
	AddedAt    time.Time      `json:"addedAt"`
}

type RemovedPayload struct {
	AmountSats money.Satoshis `json:"amountSats"`
	RemovedAt  time.Time      `json:"removedAt"`
}

type LiquidationStartedPayload struct {
	LiquidationID ids.LiquidationID `json:"liquidationId"`
	StartedAt     time.Time         `json:"startedAt"`
}

type LiquidationEndedPayload struct {
	LiquidationID ids.LiquidationID `json:"liquidationId"`
	EndedAt       time.Time         `json:"endedAt"`
}

type CollateralizationMovedPayload struct {
	State     collateralization.State `json:"state"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// Collateral is the Collateral aggregate.
type Collateral struct {
	id         ids.CollateralID
	stream     *eventlog.Stream
	facilityID ids.CreditFacilityID
	walletID   string

	balanceSats       money.Satoshis
	activeLiquidation *ids.LiquidationID
	state             collateralization.State
}

// Create opens a collateral tracker for a facility, optionally backed by
// a custody wallet.
func Create(id ids.CollateralID, facilityID ids.CreditFacilityID, walletID string) *Collateral {
	return &Collateral{
		id:         id,
		stream:     eventlog.NewStream(id.String(), nil),
		facilityID: facilityID,
		walletID:   walletID,
	}
}

// Hydrate rebuilds a Collateral from persisted events.
func Hydrate(id ids.CollateralID, events []eventlog.Event) (*Collateral, error) {
	c := &Collateral{id: id, stream: eventlog.NewStream(id.String(), events)}

	for _, ev := range c.stream.All() {
		if err := c.apply(ev); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Collateral) apply(ev eventlog.Event) error {
	switch ev.EventType {
	case EventAdded:
		var p AddedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		c.balanceSats = c.balanceSats.Add(p.AmountSats)
	case EventRemoved:
		var p RemovedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		c.balanceSats = c.balanceSats.Sub(p.AmountSats)
	case EventLiquidationStarted:
		var p LiquidationStartedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		id := p.LiquidationID
		c.activeLiquidation = &id
	case EventLiquidationEnded:
		c.activeLiquidation = nil
	case EventCollateralizationMoved:
		var p CollateralizationMovedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		c.state = p.State
	}

	return nil
}

func (c *Collateral) ID() ids.CollateralID             { return c.id }
func (c *Collateral) FacilityID() ids.CreditFacilityID { return c.facilityID }
func (c *Collateral) HasWallet() bool                  { return c.walletID != "" }
func (c *Collateral) BalanceSats() money.Satoshis      { return c.balanceSats }
func (c *Collateral) State() collateralization.State   { return c.state }

// ActiveLiquidation returns the currently active liquidation id, if any.
func (c *Collateral) ActiveLiquidation() (ids.LiquidationID, bool) {
	if c.activeLiquidation == nil {
		return ids.LiquidationID{}, false
	}

	return *c.activeLiquidation, true
}

func (c *Collateral) NewEvents() []eventlog.Event { return c.stream.NewEvents() }
func (c *Collateral) NextSequence() int           { return c.stream.NextSequence() }
func (c *Collateral) MarkPersisted()              { c.stream.MarkPersisted() }

// Add records additional collateral received.
func (c *Collateral) Add(amount money.Satoshis, now time.Time) (eventlog.Outcome[money.Satoshis], error) {
	_, err := c.stream.Append(EventAdded, AddedPayload{AmountSats: amount, AddedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[money.Satoshis]{}, err
	}

	c.balanceSats = c.balanceSats.Add(amount)

	return eventlog.Executed(c.balanceSats), nil
}

// Remove records collateral withdrawn (e.g. sent to liquidation or
// returned to the customer). Panics via money.Satoshis.Sub if amount
// exceeds the balance — an invariant violation, not a user error.
func (c *Collateral) Remove(amount money.Satoshis, now time.Time) (eventlog.Outcome[money.Satoshis], error) {
	_, err := c.stream.Append(EventRemoved, RemovedPayload{AmountSats: amount, RemovedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[money.Satoshis]{}, err
	}

	c.balanceSats = c.balanceSats.Sub(amount)

	return eventlog.Executed(c.balanceSats), nil
}

// Reevaluate recomputes the facility's collateralization state from the
// collateral balance valued at price against outstandingUSD (the
// facility's current disbursed+interest outstanding from the ledger),
// per spec.md §3 "re-evaluates collateralization state on price,
// collateral, or outstanding changes." A no-op evaluation (state
// unchanged) returns AlreadyApplied.
func (c *Collateral) Reevaluate(price money.PriceOfOneBTC, outstandingUSD money.UsdCents, t terms.Terms, buffer money.CVLPct, now time.Time) (eventlog.Outcome[collateralization.State], error) {
	ratio := money.CVLPctFromRatio(c.balanceSats.ValuationUSD(price), outstandingUSD)
	next := collateralization.Reevaluate(c.state, ratio, t, buffer)

	if next == c.state {
		return eventlog.AlreadyApplied[collateralization.State](), nil
	}

	_, err := c.stream.Append(EventCollateralizationMoved, CollateralizationMovedPayload{State: next, UpdatedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[collateralization.State]{}, err
	}

	c.state = next

	return eventlog.Executed(next), nil
}

// StartLiquidation records a newly initiated liquidation. Refuses a
// second concurrent liquidation per the at-most-one-active invariant.
func (c *Collateral) StartLiquidation(liquidationID ids.LiquidationID, now time.Time) (eventlog.Outcome[ids.LiquidationID], error) {
	if c.activeLiquidation != nil {
		if *c.activeLiquidation == liquidationID {
			return eventlog.AlreadyApplied[ids.LiquidationID](), nil
		}

		return eventlog.Outcome[ids.LiquidationID]{}, ErrLiquidationAlreadyActive
	}

	_, err := c.stream.Append(EventLiquidationStarted, LiquidationStartedPayload{
		LiquidationID: liquidationID, StartedAt: now,
	}, now)
	if err != nil {
		return eventlog.Outcome[ids.LiquidationID]{}, err
	}

	id := liquidationID
	c.activeLiquidation = &id

	return eventlog.Executed(liquidationID), nil
}

// EndLiquidation clears the active liquidation pointer once the
// liquidation workflow completes. Idempotent if already cleared.
func (c *Collateral) EndLiquidation(liquidationID ids.LiquidationID, now time.Time) (eventlog.Outcome[struct{}], error) {
	if c.activeLiquidation == nil {
		return eventlog.AlreadyApplied[struct{}](), nil
	}

	_, err := c.stream.Append(EventLiquidationEnded, LiquidationEndedPayload{
		LiquidationID: liquidationID, EndedAt: now,
	}, now)
	if err != nil {
		return eventlog.Outcome[struct{}]{}, err
	}

	c.activeLiquidation = nil

	return eventlog.Executed(struct{}{}), nil
}
