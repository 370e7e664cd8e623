// Package liquidation implements the Liquidation workflow from spec.md
// §4.7: initiated with a trigger price and estimates, then the operator
// records collateral sent out and proceeds received before it completes.
// Owned by its Collateral (spec.md §3 Ownership), but modeled as its own
// event-sourced aggregate, matching internal/domain/collateral's shape.
package liquidation

import (
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

const (
	EventInitiated      = "LiquidationInitiated"
	EventCollateralSent = "LiquidationCollateralSentOut"
	EventProceeds       = "LiquidationProceedsReceived"
	EventCompleted      = "LiquidationCompleted"
)

type InitiatedPayload struct {
	FacilityID                        ids.CreditFacilityID  `json:"facilityId"`
	CollateralID                      ids.CollateralID      `json:"collateralId"`
	TriggerPrice                      money.PriceOfOneBTC   `json:"triggerPrice"`
	InitiallyExpectedToReceive        money.UsdCents        `json:"initiallyExpectedToReceive"`
	InitiallyEstimatedToLiquidateSats money.Satoshis        `json:"initiallyEstimatedToLiquidateSats"`
	InitiatedAt                       time.Time             `json:"initiatedAt"`
}

type CollateralSentPayload struct {
	TxID       string         `json:"txId"`
	AmountSats money.Satoshis `json:"amountSats"`
	SentAt     time.Time      `json:"sentAt"`
}

type ProceedsPayload struct {
	TxID        string         `json:"txId"`
	ProceedsUSD money.UsdCents `json:"proceedsUsd"`
	ReceivedAt  time.Time      `json:"receivedAt"`
}

type CompletedPayload struct {
	CompletedAt time.Time `json:"completedAt"`
}

// Liquidation is the Liquidation aggregate.
type Liquidation struct {
	id           ids.LiquidationID
	stream       *eventlog.Stream
	facilityID   ids.CreditFacilityID
	collateralID ids.CollateralID

	triggerPrice                      money.PriceOfOneBTC
	initiallyExpectedToReceive        money.UsdCents
	initiallyEstimatedToLiquidateSats money.Satoshis

	sentOutSats  money.Satoshis
	proceedsUSD  money.UsdCents
	completed    bool

	sentTxIDs     map[string]bool
	proceedsTxIDs map[string]bool
}

// Initiate starts a new liquidation, triggered by the collateralization
// engine reaching UnderLiquidationThreshold (spec.md §4.7).
func Initiate(id ids.LiquidationID, facilityID ids.CreditFacilityID, collateralID ids.CollateralID, triggerPrice money.PriceOfOneBTC, expectedReceive money.UsdCents, estimatedSats money.Satoshis, now time.Time) (*Liquidation, error) {
	l := &Liquidation{
		id:                                id,
		stream:                            eventlog.NewStream(id.String(), nil),
		facilityID:                        facilityID,
		collateralID:                      collateralID,
		triggerPrice:                      triggerPrice,
		initiallyExpectedToReceive:        expectedReceive,
		initiallyEstimatedToLiquidateSats: estimatedSats,
		sentTxIDs:                         map[string]bool{},
		proceedsTxIDs:                     map[string]bool{},
	}

	_, err := l.stream.Append(EventInitiated, InitiatedPayload{
		FacilityID: facilityID, CollateralID: collateralID, TriggerPrice: triggerPrice,
		InitiallyExpectedToReceive: expectedReceive, InitiallyEstimatedToLiquidateSats: estimatedSats,
		InitiatedAt: now,
	}, now)
	if err != nil {
		return nil, err
	}

	return l, nil
}

// Hydrate rebuilds a Liquidation from persisted events.
func Hydrate(id ids.LiquidationID, events []eventlog.Event) (*Liquidation, error) {
	l := &Liquidation{id: id, stream: eventlog.NewStream(id.String(), events), sentTxIDs: map[string]bool{}, proceedsTxIDs: map[string]bool{}}

	for _, ev := range l.stream.All() {
		if err := l.apply(ev); err != nil {
			return nil, err
		}
	}

	return l, nil
}

func (l *Liquidation) apply(ev eventlog.Event) error {
	switch ev.EventType {
	case EventInitiated:
		var p InitiatedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		l.facilityID = p.FacilityID
		l.collateralID = p.CollateralID
		l.triggerPrice = p.TriggerPrice
		l.initiallyExpectedToReceive = p.InitiallyExpectedToReceive
		l.initiallyEstimatedToLiquidateSats = p.InitiallyEstimatedToLiquidateSats
	case EventCollateralSent:
		var p CollateralSentPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		l.sentOutSats = l.sentOutSats.Add(p.AmountSats)
		l.sentTxIDs[p.TxID] = true
	case EventProceeds:
		var p ProceedsPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}

		l.proceedsUSD = l.proceedsUSD.Add(p.ProceedsUSD)
		l.proceedsTxIDs[p.TxID] = true
	case EventCompleted:
		l.completed = true
	}

	return nil
}

func (l *Liquidation) ID() ids.LiquidationID                    { return l.id }
func (l *Liquidation) FacilityID() ids.CreditFacilityID         { return l.facilityID }
func (l *Liquidation) CollateralID() ids.CollateralID            { return l.collateralID }
func (l *Liquidation) TriggerPrice() money.PriceOfOneBTC         { return l.triggerPrice }
func (l *Liquidation) SentOutSats() money.Satoshis               { return l.sentOutSats }
func (l *Liquidation) ProceedsUSD() money.UsdCents               { return l.proceedsUSD }
func (l *Liquidation) IsCompleted() bool                         { return l.completed }

func (l *Liquidation) NewEvents() []eventlog.Event { return l.stream.NewEvents() }
func (l *Liquidation) NextSequence() int           { return l.stream.NextSequence() }
func (l *Liquidation) MarkPersisted()              { l.stream.MarkPersisted() }

// RecordCollateralSentOut records BTC sent to the liquidation venue.
// Idempotent on (liquidation_id, tx_id) per spec.md §4.7.
func (l *Liquidation) RecordCollateralSentOut(txID string, amount money.Satoshis, now time.Time) (eventlog.Outcome[money.Satoshis], error) {
	if l.sentTxIDs[txID] {
		return eventlog.AlreadyApplied[money.Satoshis](), nil
	}

	_, err := l.stream.Append(EventCollateralSent, CollateralSentPayload{TxID: txID, AmountSats: amount, SentAt: now}, now)
	if err != nil {
		return eventlog.Outcome[money.Satoshis]{}, err
	}

	l.sentOutSats = l.sentOutSats.Add(amount)
	l.sentTxIDs[txID] = true

	return eventlog.Executed(amount), nil
}

// RecordProceedsReceived records USD proceeds received from the
// liquidation venue. Idempotent on (liquidation_id, tx_id).
func (l *Liquidation) RecordProceedsReceived(txID string, amount money.UsdCents, now time.Time) (eventlog.Outcome[money.UsdCents], error) {
	if l.proceedsTxIDs[txID] {
		return eventlog.AlreadyApplied[money.UsdCents](), nil
	}

	_, err := l.stream.Append(EventProceeds, ProceedsPayload{TxID: txID, ProceedsUSD: amount, ReceivedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[money.UsdCents]{}, err
	}

	l.proceedsUSD = l.proceedsUSD.Add(amount)
	l.proceedsTxIDs[txID] = true

	return eventlog.Executed(amount), nil
}

// Complete transitions the liquidation to Completed once proceeds have
// been received — spec.md §4.7's "on receipt, transitions the
// liquidation to Completed and the collateral's LiquidationCompleted."
// Idempotent.
func (l *Liquidation) Complete(now time.Time) (eventlog.Outcome[struct{}], error) {
	if l.completed {
		return eventlog.AlreadyApplied[struct{}](), nil
	}

	_, err := l.stream.Append(EventCompleted, CompletedPayload{CompletedAt: now}, now)
	if err != nil {
		return eventlog.Outcome[struct{}]{}, err
	}

	l.completed = true

	return eventlog.Executed(struct{}{}), nil
}
