package services

import (
	"context"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/liquidation"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/motel"
)

// InitiateLiquidation starts a partial liquidation against a facility's
// collateral once the collateralization engine reaches
// UnderLiquidationThreshold with liquidation enabled (spec.md §4.7).
// Refuses to start a second concurrent liquidation on the same
// collateral (Collateral.StartLiquidation's invariant).
func (s *Service) InitiateLiquidation(ctx context.Context, facilityID ids.CreditFacilityID, collateralID ids.CollateralID, triggerPrice money.PriceOfOneBTC, expectedReceive money.UsdCents, estimatedSats money.Satoshis) (eventlog.Outcome[ids.LiquidationID], error) {
	ctx, span := motel.Start(ctx, "services.InitiateLiquidation")
	defer span.End()

	liquidationID := ids.NewLiquidationID()
	var outcome eventlog.Outcome[ids.LiquidationID]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		c, err := s.collaterals.Load(ctx, collateralID.String())
		if err != nil {
			return err
		}

		expectedSeq := c.NextSequence()

		collOutcome, err := c.StartLiquidation(liquidationID, s.now())
		if err != nil {
			return err
		}

		if !collOutcome.WasExecuted() {
			outcome = eventlog.AlreadyApplied[ids.LiquidationID]()
			return nil
		}

		l, err := liquidation.Initiate(liquidationID, facilityID, collateralID, triggerPrice, expectedReceive, estimatedSats, s.now())
		if err != nil {
			return err
		}

		outcome = eventlog.Executed(liquidationID)

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.collaterals.Save(ctx, collateralID.String(), c, expectedSeq); err != nil {
				return err
			}

			if err := s.liquidations.Save(ctx, liquidationID.String(), l, 1); err != nil {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypePartialLiquidationInitiated, s.now(), events.PartialLiquidationInitiated{
					FacilityID: facilityID.String(), LiquidationID: liquidationID.String(),
					TriggerPrice: triggerPrice, InitiallyExpectedToReceive: expectedReceive,
					InitiallyEstimatedToLiquidateSats: estimatedSats,
				}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[ids.LiquidationID]{}, motel.HandleSpanError(span, "initiate liquidation", NewError(CodeConcurrentModification, facilityID.String(), err))
	}

	return outcome, nil
}

// RecordLiquidationCollateralSentOut records BTC sent to the
// liquidation venue and posts SEND_COLLATERAL_TO_LIQUIDATION, moving the
// facility's collateral into the in-liquidation account.
func (s *Service) RecordLiquidationCollateralSentOut(ctx context.Context, liquidationID ids.LiquidationID, collateralID ids.CollateralID, txID string, amount money.Satoshis) (eventlog.Outcome[money.Satoshis], error) {
	ctx, span := motel.Start(ctx, "services.RecordLiquidationCollateralSentOut")
	defer span.End()

	var outcome eventlog.Outcome[money.Satoshis]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		l, err := s.liquidations.Load(ctx, liquidationID.String())
		if err != nil {
			return err
		}

		lExpectedSeq := l.NextSequence()

		outcome, err = l.RecordCollateralSentOut(txID, amount, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		f, err := s.facilities.Load(ctx, l.FacilityID().String())
		if err != nil {
			return err
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.liquidations.Save(ctx, liquidationID.String(), l, lExpectedSeq); err != nil {
				return err
			}

			ltx := ledger.BuildSendCollateralToLiquidation(txID, f.Accounts(), amount, ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypePartialLiquidationCollateralSentOut, s.now(), events.PartialLiquidationCollateralSentOut{
					LiquidationID: liquidationID.String(), AmountSats: amount,
				}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[money.Satoshis]{}, motel.HandleSpanError(span, "record collateral sent out", NewError(CodeConcurrentModification, liquidationID.String(), err))
	}

	return outcome, nil
}

// RecordLiquidationProceedsReceived records USD proceeds received from
// the liquidation venue, posts RECEIVE_PROCEEDS_FROM_LIQUIDATION, and
// completes the liquidation workflow, clearing the collateral's active
// liquidation pointer, per spec.md §4.7.
func (s *Service) RecordLiquidationProceedsReceived(ctx context.Context, liquidationID ids.LiquidationID, collateralID ids.CollateralID, txID string, usdProceeds money.UsdCents, btcLiquidated money.Satoshis) (eventlog.Outcome[money.UsdCents], error) {
	ctx, span := motel.Start(ctx, "services.RecordLiquidationProceedsReceived")
	defer span.End()

	var outcome eventlog.Outcome[money.UsdCents]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		l, err := s.liquidations.Load(ctx, liquidationID.String())
		if err != nil {
			return err
		}

		lExpectedSeq := l.NextSequence()

		outcome, err = l.RecordProceedsReceived(txID, usdProceeds, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		completeOutcome, err := l.Complete(s.now())
		if err != nil {
			return err
		}

		c, err := s.collaterals.Load(ctx, collateralID.String())
		if err != nil {
			return err
		}

		cExpectedSeq := c.NextSequence()

		if _, err := c.EndLiquidation(liquidationID, s.now()); err != nil {
			return err
		}

		f, err := s.facilities.Load(ctx, l.FacilityID().String())
		if err != nil {
			return err
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.liquidations.Save(ctx, liquidationID.String(), l, lExpectedSeq); err != nil {
				return err
			}

			if err := s.collaterals.Save(ctx, collateralID.String(), c, cExpectedSeq); err != nil {
				return err
			}

			ltx := ledger.BuildReceiveProceedsFromLiquidation(txID, f.Accounts(), s.omnibus, usdProceeds, btcLiquidated, ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			evs := []events.Event{
				events.New(events.TypePartialLiquidationProceedsReceived, s.now(), events.PartialLiquidationProceedsReceived{
					LiquidationID: liquidationID.String(), ProceedsUSD: usdProceeds,
				}),
			}

			if completeOutcome.WasExecuted() {
				evs = append(evs, events.New(events.TypePartialLiquidationCompleted, s.now(), events.PartialLiquidationCompleted{
					LiquidationID: liquidationID.String(),
				}))
			}

			return s.outbox.PublishAllPersisted(ctx, op, evs)
		})
	})
	if err != nil {
		return eventlog.Outcome[money.UsdCents]{}, motel.HandleSpanError(span, "record proceeds received", NewError(CodeConcurrentModification, liquidationID.String(), err))
	}

	return outcome, nil
}
