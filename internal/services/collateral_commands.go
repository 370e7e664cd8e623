package services

import (
	"context"
	"strconv"

	"github.com/tanakasan3/lana-bank-sub001/internal/collateralization"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/motel"
)

// AddFacilityCollateral records collateral received against an active
// facility's collateral tracker and posts ADD_COLLATERAL.
func (s *Service) AddFacilityCollateral(ctx context.Context, facilityID ids.CreditFacilityID, amount money.Satoshis) (eventlog.Outcome[money.Satoshis], error) {
	ctx, span := motel.Start(ctx, "services.AddFacilityCollateral")
	defer span.End()

	collateralID := facilityID.AsCollateralID()

	var outcome eventlog.Outcome[money.Satoshis]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		c, err := s.collaterals.Load(ctx, collateralID.String())
		if err != nil {
			return err
		}

		expectedSeq := c.NextSequence()

		f, err := s.facilities.Load(ctx, facilityID.String())
		if err != nil {
			return err
		}

		outcome, err = c.Add(amount, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.collaterals.Save(ctx, collateralID.String(), c, expectedSeq); err != nil {
				return err
			}

			txID := "add-collateral:" + collateralID.String() + ":" + strconv.Itoa(expectedSeq)

			ltx := ledger.BuildAddCollateral(txID, f.Accounts(), s.omnibus, amount, ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypeFacilityCollateralUpdated, s.now(), events.FacilityCollateralUpdated{
					FacilityID: facilityID.String(), CollateralID: collateralID.String(), NewBalanceSats: outcome.Value(),
				}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[money.Satoshis]{}, motel.HandleSpanError(span, "add facility collateral", NewError(CodeConcurrentModification, facilityID.String(), err))
	}

	return outcome, nil
}

// RemoveFacilityCollateral records collateral withdrawn from an active
// facility's collateral tracker and posts REMOVE_COLLATERAL.
func (s *Service) RemoveFacilityCollateral(ctx context.Context, facilityID ids.CreditFacilityID, amount money.Satoshis) (eventlog.Outcome[money.Satoshis], error) {
	ctx, span := motel.Start(ctx, "services.RemoveFacilityCollateral")
	defer span.End()

	collateralID := facilityID.AsCollateralID()

	var outcome eventlog.Outcome[money.Satoshis]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		c, err := s.collaterals.Load(ctx, collateralID.String())
		if err != nil {
			return err
		}

		expectedSeq := c.NextSequence()

		f, err := s.facilities.Load(ctx, facilityID.String())
		if err != nil {
			return err
		}

		outcome, err = c.Remove(amount, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.collaterals.Save(ctx, collateralID.String(), c, expectedSeq); err != nil {
				return err
			}

			txID := "remove-collateral:" + collateralID.String() + ":" + strconv.Itoa(expectedSeq)

			ltx := ledger.BuildRemoveCollateral(txID, f.Accounts(), s.omnibus, amount, ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypeFacilityCollateralUpdated, s.now(), events.FacilityCollateralUpdated{
					FacilityID: facilityID.String(), CollateralID: collateralID.String(), NewBalanceSats: outcome.Value(),
				}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[money.Satoshis]{}, motel.HandleSpanError(span, "remove facility collateral", NewError(CodeConcurrentModification, facilityID.String(), err))
	}

	return outcome, nil
}

// SetFacilityCollateralBalance reconciles a custodian-reported absolute
// balance against the facility's collateral tracker, posting
// ADD_COLLATERAL or REMOVE_COLLATERAL for the delta (custodian syncs
// report the new total, unlike the operator AddFacilityCollateral/
// RemoveFacilityCollateral commands which report a delta directly).
// A no-op sync (balance unchanged) is idempotent.
func (s *Service) SetFacilityCollateralBalance(ctx context.Context, facilityID ids.CreditFacilityID, newBalance money.Satoshis) (eventlog.Outcome[money.Satoshis], error) {
	c, err := s.collaterals.Load(ctx, facilityID.AsCollateralID().String())
	if err != nil {
		return eventlog.Outcome[money.Satoshis]{}, err
	}

	current := c.BalanceSats()

	if newBalance == current {
		return eventlog.AlreadyApplied[money.Satoshis](), nil
	}

	if newBalance > current {
		return s.AddFacilityCollateral(ctx, facilityID, newBalance-current)
	}

	return s.RemoveFacilityCollateral(ctx, facilityID, current-newBalance)
}

// ReevaluateFacilityCollateralization re-runs the collateralization
// engine against an active facility's current collateral, price, and
// ledger-derived outstanding balance, publishing
// FacilityCollateralizationChanged if the state moved, and initiating a
// partial liquidation if the new state crosses into
// UnderLiquidationThreshold with the term's liquidation gate enabled,
// per spec.md §4.7-4.8.
func (s *Service) ReevaluateFacilityCollateralization(ctx context.Context, facilityID ids.CreditFacilityID, price money.PriceOfOneBTC) (eventlog.Outcome[collateralization.State], error) {
	ctx, span := motel.Start(ctx, "services.ReevaluateFacilityCollateralization")
	defer span.End()

	collateralID := facilityID.AsCollateralID()

	var outcome eventlog.Outcome[collateralization.State]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		c, err := s.collaterals.Load(ctx, collateralID.String())
		if err != nil {
			return err
		}

		expectedSeq := c.NextSequence()

		f, err := s.facilities.Load(ctx, facilityID.String())
		if err != nil {
			return err
		}

		balances, err := s.ledger.GetCreditFacilityBalance(ctx, f.Accounts())
		if err != nil {
			return err
		}

		outcome, err = c.Reevaluate(price, balances.TotalOutstanding(), f.Terms(), s.upgradeBuffer, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		ratio := money.CVLPctFromRatio(balances.Collateral.ValuationUSD(price), balances.TotalOutstanding())

		evs := []events.Event{
			events.New(events.TypeFacilityCollateralizationChanged, s.now(), events.FacilityCollateralizationChanged{
				FacilityID: facilityID.String(), State: toWireState(outcome.Value()), Ratio: ratio,
			}),
		}

		err = s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.collaterals.Save(ctx, collateralID.String(), c, expectedSeq); err != nil {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, evs)
		})
		if err != nil {
			return err
		}

		if collateralization.LiquidationTriggered(outcome.Value(), f.Terms()) {
			if _, ok := c.ActiveLiquidation(); !ok {
				// initially_expected_to_receive is the overdue+defaulted
				// principal only, per spec.md §8 scenario 5 — not the
				// full outstanding (which also carries not-yet-due and
				// interest balances that the liquidation isn't covering).
				expectedReceive := balances.DisbursedOverdue.Add(balances.DisbursedDefaulted)
				estimatedSats := balances.TotalOutstanding().ToSatoshis(price)

				if _, err := s.InitiateLiquidation(ctx, facilityID, collateralID, price, expectedReceive, estimatedSats); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return eventlog.Outcome[collateralization.State]{}, motel.HandleSpanError(span, "reevaluate facility collateralization", NewError(CodeConcurrentModification, facilityID.String(), err))
	}

	return outcome, nil
}
