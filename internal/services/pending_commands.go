package services

import (
	"context"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/collateral"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/facility"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/pending"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/motel"
)

// CreatePendingFacility opens a PendingCreditFacility on proposal
// approval, in the same transaction per spec.md §4.5 "created in the
// same transaction as proposal approval." The caller (typically the
// outbox consumer reacting to FacilityProposalConcluded(Approved))
// supplies the proposal id, which doubles as the pending facility id.
func (s *Service) CreatePendingFacility(ctx context.Context, proposalID ids.CreditFacilityProposalID, customerID ids.CustomerID, amount money.UsdCents, t terms.Terms, walletID string) (*pending.Pending, error) {
	ctx, span := motel.Start(ctx, "services.CreatePendingFacility")
	defer span.End()

	id := proposalID.AsPendingCreditFacilityID()
	accounts := ledger.NewAccountSet(id.String())

	p, err := pending.Create(id, customerID, amount, t, accounts, walletID, s.now())
	if err != nil {
		return nil, motel.HandleSpanError(span, "create pending facility", err)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
		if err := s.pendings.Save(ctx, id.String(), p, 1); err != nil {
			return err
		}

		txID := "create-pending-facility:" + id.String()

		ltx := ledger.BuildCreatePendingFacility(txID, accounts, ledger.SystemInitiated, nil)
		if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
			return err
		}

		return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
			events.New(events.TypePendingCreditFacilityCreated, s.now(), events.PendingCreditFacilityCreated{
				PendingFacilityID: id.String(), WalletID: walletID,
			}),
		})
	})
	if err != nil {
		return nil, motel.HandleSpanError(span, "persist pending facility", NewError(CodeTransientInfra, id.String(), err))
	}

	return p, nil
}

// UpdatePendingCollateral records a new collateral balance against a
// pending facility.
func (s *Service) UpdatePendingCollateral(ctx context.Context, id ids.PendingCreditFacilityID, source pending.CollateralSource, newBalance money.Satoshis) (eventlog.Outcome[money.Satoshis], error) {
	ctx, span := motel.Start(ctx, "services.UpdatePendingCollateral")
	defer span.End()

	var outcome eventlog.Outcome[money.Satoshis]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		p, err := s.pendings.Load(ctx, id.String())
		if err != nil {
			return err
		}

		expectedSeq := p.NextSequence()

		outcome, err = p.UpdateCollateral(source, newBalance, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.pendings.Save(ctx, id.String(), p, expectedSeq); err != nil {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypeFacilityCollateralUpdated, s.now(), events.FacilityCollateralUpdated{
					FacilityID: id.String(), NewBalanceSats: newBalance,
				}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[money.Satoshis]{}, motel.HandleSpanError(span, "update pending collateral", NewError(CodeConcurrentModification, id.String(), err))
	}

	return outcome, nil
}

// ReevaluatePendingCollateralization re-runs the collateralization
// engine against a pending facility's current collateral, price, and
// terms, publishing PendingCreditFacilityCollateralizationChanged if the
// state moved.
func (s *Service) ReevaluatePendingCollateralization(ctx context.Context, id ids.PendingCreditFacilityID, price money.PriceOfOneBTC) (eventlog.Outcome[int], error) {
	ctx, span := motel.Start(ctx, "services.ReevaluatePendingCollateralization")
	defer span.End()

	var outcome eventlog.Outcome[int]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		p, err := s.pendings.Load(ctx, id.String())
		if err != nil {
			return err
		}

		expectedSeq := p.NextSequence()

		stateOutcome, err := p.Reevaluate(price, s.upgradeBuffer, s.now())
		if err != nil {
			return err
		}

		outcome = eventlog.Outcome[int]{}
		if !stateOutcome.WasExecuted() {
			return nil
		}

		outcome = eventlog.Executed(int(stateOutcome.Value()))

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.pendings.Save(ctx, id.String(), p, expectedSeq); err != nil {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypePendingCreditFacilityCollateralizationChanged, s.now(), events.PendingCreditFacilityCollateralizationChanged{
					PendingFacilityID: id.String(), State: toWireState(stateOutcome.Value()), Ratio: p.CollateralizationRatio(price),
				}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[int]{}, motel.HandleSpanError(span, "reevaluate pending collateralization", NewError(CodeConcurrentModification, id.String(), err))
	}

	return outcome, nil
}

// CompletePendingFacility transitions a ready pending facility into a
// new CreditFacility, optionally posting an initial structuring-fee
// disbursal, per spec.md §4.5 "complete(balances, price, now) yields
// NewCreditFacility and optionally NewDisbursalBuilder."
func (s *Service) CompletePendingFacility(ctx context.Context, id ids.PendingCreditFacilityID) (*facility.Facility, error) {
	ctx, span := motel.Start(ctx, "services.CompletePendingFacility")
	defer span.End()

	var newFacility *facility.Facility

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		p, err := s.pendings.Load(ctx, id.String())
		if err != nil {
			return err
		}

		expectedSeq := p.NextSequence()

		facilityID := id.AsCreditFacilityID()

		outcome, err := p.Complete(facilityID, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			newFacility, err = s.facilities.Load(ctx, facilityID.String())
			return err
		}

		f, err := facility.Create(facilityID, p.CustomerID(), p.Amount(), p.Terms(), p.Accounts(), s.now())
		if err != nil {
			return err
		}

		newFacility = f

		collateralID := facilityID.AsCollateralID()
		c := collateral.Create(collateralID, facilityID, p.WalletID())

		if !p.CollateralSats().IsZero() {
			if _, err := c.Add(p.CollateralSats(), s.now()); err != nil {
				return err
			}
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.pendings.Save(ctx, id.String(), p, expectedSeq); err != nil {
				return err
			}

			if err := s.facilities.Save(ctx, facilityID.String(), f, 1); err != nil {
				return err
			}

			if err := s.collaterals.Save(ctx, collateralID.String(), c, 1); err != nil {
				return err
			}

			feeAmount := money.UsdCents(p.Terms().OneTimeFeeRatePct.ApplyFloor(p.Amount()))

			txID := "activate-facility:" + facilityID.String()

			ltx := ledger.BuildActivateFacility(txID, p.Accounts(), feeAmount, ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypePendingCreditFacilityCompleted, s.now(), events.PendingCreditFacilityCompleted{
					PendingFacilityID: id.String(), FacilityID: facilityID.String(),
				}),
				events.New(events.TypeFacilityActivated, s.now(), events.FacilityActivated{FacilityID: facilityID.String()}),
			})
		})
	})
	if err != nil {
		return nil, motel.HandleSpanError(span, "complete pending facility", NewError(CodeConcurrentModification, id.String(), err))
	}

	return newFacility, nil
}

func toWireState(s interface{ String() string }) events.CollateralizationState {
	switch s.String() {
	case "FullyCollateralized":
		return events.StateFullyCollateralized
	case "UnderMarginCallThreshold":
		return events.StateUnderMarginCallThreshold
	default:
		return events.StateUnderLiquidationThreshold
	}
}
