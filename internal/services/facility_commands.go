package services

import (
	"context"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/facility"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/obligation"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/motel"
)

// AddDisbursal records a new pending-approval draw against a facility.
func (s *Service) AddDisbursal(ctx context.Context, facilityID ids.CreditFacilityID, amount money.UsdCents) (ids.DisbursalID, error) {
	ctx, span := motel.Start(ctx, "services.AddDisbursal")
	defer span.End()

	disbursalID := ids.NewDisbursalID()

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		f, err := s.facilities.Load(ctx, facilityID.String())
		if err != nil {
			return err
		}

		expectedSeq := f.NextSequence()

		if _, err := f.AddDisbursal(disbursalID, amount, s.now()); err != nil {
			return err
		}

		return s.facilities.Save(ctx, facilityID.String(), f, expectedSeq)
	})
	if err != nil {
		return ids.DisbursalID{}, motel.HandleSpanError(span, "add disbursal", NewError(CodeConcurrentModification, facilityID.String(), err))
	}

	return disbursalID, nil
}

// ApproveDisbursal approves a pending disbursal, materializing its
// Obligation and posting the DISBURSAL_SETTLED ledger transaction in the
// same unit of work, per spec.md §4.5.
func (s *Service) ApproveDisbursal(ctx context.Context, facilityID ids.CreditFacilityID, disbursalID ids.DisbursalID) (eventlog.Outcome[ids.ObligationID], error) {
	ctx, span := motel.Start(ctx, "services.ApproveDisbursal")
	defer span.End()

	var outcome eventlog.Outcome[ids.ObligationID]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		f, err := s.facilities.Load(ctx, facilityID.String())
		if err != nil {
			return err
		}

		expectedSeq := f.NextSequence()

		d, ok := findDisbursal(f, disbursalID)
		if !ok {
			return NewError(CodeNotFound, disbursalID.String(), nil)
		}

		obligationID := ids.NewObligationID()
		dueAt, overdueAt, defaultedAt := f.Terms().ObligationDates(s.now())

		o, err := obligation.Create(obligationID, facilityID, obligation.KindDisbursal, d.Amount, dueAt, overdueAt, defaultedAt, s.now())
		if err != nil {
			return err
		}

		outcome, err = f.ApproveDisbursal(disbursalID, obligationID, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.facilities.Save(ctx, facilityID.String(), f, expectedSeq); err != nil {
				return err
			}

			if err := s.obligations.Save(ctx, obligationID.String(), o, 1); err != nil {
				return err
			}

			txID := "disbursal-settled:" + disbursalID.String()

			ltx := ledger.BuildDisbursalSettled(txID, f.Accounts(), d.Amount, ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypeDisbursalSettled, s.now(), events.DisbursalSettled{
					FacilityID: facilityID.String(), DisbursalID: disbursalID.String(), Amount: d.Amount,
				}),
				events.New(events.TypeObligationCreated, s.now(), events.ObligationCreated{
					ObligationID: obligationID.String(), FacilityID: facilityID.String(),
					Kind: events.ObligationDisbursal, Amount: d.Amount, DueAt: dueAt,
				}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[ids.ObligationID]{}, motel.HandleSpanError(span, "approve disbursal", NewError(CodeConcurrentModification, facilityID.String(), err))
	}

	return outcome, nil
}

// DenyDisbursal denies a pending disbursal.
func (s *Service) DenyDisbursal(ctx context.Context, facilityID ids.CreditFacilityID, disbursalID ids.DisbursalID) (eventlog.Outcome[struct{}], error) {
	ctx, span := motel.Start(ctx, "services.DenyDisbursal")
	defer span.End()

	var outcome eventlog.Outcome[struct{}]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		f, err := s.facilities.Load(ctx, facilityID.String())
		if err != nil {
			return err
		}

		expectedSeq := f.NextSequence()

		outcome, err = f.DenyDisbursal(disbursalID, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		return s.facilities.Save(ctx, facilityID.String(), f, expectedSeq)
	})
	if err != nil {
		return eventlog.Outcome[struct{}]{}, motel.HandleSpanError(span, "deny disbursal", NewError(CodeConcurrentModification, facilityID.String(), err))
	}

	return outcome, nil
}

// OpenAccrualCycle opens a new interest-accrual period for a facility.
func (s *Service) OpenAccrualCycle(ctx context.Context, facilityID ids.CreditFacilityID) (eventlog.Outcome[facility.Cycle], error) {
	ctx, span := motel.Start(ctx, "services.OpenAccrualCycle")
	defer span.End()

	var outcome eventlog.Outcome[facility.Cycle]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		f, err := s.facilities.Load(ctx, facilityID.String())
		if err != nil {
			return err
		}

		expectedSeq := f.NextSequence()

		outcome, err = f.OpenCycle(s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		return s.facilities.Save(ctx, facilityID.String(), f, expectedSeq)
	})
	if err != nil {
		return eventlog.Outcome[facility.Cycle]{}, motel.HandleSpanError(span, "open accrual cycle", NewError(CodeConcurrentModification, facilityID.String(), err))
	}

	return outcome, nil
}

// CloseAccrualCycle closes the open cycle, materializing an interest
// Obligation for the accrued amount and posting INTEREST_ACCRUAL_POSTED,
// per spec.md §4.5. outstandingPrincipal is the facility's current
// disbursed-outstanding balance (the interest base).
func (s *Service) CloseAccrualCycle(ctx context.Context, facilityID ids.CreditFacilityID, outstandingPrincipal money.UsdCents) (eventlog.Outcome[ids.ObligationID], error) {
	ctx, span := motel.Start(ctx, "services.CloseAccrualCycle")
	defer span.End()

	var outcome eventlog.Outcome[ids.ObligationID]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		f, err := s.facilities.Load(ctx, facilityID.String())
		if err != nil {
			return err
		}

		expectedSeq := f.NextSequence()

		if f.CurrentCycle() == nil {
			outcome = eventlog.AlreadyApplied[ids.ObligationID]()
			return nil
		}

		amount := f.Terms().AccrualAmount(outstandingPrincipal)
		obligationID := ids.NewObligationID()
		dueAt, overdueAt, defaultedAt := f.Terms().ObligationDates(s.now())

		o, err := obligation.Create(obligationID, facilityID, obligation.KindInterest, amount, dueAt, overdueAt, defaultedAt, s.now())
		if err != nil {
			return err
		}

		cycleOutcome, err := f.CloseCycle(obligationID, amount, s.now())
		if err != nil {
			return err
		}

		if !cycleOutcome.WasExecuted() {
			outcome = eventlog.AlreadyApplied[ids.ObligationID]()
			return nil
		}

		outcome = eventlog.Executed(obligationID)

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.facilities.Save(ctx, facilityID.String(), f, expectedSeq); err != nil {
				return err
			}

			if err := s.obligations.Save(ctx, obligationID.String(), o, 1); err != nil {
				return err
			}

			txID := "interest-accrual:" + obligationID.String()

			ltx := ledger.BuildInterestAccrualPosted(txID, f.Accounts(), amount, ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypeAccrualPosted, s.now(), events.AccrualPosted{
					FacilityID: facilityID.String(), ObligationID: obligationID.String(), Amount: amount,
				}),
				events.New(events.TypeObligationCreated, s.now(), events.ObligationCreated{
					ObligationID: obligationID.String(), FacilityID: facilityID.String(),
					Kind: events.ObligationInterest, Amount: amount, DueAt: dueAt,
				}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[ids.ObligationID]{}, motel.HandleSpanError(span, "close accrual cycle", NewError(CodeConcurrentModification, facilityID.String(), err))
	}

	return outcome, nil
}

// CloseFacility transitions a fully-repaid facility to Closed. The
// caller must have already verified every obligation is terminal and
// every ledger receivable rung is zero (spec.md §3 invariant); this
// command does not re-derive that itself.
func (s *Service) CloseFacility(ctx context.Context, facilityID ids.CreditFacilityID) (eventlog.Outcome[struct{}], error) {
	ctx, span := motel.Start(ctx, "services.CloseFacility")
	defer span.End()

	var outcome eventlog.Outcome[struct{}]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		f, err := s.facilities.Load(ctx, facilityID.String())
		if err != nil {
			return err
		}

		expectedSeq := f.NextSequence()

		outcome, err = f.Close(s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.facilities.Save(ctx, facilityID.String(), f, expectedSeq); err != nil {
				return err
			}

			txID := "complete-facility:" + facilityID.String()

			ltx := ledger.BuildCompleteFacility(txID, f.Accounts(), ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypeFacilityCompleted, s.now(), events.FacilityCompleted{FacilityID: facilityID.String()}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[struct{}]{}, motel.HandleSpanError(span, "close facility", NewError(CodeConcurrentModification, facilityID.String(), err))
	}

	return outcome, nil
}

func findDisbursal(f *facility.Facility, id ids.DisbursalID) (facility.Disbursal, bool) {
	for _, d := range f.Disbursals() {
		if d.ID == id {
			return d, true
		}
	}

	return facility.Disbursal{}, false
}
