package services

import (
	"context"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/obligation"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/motel"
)

func bucketFor(o *obligation.Obligation) ledger.ReceivableBucket {
	if o.Kind() == obligation.KindInterest {
		return ledger.BucketInterest
	}

	return ledger.BucketDisbursed
}

// RecordObligationDue fires at the obligation's due_at, reclassifying
// its ledger receivable from not-yet-due to due.
func (s *Service) RecordObligationDue(ctx context.Context, id ids.ObligationID) (eventlog.Outcome[struct{}], error) {
	ctx, span := motel.Start(ctx, "services.RecordObligationDue")
	defer span.End()

	var outcome eventlog.Outcome[struct{}]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		o, err := s.obligations.Load(ctx, id.String())
		if err != nil {
			return err
		}

		expectedSeq := o.NextSequence()
		txID := "obligation-due:" + id.String()

		outcome, err = o.RecordDue(txID, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		f, err := s.facilities.Load(ctx, o.FacilityID().String())
		if err != nil {
			return err
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.obligations.Save(ctx, id.String(), o, expectedSeq); err != nil {
				return err
			}

			ltx := ledger.BuildRecordDue(txID, f.Accounts(), bucketFor(o), o.Amount(), ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypeObligationDue, s.now(), events.ObligationDue{ObligationID: id.String()}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[struct{}]{}, motel.HandleSpanError(span, "record obligation due", NewError(CodeConcurrentModification, id.String(), err))
	}

	return outcome, nil
}

// RecordObligationOverdue fires at the obligation's overdue_at.
func (s *Service) RecordObligationOverdue(ctx context.Context, id ids.ObligationID) (eventlog.Outcome[struct{}], error) {
	ctx, span := motel.Start(ctx, "services.RecordObligationOverdue")
	defer span.End()

	var outcome eventlog.Outcome[struct{}]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		o, err := s.obligations.Load(ctx, id.String())
		if err != nil {
			return err
		}

		expectedSeq := o.NextSequence()
		txID := "obligation-overdue:" + id.String()

		outcome, err = o.RecordOverdue(txID, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		f, err := s.facilities.Load(ctx, o.FacilityID().String())
		if err != nil {
			return err
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.obligations.Save(ctx, id.String(), o, expectedSeq); err != nil {
				return err
			}

			ltx := ledger.BuildRecordOverdue(txID, f.Accounts(), bucketFor(o), o.Amount(), ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypeObligationOverdue, s.now(), events.ObligationOverdue{ObligationID: id.String()}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[struct{}]{}, motel.HandleSpanError(span, "record obligation overdue", NewError(CodeConcurrentModification, id.String(), err))
	}

	return outcome, nil
}

// RecordObligationDefaulted fires at the obligation's defaulted_at.
func (s *Service) RecordObligationDefaulted(ctx context.Context, id ids.ObligationID) (eventlog.Outcome[struct{}], error) {
	ctx, span := motel.Start(ctx, "services.RecordObligationDefaulted")
	defer span.End()

	var outcome eventlog.Outcome[struct{}]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		o, err := s.obligations.Load(ctx, id.String())
		if err != nil {
			return err
		}

		expectedSeq := o.NextSequence()
		txID := "obligation-defaulted:" + id.String()

		outcome, err = o.RecordDefaulted(txID, s.now())
		if err != nil {
			return err
		}

		if !outcome.WasExecuted() {
			return nil
		}

		f, err := s.facilities.Load(ctx, o.FacilityID().String())
		if err != nil {
			return err
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.obligations.Save(ctx, id.String(), o, expectedSeq); err != nil {
				return err
			}

			ltx := ledger.BuildRecordDefaulted(txID, f.Accounts(), bucketFor(o), o.Amount(), ledger.SystemInitiated, nil)
			if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypeObligationDefaulted, s.now(), events.ObligationDefaulted{ObligationID: id.String()}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[struct{}]{}, motel.HandleSpanError(span, "record obligation defaulted", NewError(CodeConcurrentModification, id.String(), err))
	}

	return outcome, nil
}
