package services

import (
	"context"
	"sort"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/obligation"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/payment"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/motel"
)

// RecordPayment registers an incoming payment against a facility and
// posts it into the payment-holding account, per spec.md §4.6 step 0
// ("RECORD_PAYMENT ... into payment-holding pending allocation").
// Idempotent on paymentID (a duplicate DepositRecorded delivery).
func (s *Service) RecordPayment(ctx context.Context, paymentID ids.PaymentID, facilityID ids.CreditFacilityID, amount money.UsdCents) (eventlog.Outcome[money.UsdCents], error) {
	ctx, span := motel.Start(ctx, "services.RecordPayment")
	defer span.End()

	existing, err := s.payments.Load(ctx, paymentID.String())
	if err != nil {
		return eventlog.Outcome[money.UsdCents]{}, motel.HandleSpanError(span, "record payment", NewError(CodeTransientInfra, paymentID.String(), err))
	}

	if existing.IsReceived() {
		return eventlog.AlreadyApplied[money.UsdCents](), nil
	}

	p, outcome, err := payment.Receive(paymentID, facilityID, amount, s.now())
	if err != nil {
		return eventlog.Outcome[money.UsdCents]{}, motel.HandleSpanError(span, "record payment", NewError(CodeValidation, paymentID.String(), err))
	}

	f, err := s.facilities.Load(ctx, facilityID.String())
	if err != nil {
		return eventlog.Outcome[money.UsdCents]{}, motel.HandleSpanError(span, "record payment", NewError(CodeTransientInfra, facilityID.String(), err))
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
		if err := s.payments.Save(ctx, paymentID.String(), p, 1); err != nil {
			return err
		}

		txID := "record-payment:" + paymentID.String()

		ltx := ledger.BuildRecordPayment(txID, f.Accounts(), s.omnibus, amount, ledger.SystemInitiated, nil)
		if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
			return err
		}

		return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
			events.New(events.TypePaymentReceived, s.now(), events.PaymentReceived{
				PaymentID: paymentID.String(), FacilityID: facilityID.String(), Amount: amount,
			}),
		})
	})
	if err != nil {
		return eventlog.Outcome[money.UsdCents]{}, motel.HandleSpanError(span, "persist payment", NewError(CodeTransientInfra, paymentID.String(), err))
	}

	return outcome, nil
}

// AllocatePayment runs the allocation algorithm (spec.md §4.6 steps
// 1-5) against a payment's unallocated remainder: load every open
// obligation for the facility, sort by (status priority, due_at,
// created_at, id), consume available funds greedily, post one
// ALLOCATE_PAYMENT transaction carrying every leg. Any amount left over
// once every open obligation is satisfied stays in payment-holding,
// already credited there by RecordPayment, so no further posting is
// needed for the uncovered remainder (spec.md §4.6 step 5).
func (s *Service) AllocatePayment(ctx context.Context, paymentID ids.PaymentID) error {
	ctx, span := motel.Start(ctx, "services.AllocatePayment")
	defer span.End()

	p, err := s.payments.Load(ctx, paymentID.String())
	if err != nil {
		return motel.HandleSpanError(span, "allocate payment", NewError(CodeNotFound, paymentID.String(), err))
	}

	available := p.Remaining()
	if available.IsZero() {
		return nil
	}

	paymentExpectedSeq := p.NextSequence()

	openIDs, err := s.obligationIndex.OpenObligationIDs(ctx, p.FacilityID().String())
	if err != nil {
		return motel.HandleSpanError(span, "allocate payment", NewError(CodeTransientInfra, paymentID.String(), err))
	}

	candidates := make([]*obligation.Obligation, 0, len(openIDs))

	for _, oid := range openIDs {
		o, err := s.obligations.Load(ctx, oid)
		if err != nil {
			return motel.HandleSpanError(span, "allocate payment", NewError(CodeTransientInfra, oid, err))
		}

		if o.IsTerminal() || o.Outstanding().IsZero() {
			continue
		}

		candidates = append(candidates, o)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		if a.Status().AllocationPriority() != b.Status().AllocationPriority() {
			return a.Status().AllocationPriority() < b.Status().AllocationPriority()
		}

		if !a.DueAt().Equal(b.DueAt()) {
			return a.DueAt().Before(b.DueAt())
		}

		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().Before(b.CreatedAt())
		}

		return a.ID().String() < b.ID().String()
	})

	f, err := s.facilities.Load(ctx, p.FacilityID().String())
	if err != nil {
		return motel.HandleSpanError(span, "allocate payment", NewError(CodeTransientInfra, p.FacilityID().String(), err))
	}

	var legs []ledger.AllocationLeg
	expectedSeqs := make(map[string]int, len(candidates))
	touched := make(map[string]*obligation.Obligation, len(candidates))
	allocEvents := []events.Event{}

	remaining := available

	for _, o := range candidates {
		if remaining.IsZero() {
			break
		}

		expectedSeqs[o.ID().String()] = o.NextSequence()

		allocationID := ids.NewPaymentAllocationID()

		allocated, err := o.AllocatePayment(allocationID, paymentID, remaining, s.now())
		if err != nil {
			return motel.HandleSpanError(span, "allocate payment", NewError(CodeInvariantViolation, o.ID().String(), err))
		}

		if !allocated.WasExecuted() {
			continue
		}

		amount := allocated.Value()
		remaining = remaining.Sub(amount)

		if _, err := p.RecordAllocation(allocationID, o.ID(), amount, s.now()); err != nil {
			return motel.HandleSpanError(span, "allocate payment", NewError(CodeInvariantViolation, paymentID.String(), err))
		}

		legs = append(legs, ledger.AllocationLeg{Account: bucketAccountFor(o), Amount: amount})
		touched[o.ID().String()] = o

		allocEvents = append(allocEvents, events.New(events.TypePaymentAllocated, s.now(), events.PaymentAllocated{
			AllocationID: allocationID.String(), PaymentID: paymentID.String(), ObligationID: o.ID().String(), Amount: amount,
		}))

		if o.IsTerminal() {
			allocEvents = append(allocEvents, events.New(events.TypeObligationCompleted, s.now(), events.ObligationCompleted{ObligationID: o.ID().String()}))
		}
	}

	if len(touched) == 0 {
		return nil
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
		if err := s.payments.Save(ctx, paymentID.String(), p, paymentExpectedSeq); err != nil {
			return err
		}

		for id, o := range touched {
			if err := s.obligations.Save(ctx, id, o, expectedSeqs[id]); err != nil {
				return err
			}
		}

		txID := "allocate-payment:" + paymentID.String()

		ltx := ledger.BuildAllocatePayment(txID, f.Accounts(), legs, ledger.SystemInitiated, nil)
		if err := s.ledger.PostTransactionInOp(ctx, op, ltx); err != nil && err != ledger.ErrDuplicateTx {
			return err
		}

		return s.outbox.PublishAllPersisted(ctx, op, allocEvents)
	})
	if err != nil {
		return motel.HandleSpanError(span, "persist allocation", NewError(CodeTransientInfra, paymentID.String(), err))
	}

	return nil
}

func bucketAccountFor(o *obligation.Obligation) ledger.ReceivableBucketAccount {
	isDisbursal, due, overdue, defaulted := o.CurrentBucketAccount()

	switch {
	case isDisbursal && overdue:
		return ledger.AccountDisbursedOverdue
	case isDisbursal && defaulted:
		return ledger.AccountDisbursedDefaulted
	case isDisbursal && due:
		return ledger.AccountDisbursedDue
	case overdue:
		return ledger.AccountInterestOverdue
	case defaulted:
		return ledger.AccountInterestDefaulted
	default:
		return ledger.AccountInterestDue
	}
}
