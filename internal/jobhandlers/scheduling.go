// Package jobhandlers wires internal/jobs and internal/outbox.Dispatch
// onto internal/services, turning the use-case operations into the
// background work the credit core runs continuously: delinquency
// progression scheduling, the collateralization engine, and the payment
// allocator.
package jobhandlers

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/obligation"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/jobs"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
)

const (
	// JobTypeObligationScheduling names the outbox-consumer job that
	// spawns the dated jobs below.
	JobTypeObligationScheduling = "obligation-scheduling"

	JobTypeObligationDue       = "obligation-due"
	JobTypeObligationOverdue   = "obligation-overdue"
	JobTypeObligationDefaulted = "obligation-defaulted"
)

// ObligationScheduler consumes ObligationCreated events and spawns one
// dated job per non-nil transition instant on the obligation's date
// ladder (terms.Terms.ObligationDates), per spec.md §9 Design Notes:
// dated jobs are persisted rows a poller picks up when due, rather than
// in-process timers that would not survive a restart.
//
// Spawn is idempotent on job id (deterministic: job type + obligation
// id), so a duplicate delivery of the same ObligationCreated event —
// expected under at-least-once outbox delivery — is harmless.
type ObligationScheduler struct {
	Obligations *eventlog.Repo[*obligation.Obligation]
	Dated       interface {
		Spawn(ctx context.Context, job jobs.DatedJob) error
	}
}

var _ outbox.Dispatch = (*ObligationScheduler)(nil).Dispatch

// Dispatch implements outbox.Dispatch.
func (s *ObligationScheduler) Dispatch(ctx context.Context, op outbox.UnitOfWork, sq outbox.Sequenced) error {
	if sq.Event.Type != events.TypeObligationCreated {
		return nil
	}

	var p events.ObligationCreated
	if err := events.Decode(sq.Event.Payload, &p); err != nil {
		return errors.Wrap(err, "decode ObligationCreated")
	}

	if err := s.Dated.Spawn(ctx, jobs.DatedJob{
		ID:      JobTypeObligationDue + ":" + p.ObligationID,
		JobType: JobTypeObligationDue,
		FireAt:  p.DueAt,
		Payload: []byte(p.ObligationID),
	}); err != nil {
		return errors.Wrap(err, "spawn obligation due job")
	}

	// OverdueAt/DefaultedAt aren't carried on the wire event (they are
	// derived once from terms.Terms.ObligationDates at creation time and
	// no other consumer needs them), so this loads them back off the
	// obligation aggregate itself.
	o, err := s.Obligations.Load(ctx, p.ObligationID)
	if err != nil {
		return errors.Wrap(err, "load obligation for scheduling")
	}

	if overdueAt := o.OverdueAt(); overdueAt != nil {
		if err := s.Dated.Spawn(ctx, jobs.DatedJob{
			ID:      JobTypeObligationOverdue + ":" + p.ObligationID,
			JobType: JobTypeObligationOverdue,
			FireAt:  *overdueAt,
			Payload: []byte(p.ObligationID),
		}); err != nil {
			return errors.Wrap(err, "spawn obligation overdue job")
		}
	}

	if defaultedAt := o.DefaultedAt(); defaultedAt != nil {
		if err := s.Dated.Spawn(ctx, jobs.DatedJob{
			ID:      JobTypeObligationDefaulted + ":" + p.ObligationID,
			JobType: JobTypeObligationDefaulted,
			FireAt:  *defaultedAt,
			Payload: []byte(p.ObligationID),
		}); err != nil {
			return errors.Wrap(err, "spawn obligation defaulted job")
		}
	}

	return nil
}

// ParseObligationID converts a DatedJob's raw payload back into a typed
// id, shared by the dated-job Handlers in obligation_pollers.go.
func ParseObligationID(payload []byte) (ids.ObligationID, error) {
	return ids.ParseObligationID(string(payload))
}
