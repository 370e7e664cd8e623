package jobhandlers

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/jobs"
)

// obligationHandler builds a jobs.DatedPoller.Handle closure that parses
// the job's obligation id and calls record, ignoring AlreadyApplied
// outcomes — the poller's at-least-once delivery means a job can be
// handled more than once if the process dies between Handle and Delete.
// The three pollers share one dated store, so a job of another type is
// returned as an error and left in place for the poller of that type.
func obligationHandler(jobType string, record func(ctx context.Context, id string) error) func(ctx context.Context, job jobs.DatedJob) error {
	return func(ctx context.Context, job jobs.DatedJob) error {
		if job.JobType != jobType {
			return errors.Errorf("dated job %s is of type %s, not %s", job.ID, job.JobType, jobType)
		}

		id, err := ParseObligationID(job.Payload)
		if err != nil {
			return errors.Wrap(err, "parse obligation id from dated job payload")
		}

		return record(ctx, id.String())
	}
}

// NewObligationDuePoller builds the Runner that fires each obligation's
// NotYetDue -> Due transition at its due_at.
func NewObligationDuePoller(store jobs.DatedStore, now func() time.Time, record func(ctx context.Context, id string) error) jobs.Runner {
	return jobs.NewDatedPollerRunner(&jobs.DatedPoller{
		Store:    store,
		Interval: 30 * time.Second,
		Now:      now,
		Handle:   obligationHandler(JobTypeObligationDue, record),
	})
}

// NewObligationOverduePoller builds the Runner that fires each
// obligation's Due -> Overdue transition at its overdue_at.
func NewObligationOverduePoller(store jobs.DatedStore, now func() time.Time, record func(ctx context.Context, id string) error) jobs.Runner {
	return jobs.NewDatedPollerRunner(&jobs.DatedPoller{
		Store:    store,
		Interval: 30 * time.Second,
		Now:      now,
		Handle:   obligationHandler(JobTypeObligationOverdue, record),
	})
}

// NewObligationDefaultedPoller builds the Runner that fires each
// obligation's Overdue -> Defaulted transition at its defaulted_at.
func NewObligationDefaultedPoller(store jobs.DatedStore, now func() time.Time, record func(ctx context.Context, id string) error) jobs.Runner {
	return jobs.NewDatedPollerRunner(&jobs.DatedPoller{
		Store:    store,
		Interval: 30 * time.Second,
		Now:      now,
		Handle:   obligationHandler(JobTypeObligationDefaulted, record),
	})
}
