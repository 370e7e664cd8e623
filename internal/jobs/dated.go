package jobs

import (
	"context"
	"time"
)

// DatedJob is a persisted row with a fire_at timestamp, per spec.md §9
// Design Notes: "rather than in-process timers, dated jobs are persisted
// rows ... a scheduler polls or listens for due rows". This survives
// restarts, unlike an in-process timer.Timer.
type DatedJob struct {
	ID      string
	JobType string
	FireAt  time.Time
	Payload []byte
}

// DatedStore persists and retrieves due dated jobs.
type DatedStore interface {
	Spawn(ctx context.Context, job DatedJob) error
	// DueBefore returns every job with fire_at <= at, oldest first.
	DueBefore(ctx context.Context, at time.Time, limit int) ([]DatedJob, error)
	// Delete removes a job once it has fired, so the poller does not
	// re-deliver it (the handler itself must still be idempotent per
	// at-least-once delivery, since a crash between handling and delete
	// can redeliver).
	Delete(ctx context.Context, id string) error
}

// DatedPoller periodically loads due jobs and dispatches them via
// handle. It is itself registered as a Unique Runner so only one
// instance polls at a time.
type DatedPoller struct {
	Store        DatedStore
	Interval     time.Duration
	Now          func() time.Time
	Handle       func(ctx context.Context, job DatedJob) error
}

// NewDatedPollerRunner wraps a DatedPoller as a Runner suitable for
// Runtime.Spawn with Uniqueness: Unique.
func NewDatedPollerRunner(p *DatedPoller) Runner {
	now := p.Now
	if now == nil {
		now = time.Now
	}

	return RunnerFunc(func(ctx context.Context, shutdown <-chan struct{}) Result {
		select {
		case <-shutdown:
			return Result{Completion: Complete}
		default:
		}

		due, err := p.Store.DueBefore(ctx, now(), 50)
		if err != nil {
			return Result{Completion: RescheduleAt, At: now().Add(p.Interval), Err: err}
		}

		for _, job := range due {
			select {
			case <-shutdown:
				return Result{Completion: RescheduleNow}
			default:
			}

			if err := p.Handle(ctx, job); err != nil {
				// Leave the row in place; at-least-once delivery means the
				// next poll retries it.
				continue
			}

			_ = p.Store.Delete(ctx, job.ID)
		}

		if len(due) == 50 {
			return Result{Completion: RescheduleNow}
		}

		return Result{Completion: RescheduleAt, At: now().Add(p.Interval)}
	})
}
