package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	ledgerpg "github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/jobs"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
)

// NewOutboxConsumerRunner builds a jobs.Runner that drives one outbox
// consumer: it resumes from its last checkpoint, applies dispatch to
// every event in order, and advances the checkpoint in the same
// transaction as the dispatch's side effect, per spec.md §4.3 "consumers
// store last processed sequence in their own job state and commit it in
// the same transaction as their side-effects." Ephemeral events (tagged
// with Sequence 0, per internal/adapters/redis) never advance the
// checkpoint, since they carry no durable position to resume from.
//
// Intended to back a Unique job: Run blocks internally, processing
// events as they arrive, until shutdown fires. ephemeral, if non-nil, is
// a subscribe function like internal/adapters/redis.PriceTicker.Subscribe
// — an in-memory channel with no durable position of its own.
func NewOutboxConsumerRunner(jobType string, durable outbox.Reader, ephemeral func(ctx context.Context) (<-chan outbox.Sequenced, error), state outbox.ConsumerStateStore, pool *pgxpool.Pool, dispatch outbox.Dispatch, logger mlog.Logger) jobs.Runner {
	return jobs.RunnerFunc(func(ctx context.Context, shutdown <-chan struct{}) jobs.Result {
		cs, err := state.Load(ctx, jobType)
		if err != nil {
			return jobs.Result{Completion: jobs.RescheduleAt, At: time.Now().Add(5 * time.Second), Err: err}
		}

		from := cs.LastSequence

		durableCh, err := durable.ListenPersisted(ctx, &from)
		if err != nil {
			return jobs.Result{Completion: jobs.RescheduleAt, At: time.Now().Add(5 * time.Second), Err: err}
		}

		stream := durableCh

		if ephemeral != nil {
			ephemeralCh, err := ephemeral(ctx)
			if err != nil {
				return jobs.Result{Completion: jobs.RescheduleAt, At: time.Now().Add(5 * time.Second), Err: err}
			}

			stream = outbox.Merge(ctx, durableCh, ephemeralCh)
		}

		for {
			select {
			case <-shutdown:
				return jobs.Result{Completion: jobs.Complete}
			case sq, ok := <-stream:
				if !ok {
					return jobs.Result{Completion: jobs.Complete}
				}

				if err := dispatchOne(ctx, pool, state, jobType, dispatch, sq); err != nil {
					logger.Errorf("jobs: %s dispatch of sequence %d failed: %v", jobType, sq.Sequence, err)
				}
			}
		}
	})
}

func dispatchOne(ctx context.Context, pool *pgxpool.Pool, state outbox.ConsumerStateStore, jobType string, dispatch outbox.Dispatch, sq outbox.Sequenced) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	op := ledgerpg.NewUnitOfWork(tx)

	if err := dispatch(ctx, op, sq); err != nil {
		return err
	}

	if sq.Sequence > 0 {
		if err := state.Save(ctx, op, outbox.ConsumerState{JobType: jobType, LastSequence: sq.Sequence}); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
