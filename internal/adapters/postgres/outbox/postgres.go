// Package outbox is the postgres-backed implementation of
// internal/outbox: a single bigserial-keyed table holding every
// published event, polled by consumers for new rows past their
// checkpoint. Grounded on the teacher's table-per-concern convention
// (common/mpostgres.Table) generalized to an append-only queue.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
)

// Store implements outbox.Writer and outbox.Reader against a
// `outbox_events(sequence bigserial primary key, event_type, payload
// jsonb, recorded_at)` table, per spec.md §6 persisted-state layout.
type Store struct {
	pool         *pgxpool.Pool
	logger       mlog.Logger
	pollInterval time.Duration
}

// New builds a postgres-backed outbox store. pollInterval governs how
// often ListenPersisted re-checks for new rows once it has drained the
// current backlog — the durable stream has no LISTEN/NOTIFY wake-up in
// this deployment, so it degrades to polling, which is sufficient given
// the job runtime's cooperative suspension model (spec.md §5).
func New(pool *pgxpool.Pool, logger mlog.Logger, pollInterval time.Duration) *Store {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Store{pool: pool, logger: logger, pollInterval: pollInterval}
}

var _ outbox.Writer = (*Store)(nil)
var _ outbox.Reader = (*Store)(nil)

// PublishAllPersisted inserts evs as new outbox rows within op, so the
// publish commits atomically with whatever entity write triggered it.
func (s *Store) PublishAllPersisted(ctx context.Context, op outbox.UnitOfWork, evs []events.Event) error {
	for _, ev := range evs {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}

		insert := sq.Insert("outbox_events").
			Columns("event_type", "payload", "recorded_at").
			Values(string(ev.Type), payload, ev.OccurredAt).
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err := insert.ToSql()
		if err != nil {
			return err
		}

		if err := op.Exec(ctx, sqlStr, args...); err != nil {
			return err
		}
	}

	return nil
}

// ListenPersisted streams every row with sequence > from in order,
// polling for new rows once the backlog is drained, until ctx is
// canceled.
func (s *Store) ListenPersisted(ctx context.Context, from *outbox.Sequence) (<-chan outbox.Sequenced, error) {
	out := make(chan outbox.Sequenced)

	var cursor outbox.Sequence
	if from != nil {
		cursor = *from
	}

	go func() {
		defer close(out)

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			batch, err := s.fetchAfter(ctx, cursor, 100)
			if err != nil {
				s.logger.Errorf("outbox: poll failed: %v", err)
			} else {
				for _, sq := range batch {
					select {
					case out <- sq:
						cursor = sq.Sequence
					case <-ctx.Done():
						return
					}
				}
			}

			if len(batch) == 100 {
				continue // more backlog, don't wait for the ticker
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out, nil
}

// ConsumerStateStore implements outbox.ConsumerStateStore against a
// `outbox_consumer_state(job_type PRIMARY KEY, last_sequence)` table.
type ConsumerStateStore struct {
	pool *pgxpool.Pool
}

// NewConsumerStateStore builds a postgres-backed ConsumerStateStore.
func NewConsumerStateStore(pool *pgxpool.Pool) *ConsumerStateStore {
	return &ConsumerStateStore{pool: pool}
}

var _ outbox.ConsumerStateStore = (*ConsumerStateStore)(nil)

// Load returns the consumer's last processed sequence, or zero if the
// consumer has never checkpointed (rebuild-from-zero per spec.md §9).
func (s *ConsumerStateStore) Load(ctx context.Context, jobType string) (outbox.ConsumerState, error) {
	query := sq.Select("last_sequence").
		From("outbox_consumer_state").
		Where(sq.Eq{"job_type": jobType}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return outbox.ConsumerState{}, err
	}

	var lastSequence int64

	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&lastSequence)
	if err != nil {
		if err == pgx.ErrNoRows {
			return outbox.ConsumerState{JobType: jobType, LastSequence: 0}, nil
		}

		return outbox.ConsumerState{}, err
	}

	return outbox.ConsumerState{JobType: jobType, LastSequence: outbox.Sequence(lastSequence)}, nil
}

// Save upserts state within op, so the checkpoint advances atomically
// with the consumer's side effect.
func (s *ConsumerStateStore) Save(ctx context.Context, op outbox.UnitOfWork, state outbox.ConsumerState) error {
	insert := sq.Insert("outbox_consumer_state").
		Columns("job_type", "last_sequence").
		Values(state.JobType, int64(state.LastSequence)).
		Suffix("ON CONFLICT (job_type) DO UPDATE SET last_sequence = EXCLUDED.last_sequence").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := insert.ToSql()
	if err != nil {
		return err
	}

	return op.Exec(ctx, sqlStr, args...)
}

func (s *Store) fetchAfter(ctx context.Context, after outbox.Sequence, limit int) ([]outbox.Sequenced, error) {
	query := sq.Select("sequence", "event_type", "payload", "recorded_at").
		From("outbox_events").
		Where(sq.Gt{"sequence": int64(after)}).
		OrderBy("sequence ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []outbox.Sequenced

	for rows.Next() {
		var (
			sequence   int64
			eventType  string
			payload    []byte
			recordedAt time.Time
		)

		if err := rows.Scan(&sequence, &eventType, &payload, &recordedAt); err != nil {
			return nil, err
		}

		var ev events.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, err
		}

		out = append(out, outbox.Sequenced{Sequence: outbox.Sequence(sequence), Event: ev})
	}

	return out, rows.Err()
}
