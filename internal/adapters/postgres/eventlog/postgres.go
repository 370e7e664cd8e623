// Package eventlog is the postgres-backed implementation of
// internal/eventlog.EventStore, grounded on the teacher's
// common/mpostgres table-helper convention and the same
// squirrel-over-pgx style as internal/adapters/postgres/ledger. One
// Store instance per aggregate kind, sharing a single
// `entity_events(kind, entity_id, sequence, event_type, payload,
// recorded_at)` table keyed by (kind, entity_id, sequence), per
// spec.md §4.3 "optimistic concurrency via a sequence compound key."
package eventlog

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
)

// Store implements eventlog.EventStore for a single aggregate kind.
type Store struct {
	pool *pgxpool.Pool
	kind string
}

// New builds a postgres-backed EventStore scoped to kind (e.g.
// "proposal", "obligation"). Construct one per aggregate kind in
// internal/bootstrap.
func New(pool *pgxpool.Pool, kind string) *Store {
	return &Store{pool: pool, kind: kind}
}

var _ eventlog.EventStore = (*Store)(nil)

// Load returns every persisted event for id in sequence order.
func (s *Store) Load(ctx context.Context, id string) ([]eventlog.Event, error) {
	query := sq.Select("sequence", "event_type", "payload", "recorded_at").
		From("entity_events").
		Where(sq.Eq{"kind": s.kind, "entity_id": id}).
		OrderBy("sequence ASC").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build event load query")
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var out []eventlog.Event

	for rows.Next() {
		var (
			sequence   int
			eventType  string
			payload    []byte
			recordedAt time.Time
		)

		if err := rows.Scan(&sequence, &eventType, &payload, &recordedAt); err != nil {
			return nil, errors.Wrap(err, "scan event row")
		}

		out = append(out, eventlog.Event{
			EntityID: id, Sequence: sequence, EventType: eventType,
			Payload: payload, RecordedAt: recordedAt,
		})
	}

	return out, rows.Err()
}

// Append persists newEvents, each under its own (kind, entity_id,
// sequence) row. A unique-constraint violation on that compound key
// means another writer already advanced the stream past expectedNextSeq,
// reported as eventlog.ErrConcurrentModification so the caller retries
// per spec.md §9.
func (s *Store) Append(ctx context.Context, id string, expectedNextSeq int, newEvents []eventlog.Event) error {
	if len(newEvents) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin event append tx")
	}
	defer tx.Rollback(ctx)

	insert := sq.Insert("entity_events").
		Columns("kind", "entity_id", "sequence", "event_type", "payload", "recorded_at")

	for _, ev := range newEvents {
		insert = insert.Values(s.kind, id, ev.Sequence, ev.EventType, []byte(ev.Payload), ev.RecordedAt)
	}

	sqlStr, args, err := insert.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return errors.Wrap(err, "build event insert")
	}

	tag, err := tx.Exec(ctx, sqlStr, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return eventlog.ErrConcurrentModification
		}

		return errors.Wrap(err, "insert events")
	}

	if int(tag.RowsAffected()) != len(newEvents) {
		return eventlog.ErrConcurrentModification
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit event append")
	}

	return nil
}
