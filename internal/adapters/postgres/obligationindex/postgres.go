// Package obligationindex implements internal/services.ObligationIndex
// against a denormalized `obligation_index(facility_id, obligation_id,
// open)` table, rebuilt by replaying the outbox per spec.md §4.9. This
// is the one cross-aggregate query the allocation algorithm (spec.md
// §4.6) needs that a per-entity event stream can't answer on its own.
package obligationindex

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
	"github.com/tanakasan3/lana-bank-sub001/internal/services"
)

// Store is the postgres-backed ObligationIndex and its own outbox
// consumer.
type Store struct {
	pool *pgxpool.Pool
}

// New builds a Store over pool.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

var _ services.ObligationIndex = (*Store)(nil)

// OpenObligationIDs returns every non-terminal obligation owned by
// facilityID.
func (s *Store) OpenObligationIDs(ctx context.Context, facilityID string) ([]string, error) {
	query := sq.Select("obligation_id").
		From("obligation_index").
		Where(sq.Eq{"facility_id": facilityID, "open": true}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build open obligations query")
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query open obligations")
	}
	defer rows.Close()

	var out []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan obligation id")
		}

		out = append(out, id)
	}

	return out, rows.Err()
}

// Dispatch applies one outbox event to the index within the consumer's
// unit of work, satisfying outbox.Dispatch. Every other event type is
// ignored: the index only tracks an obligation's creation and its
// terminal completion.
func (s *Store) Dispatch(ctx context.Context, op outbox.UnitOfWork, sequenced outbox.Sequenced) error {
	switch sequenced.Event.Type {
	case events.TypeObligationCreated:
		var p events.ObligationCreated
		if err := events.Decode(sequenced.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode ObligationCreated")
		}

		insert := sq.Insert("obligation_index").
			Columns("facility_id", "obligation_id", "open").
			Values(p.FacilityID, p.ObligationID, true).
			Suffix("ON CONFLICT (obligation_id) DO NOTHING").
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err := insert.ToSql()
		if err != nil {
			return errors.Wrap(err, "build obligation index insert")
		}

		return op.Exec(ctx, sqlStr, args...)

	case events.TypeObligationCompleted:
		var p events.ObligationCompleted
		if err := events.Decode(sequenced.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode ObligationCompleted")
		}

		update := sq.Update("obligation_index").
			Set("open", false).
			Where(sq.Eq{"obligation_id": p.ObligationID}).
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err := update.ToSql()
		if err != nil {
			return errors.Wrap(err, "build obligation index update")
		}

		return op.Exec(ctx, sqlStr, args...)

	default:
		return nil
	}
}
