// Package pendingindex tracks every not-yet-completed pending facility
// id in a `pending_index(pending_id PRIMARY KEY, cvl_ratio_hundredths
// BIGINT)` table, rebuilt from the outbox, so the collateralization
// engine can sweep every pending facility on an ephemeral price tick
// without replaying every pending stream in the system — the same
// rationale as internal/adapters/postgres/facilityindex.
// cvl_ratio_hundredths mirrors facilityindex's: the last-published
// ratio, NULL (sorting last) until first evaluated.
package pendingindex

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
)

// Store is the postgres-backed non-completed-pending index and its own
// outbox consumer.
type Store struct {
	pool *pgxpool.Pool
}

// New builds a Store over pool.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// NonCompletedPendingIDsPage returns one page of non-completed pending
// ids ordered by collateralization ratio ascending (worst collateralized
// first, per spec.md §4.8), ties broken by pending_id for a stable page
// boundary. Pendings never yet evaluated (NULL ratio) sort last.
func (s *Store) NonCompletedPendingIDsPage(ctx context.Context, offset, limit int) ([]string, error) {
	query := sq.Select("pending_id").From("pending_index").
		OrderBy("cvl_ratio_hundredths ASC NULLS LAST", "pending_id ASC").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build pending index page query")
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query pending index page")
	}
	defer rows.Close()

	var out []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan pending id")
		}

		out = append(out, id)
	}

	return out, rows.Err()
}

// IsPending reports whether pendingID is currently in the non-completed
// pending index.
func (s *Store) IsPending(ctx context.Context, pendingID string) (bool, error) {
	query := sq.Select("1").From("pending_index").Where(sq.Eq{"pending_id": pendingID}).PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return false, errors.Wrap(err, "build pending index membership query")
	}

	var found int
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&found)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}

		return false, errors.Wrap(err, "query pending index membership")
	}

	return true, nil
}

// Dispatch applies one outbox event to the index, satisfying
// outbox.Dispatch.
func (s *Store) Dispatch(ctx context.Context, op outbox.UnitOfWork, sequenced outbox.Sequenced) error {
	switch sequenced.Event.Type {
	case events.TypePendingCreditFacilityCreated:
		var p events.PendingCreditFacilityCreated
		if err := events.Decode(sequenced.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode PendingCreditFacilityCreated")
		}

		insert := sq.Insert("pending_index").
			Columns("pending_id").
			Values(p.PendingFacilityID).
			Suffix("ON CONFLICT (pending_id) DO NOTHING").
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err := insert.ToSql()
		if err != nil {
			return errors.Wrap(err, "build pending index insert")
		}

		return op.Exec(ctx, sqlStr, args...)

	case events.TypePendingCreditFacilityCompleted:
		var p events.PendingCreditFacilityCompleted
		if err := events.Decode(sequenced.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode PendingCreditFacilityCompleted")
		}

		del := sq.Delete("pending_index").
			Where(sq.Eq{"pending_id": p.PendingFacilityID}).
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err := del.ToSql()
		if err != nil {
			return errors.Wrap(err, "build pending index delete")
		}

		return op.Exec(ctx, sqlStr, args...)

	case events.TypePendingCreditFacilityCollateralizationChanged:
		var p events.PendingCreditFacilityCollateralizationChanged
		if err := events.Decode(sequenced.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode PendingCreditFacilityCollateralizationChanged")
		}

		update := sq.Update("pending_index").
			Set("cvl_ratio_hundredths", p.Ratio.Hundredths()).
			Where(sq.Eq{"pending_id": p.PendingFacilityID}).
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err := update.ToSql()
		if err != nil {
			return errors.Wrap(err, "build pending index ratio update")
		}

		return op.Exec(ctx, sqlStr, args...)

	default:
		return nil
	}
}
