// Package facilityindex tracks every currently-active facility id in a
// `facility_index(facility_id PRIMARY KEY, cvl_ratio_hundredths BIGINT)`
// table, rebuilt from the outbox, so the collateralization engine can
// sweep every active facility on an ephemeral price tick without
// replaying every facility stream in the system — the same rationale as
// internal/adapters/postgres/obligationindex. cvl_ratio_hundredths holds
// the facility's last-published collateralization ratio (at 1/100th of a
// percentage point, money.CVLPct.Hundredths) so a price tick can page
// through the worst-collateralized facilities first, per spec.md §4.8.
// It is NULL until the facility's first FacilityCollateralizationChanged
// and sorts last (treated as maximally well collateralized) until then.
package facilityindex

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
)

// Store is the postgres-backed active-facility index and its own outbox
// consumer.
type Store struct {
	pool *pgxpool.Pool
}

// New builds a Store over pool.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// ActiveFacilityIDsPage returns one page of active facility ids ordered
// by collateralization ratio ascending (worst collateralized first, per
// spec.md §4.8), ties broken by facility_id for a stable page boundary.
// Facilities never yet evaluated (NULL ratio) sort last.
func (s *Store) ActiveFacilityIDsPage(ctx context.Context, offset, limit int) ([]string, error) {
	query := sq.Select("facility_id").From("facility_index").
		OrderBy("cvl_ratio_hundredths ASC NULLS LAST", "facility_id ASC").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build active facility page query")
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query active facilities page")
	}
	defer rows.Close()

	var out []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan facility id")
		}

		out = append(out, id)
	}

	return out, rows.Err()
}

// IsActive reports whether facilityID is currently in the active index.
func (s *Store) IsActive(ctx context.Context, facilityID string) (bool, error) {
	query := sq.Select("1").From("facility_index").Where(sq.Eq{"facility_id": facilityID}).PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return false, errors.Wrap(err, "build facility index membership query")
	}

	var found int
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&found)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}

		return false, errors.Wrap(err, "query facility index membership")
	}

	return true, nil
}

// Dispatch applies one outbox event to the index, satisfying
// outbox.Dispatch.
func (s *Store) Dispatch(ctx context.Context, op outbox.UnitOfWork, sequenced outbox.Sequenced) error {
	switch sequenced.Event.Type {
	case events.TypeFacilityActivated:
		var p events.FacilityActivated
		if err := events.Decode(sequenced.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode FacilityActivated")
		}

		insert := sq.Insert("facility_index").
			Columns("facility_id").
			Values(p.FacilityID).
			Suffix("ON CONFLICT (facility_id) DO NOTHING").
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err := insert.ToSql()
		if err != nil {
			return errors.Wrap(err, "build facility index insert")
		}

		return op.Exec(ctx, sqlStr, args...)

	case events.TypeFacilityCompleted:
		var p events.FacilityCompleted
		if err := events.Decode(sequenced.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode FacilityCompleted")
		}

		del := sq.Delete("facility_index").
			Where(sq.Eq{"facility_id": p.FacilityID}).
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err := del.ToSql()
		if err != nil {
			return errors.Wrap(err, "build facility index delete")
		}

		return op.Exec(ctx, sqlStr, args...)

	case events.TypeFacilityCollateralizationChanged:
		var p events.FacilityCollateralizationChanged
		if err := events.Decode(sequenced.Event.Payload, &p); err != nil {
			return errors.Wrap(err, "decode FacilityCollateralizationChanged")
		}

		update := sq.Update("facility_index").
			Set("cvl_ratio_hundredths", p.Ratio.Hundredths()).
			Where(sq.Eq{"facility_id": p.FacilityID}).
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err := update.ToSql()
		if err != nil {
			return errors.Wrap(err, "build facility index ratio update")
		}

		return op.Exec(ctx, sqlStr, args...)

	default:
		return nil
	}
}
