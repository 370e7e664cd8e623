// Package walletindex answers "which facility does this custody wallet
// belong to" for inbound WalletBalanceUpdated syncs — a denormalized
// `wallet_index(wallet_id PRIMARY KEY, facility_id)` table rebuilt by
// replaying the outbox's PendingCreditFacilityCreated events, the same
// pattern as internal/adapters/postgres/obligationindex.
package walletindex

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
)

// Store is the postgres-backed wallet-to-facility index and its own
// outbox consumer.
type Store struct {
	pool *pgxpool.Pool
}

// New builds a Store over pool.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// FacilityIDForWallet returns the facility id a custody wallet is
// attached to, or ok=false if the wallet is unknown.
func (s *Store) FacilityIDForWallet(ctx context.Context, walletID string) (string, bool, error) {
	query := sq.Select("facility_id").
		From("wallet_index").
		Where(sq.Eq{"wallet_id": walletID}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return "", false, errors.Wrap(err, "build wallet index query")
	}

	var facilityID string

	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&facilityID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}

		return "", false, errors.Wrap(err, "query wallet index")
	}

	return facilityID, true, nil
}

// Dispatch applies one outbox event to the index, satisfying
// outbox.Dispatch. Only PendingCreditFacilityCreated events carrying a
// wallet id register a mapping.
func (s *Store) Dispatch(ctx context.Context, op outbox.UnitOfWork, sequenced outbox.Sequenced) error {
	if sequenced.Event.Type != events.TypePendingCreditFacilityCreated {
		return nil
	}

	var p events.PendingCreditFacilityCreated
	if err := events.Decode(sequenced.Event.Payload, &p); err != nil {
		return errors.Wrap(err, "decode PendingCreditFacilityCreated")
	}

	if p.WalletID == "" {
		return nil
	}

	insert := sq.Insert("wallet_index").
		Columns("wallet_id", "facility_id").
		Values(p.WalletID, p.PendingFacilityID).
		Suffix("ON CONFLICT (wallet_id) DO NOTHING").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := insert.ToSql()
	if err != nil {
		return errors.Wrap(err, "build wallet index insert")
	}

	return op.Exec(ctx, sqlStr, args...)
}
