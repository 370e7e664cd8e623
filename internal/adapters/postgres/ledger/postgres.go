// Package ledger adapts internal/ledger.Adapter onto Postgres, grounded
// on the teacher's postgres adapter style (squirrel-built SQL executed
// over a pgxpool.Pool), e.g.
// components/ledger/internal/adapters/database/postgres/account.postgresql.go.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/motel"
)

// Adapter posts balanced transactions and maintains running per-account
// balances in three tables:
//   ledger_transactions(tx_id PRIMARY KEY, template, initiated_by, metadata, recorded_at)
//   ledger_entries(tx_id, account_id, currency, layer, direction, amount)
//   ledger_account_balances(account_id, currency, layer, balance)
type Adapter struct {
	pool   *pgxpool.Pool
	logger mlog.Logger
}

// New builds a postgres-backed ledger.Adapter.
func New(pool *pgxpool.Pool, logger mlog.Logger) *Adapter {
	return &Adapter{pool: pool, logger: logger}
}

var _ ledger.Adapter = (*Adapter)(nil)

// PostTransaction opens its own transaction and delegates to the
// in-op variant, satisfying spec.md §4.2's two-entrypoint contract.
func (a *Adapter) PostTransaction(ctx context.Context, tx ledger.Transaction) error {
	ctx, span := motel.Start(ctx, "ledger.post_transaction")
	defer span.End()

	pgTx, err := a.pool.Begin(ctx)
	if err != nil {
		return motel.HandleSpanError(span, "begin tx", err)
	}
	defer pgTx.Rollback(ctx)

	if err := a.postWithin(ctx, pgTx, tx); err != nil {
		return motel.HandleSpanError(span, "post transaction", err)
	}

	if err := pgTx.Commit(ctx); err != nil {
		return motel.HandleSpanError(span, "commit tx", err)
	}

	return nil
}

// PostTransactionInOp posts within a caller-supplied *pgx.Tx-backed
// UnitOfWork, so the ledger posting commits atomically with the
// entity-event-stream write that triggered it.
func (a *Adapter) PostTransactionInOp(ctx context.Context, op ledger.UnitOfWork, tx ledger.Transaction) error {
	pgTx, ok := op.(pgxUnitOfWork)
	if !ok {
		return fmt.Errorf("ledger: unsupported unit of work type %T", op)
	}

	return a.postWithin(ctx, pgTx.tx, tx)
}

func (a *Adapter) postWithin(ctx context.Context, pgTx pgx.Tx, tx ledger.Transaction) error {
	if err := tx.Balance(); err != nil {
		a.logger.Errorf("ledger: refusing unbalanced posting %s: %v", tx.TxID, err)
		return err
	}

	metaJSON, err := json.Marshal(tx.Metadata)
	if err != nil {
		return errors.Wrap(err, "marshal metadata")
	}

	insertTx := sq.Insert("ledger_transactions").
		Columns("tx_id", "template", "initiated_by", "metadata").
		Values(tx.TxID, string(tx.Template), string(tx.InitiatedBy), metaJSON).
		Suffix("ON CONFLICT (tx_id) DO NOTHING").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := insertTx.ToSql()
	if err != nil {
		return errors.Wrap(err, "build transaction insert")
	}

	tag, err := pgTx.Exec(ctx, sqlStr, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ledger.ErrDuplicateTx
		}

		return errors.Wrap(err, "insert transaction")
	}

	if tag.RowsAffected() == 0 {
		// Already posted under this tx_id: idempotent no-op per spec.md §4.2.
		return ledger.ErrDuplicateTx
	}

	for _, leg := range tx.Legs {
		entryInsert := sq.Insert("ledger_entries").
			Columns("tx_id", "account_id", "currency", "layer", "direction", "amount").
			Values(tx.TxID, string(leg.Account), string(leg.Currency), string(leg.Layer), string(leg.Direction), leg.Amount).
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err := entryInsert.ToSql()
		if err != nil {
			return errors.Wrap(err, "build entry insert")
		}

		if _, err := pgTx.Exec(ctx, sqlStr, args...); err != nil {
			return errors.Wrap(err, "insert entry")
		}

		delta := int64(leg.Amount)
		if leg.Direction == ledger.Credit {
			delta = -delta
		}

		upsert := sq.Insert("ledger_account_balances").
			Columns("account_id", "currency", "layer", "balance").
			Values(string(leg.Account), string(leg.Currency), string(leg.Layer), delta).
			Suffix("ON CONFLICT (account_id, currency, layer) DO UPDATE SET balance = ledger_account_balances.balance + EXCLUDED.balance").
			PlaceholderFormat(sq.Dollar)

		sqlStr, args, err = upsert.ToSql()
		if err != nil {
			return errors.Wrap(err, "build balance upsert")
		}

		if _, err := pgTx.Exec(ctx, sqlStr, args...); err != nil {
			return errors.Wrap(err, "upsert balance")
		}
	}

	return nil
}

// pgxUnitOfWork adapts a live *pgx.Tx to ledger.UnitOfWork, constructed by
// internal/adapters/postgres helpers that open the outer transaction.
type pgxUnitOfWork struct {
	tx pgx.Tx
}

// NewUnitOfWork wraps a live pgx.Tx for use as a ledger.UnitOfWork.
func NewUnitOfWork(tx pgx.Tx) ledger.UnitOfWork { return pgxUnitOfWork{tx: tx} }

func (u pgxUnitOfWork) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := u.tx.Exec(ctx, sql, args...)
	return err
}

func (u pgxUnitOfWork) Query(ctx context.Context, sql string, args ...any) (ledger.Rows, error) {
	rows, err := u.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	return rows, nil
}
