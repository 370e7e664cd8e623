// Package postgres wires the per-concern postgres adapters
// (internal/adapters/postgres/ledger, .../outbox, .../eventlog,
// .../obligationindex) into the single cross-cutting unit of work
// internal/services.Transactor needs: one *pgx.Tx backing an entity's
// event-stream write, its ledger posting, and its outbox publish.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	ledgerpg "github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
)

// Transactor implements services.Transactor over a *pgxpool.Pool.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor builds a Transactor over pool.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithinTransaction opens one *pgx.Tx and hands fn a ledger.UnitOfWork
// wrapping it. That same value is structurally an outbox.UnitOfWork too
// (Exec is all outbox needs), so command methods pass it to both
// ledger.PostTransactionInOp and outbox.PublishAllPersisted without an
// adapter.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, op ledger.UnitOfWork) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, ledgerpg.NewUnitOfWork(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
