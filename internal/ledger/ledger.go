package ledger

import (
	"context"

	"github.com/tanakasan3/lana-bank-sub001/internal/money"
)

// Balances is the structured view returned by GetCreditFacilityBalance,
// per spec.md §4.2. It is a read helper for recomputation, never an
// authoritative source of control-flow truth (the event log is).
type Balances struct {
	DisbursedNotYetDue  money.UsdCents
	DisbursedDue        money.UsdCents
	DisbursedOverdue    money.UsdCents
	DisbursedDefaulted  money.UsdCents
	InterestNotYetDue   money.UsdCents
	InterestDue         money.UsdCents
	InterestOverdue     money.UsdCents
	InterestDefaulted   money.UsdCents
	Collateral          money.Satoshis
	UncoveredOutstanding money.UsdCents
	PaymentHolding       money.UsdCents
}

// OutstandingDisbursed sums every disbursed-receivable rung still owed.
func (b Balances) OutstandingDisbursed() money.UsdCents {
	return b.DisbursedNotYetDue.Add(b.DisbursedDue).Add(b.DisbursedOverdue).Add(b.DisbursedDefaulted)
}

// OutstandingInterest sums every interest-receivable rung still owed.
func (b Balances) OutstandingInterest() money.UsdCents {
	return b.InterestNotYetDue.Add(b.InterestDue).Add(b.InterestOverdue).Add(b.InterestDefaulted)
}

// TotalOutstanding is the full amount owed net of uncovered outstanding
// already credited to the payment-holding account.
func (b Balances) TotalOutstanding() money.UsdCents {
	total := b.OutstandingDisbursed().Add(b.OutstandingInterest())
	if total.LessThan(b.UncoveredOutstanding) {
		return money.ZeroUsdCents
	}

	return total.Sub(b.UncoveredOutstanding)
}

// IsFullyRepaid reports whether the facility has zero of every
// receivable rung and no uncovered outstanding — the completion
// condition from spec.md §3 invariants.
func (b Balances) IsFullyRepaid() bool {
	return b.OutstandingDisbursed().IsZero() && b.OutstandingInterest().IsZero() && b.UncoveredOutstanding.IsZero()
}

// Adapter is the ledger contract from spec.md §4.2.
type Adapter interface {
	// PostTransaction posts tx, opening its own unit of work.
	// Re-posting the same TxID is tolerated: it returns ErrDuplicateTx,
	// which idempotent callers treat as success.
	PostTransaction(ctx context.Context, tx Transaction) error

	// PostTransactionInOp posts tx as part of the caller-supplied unit
	// of work op, so the posting commits atomically with the entity
	// event-stream write it accompanies.
	PostTransactionInOp(ctx context.Context, op UnitOfWork, tx Transaction) error

	// GetCreditFacilityBalance returns the current balance view for the
	// given account set.
	GetCreditFacilityBalance(ctx context.Context, accts AccountSet) (Balances, error)
}

// UnitOfWork is the caller's transactional scope (typically a
// *pgx.Tx wrapped by internal/eventlog), kept opaque to this package so
// ledger does not import the eventlog storage layer directly.
type UnitOfWork interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Rows is the minimal row-scanning contract PostgresAdapter needs,
// satisfied by pgx.Rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

// ErrDuplicateTx is returned when tx.TxID has already been posted; the
// caller's idempotency discipline means this is not itself an error
// worth surfacing up the stack.
var ErrDuplicateTx = &duplicateTxError{}

type duplicateTxError struct{}

func (*duplicateTxError) Error() string { return "ledger: account_set_exists/duplicate_tx" }
