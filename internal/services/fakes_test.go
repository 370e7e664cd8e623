package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
)

// memoryEventStore is an in-memory eventlog.EventStore, one slice of
// events per entity, enforcing the same optimistic-concurrency check a
// real table-backed store would under a unique (entity_id, sequence)
// constraint.
type memoryEventStore struct {
	mu     sync.Mutex
	byID   map[string][]eventlog.Event
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{byID: map[string][]eventlog.Event{}}
}

func (s *memoryEventStore) Load(ctx context.Context, id string) ([]eventlog.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]eventlog.Event(nil), s.byID[id]...), nil
}

func (s *memoryEventStore) Append(ctx context.Context, id string, expectedNextSeq int, newEvents []eventlog.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.byID[id]
	if len(existing)+1 != expectedNextSeq && len(newEvents) > 0 {
		return eventlog.ErrConcurrentModification
	}

	s.byID[id] = append(existing, newEvents...)

	return nil
}

// memoryTransactor runs fn against a no-op unit of work, synchronously,
// with no real rollback semantics — adequate for command tests, which
// assert on outcomes and published events rather than on transactional
// isolation.
type memoryTransactor struct{}

func (memoryTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, op ledger.UnitOfWork) error) error {
	return fn(ctx, memoryUnitOfWork{})
}

type memoryUnitOfWork struct{}

func (memoryUnitOfWork) Exec(ctx context.Context, sql string, args ...any) error { return nil }
func (memoryUnitOfWork) Query(ctx context.Context, sql string, args ...any) (ledger.Rows, error) {
	return memoryRows{}, nil
}

type memoryRows struct{}

func (memoryRows) Next() bool          { return false }
func (memoryRows) Scan(dest ...any) error { return nil }
func (memoryRows) Close()              {}
func (memoryRows) Err() error           { return nil }

// memoryLedger fakes ledger.Adapter: it records every posted
// transaction, rejects a repeated TxID with ledger.ErrDuplicateTx, and
// derives GetCreditFacilityBalance from the legs posted against a given
// AccountSet's receivable accounts, mirroring the bucket semantics the
// postgres adapter computes from a real ledger balance query.
type memoryLedger struct {
	mu     sync.Mutex
	posted map[string]ledger.Transaction
	order  []ledger.Transaction
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{posted: map[string]ledger.Transaction{}}
}

func (l *memoryLedger) PostTransaction(ctx context.Context, tx ledger.Transaction) error {
	return l.post(tx)
}

func (l *memoryLedger) PostTransactionInOp(ctx context.Context, op ledger.UnitOfWork, tx ledger.Transaction) error {
	return l.post(tx)
}

func (l *memoryLedger) post(tx ledger.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.posted[tx.TxID]; ok {
		return ledger.ErrDuplicateTx
	}

	l.posted[tx.TxID] = tx
	l.order = append(l.order, tx)

	return nil
}

func (l *memoryLedger) transactions() []ledger.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]ledger.Transaction(nil), l.order...)
}

func (l *memoryLedger) GetCreditFacilityBalance(ctx context.Context, accts ledger.AccountSet) (ledger.Balances, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b ledger.Balances

	for _, tx := range l.order {
		for _, leg := range tx.Legs {
			applyLeg(&b, accts, leg)
		}
	}

	return b, nil
}

// applyLeg folds one posted leg into the running balance view: a debit
// to a receivable or collateral account increases its bucket, a credit
// decreases it, matching the double-entry convention for asset accounts.
func applyLeg(b *ledger.Balances, accts ledger.AccountSet, leg ledger.Leg) {
	delta := int64(1)
	if leg.Direction == ledger.Credit {
		delta = -1
	}

	switch leg.Account {
	case accts.DisbursedReceivableNotYetDue:
		b.DisbursedNotYetDue = money.UsdCents(addSigned(uint64(b.DisbursedNotYetDue), leg.Amount, delta))
	case accts.DisbursedReceivableDue:
		b.DisbursedDue = money.UsdCents(addSigned(uint64(b.DisbursedDue), leg.Amount, delta))
	case accts.DisbursedReceivableOverdue:
		b.DisbursedOverdue = money.UsdCents(addSigned(uint64(b.DisbursedOverdue), leg.Amount, delta))
	case accts.DisbursedDefaulted:
		b.DisbursedDefaulted = money.UsdCents(addSigned(uint64(b.DisbursedDefaulted), leg.Amount, delta))
	case accts.InterestReceivableNotYetDue:
		b.InterestNotYetDue = money.UsdCents(addSigned(uint64(b.InterestNotYetDue), leg.Amount, delta))
	case accts.InterestReceivableDue:
		b.InterestDue = money.UsdCents(addSigned(uint64(b.InterestDue), leg.Amount, delta))
	case accts.InterestReceivableOverdue:
		b.InterestOverdue = money.UsdCents(addSigned(uint64(b.InterestOverdue), leg.Amount, delta))
	case accts.InterestDefaulted:
		b.InterestDefaulted = money.UsdCents(addSigned(uint64(b.InterestDefaulted), leg.Amount, delta))
	case accts.Collateral:
		b.Collateral = money.Satoshis(addSigned(uint64(b.Collateral), leg.Amount, delta))
	}
}

// memoryOutbox collects every published event, ignoring sequencing:
// command tests assert on event types and payloads, not on durable
// ordering (covered separately by internal/outbox's own tests).
type memoryOutbox struct {
	mu        sync.Mutex
	published []events.Event
}

func (o *memoryOutbox) PublishAllPersisted(ctx context.Context, op outbox.UnitOfWork, evs []events.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.published = append(o.published, evs...)

	return nil
}

func (o *memoryOutbox) types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]string, len(o.published))
	for i, e := range o.published {
		out[i] = string(e.Type)
	}

	return out
}

// findEvent decodes the first published event of the given wire type
// into T, failing the test if none was published.
func findEvent[T any](t *testing.T, h *harness, typ string) T {
	t.Helper()

	h.outbox.mu.Lock()
	defer h.outbox.mu.Unlock()

	for _, e := range h.outbox.published {
		if string(e.Type) == typ {
			var out T
			require.NoError(t, events.Decode(e.Payload, &out))

			return out
		}
	}

	require.Failf(t, "event not published", "no %s event found", typ)

	var zero T

	return zero
}

// memoryObligationIndex is a manually-maintained facility -> obligation
// id projection, standing in for the postgres obligationindex
// projection tests drive against a live table.
type memoryObligationIndex struct {
	mu   sync.Mutex
	byFacility map[string][]string
}

func newMemoryObligationIndex() *memoryObligationIndex {
	return &memoryObligationIndex{byFacility: map[string][]string{}}
}

func (idx *memoryObligationIndex) add(facilityID, obligationID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.byFacility[facilityID] = append(idx.byFacility[facilityID], obligationID)
}

func (idx *memoryObligationIndex) OpenObligationIDs(ctx context.Context, facilityID string) ([]string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	out := append([]string(nil), idx.byFacility[facilityID]...)
	sort.Strings(out)

	return out, nil
}

func addSigned(cur uint64, delta uint64, sign int64) uint64 {
	if sign < 0 {
		if delta > cur {
			return 0
		}

		return cur - delta
	}

	return cur + delta
}

// harness bundles a Service wired entirely over the in-memory fakes
// above, plus direct handles to each fake for assertions, mirroring the
// teacher's table-driven in-memory suite fixtures.
type harness struct {
	svc *Service

	ledger    *memoryLedger
	outbox    *memoryOutbox
	obIndex   *memoryObligationIndex

	proposals    *ProposalRepo
	pendings     *PendingRepo
	facilities   *FacilityRepo
	obligations  *ObligationRepo
	payments     *PaymentRepo
	collaterals  *CollateralRepo
	liquidations *LiquidationRepo

	now time.Time
}

func newHarness() *harness {
	h := &harness{
		ledger:  newMemoryLedger(),
		outbox:  &memoryOutbox{},
		obIndex: newMemoryObligationIndex(),
		now:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	h.proposals = NewProposalRepo(newMemoryEventStore())
	h.pendings = NewPendingRepo(newMemoryEventStore())
	h.facilities = NewFacilityRepo(newMemoryEventStore())
	h.obligations = NewObligationRepo(newMemoryEventStore())
	h.payments = NewPaymentRepo(newMemoryEventStore())
	h.collaterals = NewCollateralRepo(newMemoryEventStore())
	h.liquidations = NewLiquidationRepo(newMemoryEventStore())

	h.svc = New(Deps{
		Tx:              memoryTransactor{},
		Ledger:          h.ledger,
		Outbox:          h.outbox,
		Proposals:       h.proposals,
		Pendings:        h.pendings,
		Facilities:      h.facilities,
		Obligations:     h.obligations,
		Payments:        h.payments,
		Collaterals:     h.collaterals,
		Liquidations:    h.liquidations,
		ObligationIndex: h.obIndex,
		Omnibus: ledger.Omnibus{
			CollateralOmnibus:          "omnibus:collateral",
			LiquidationProceedsOmnibus: "omnibus:liquidation-proceeds",
			PaymentsMadeOmnibus:        "omnibus:payments-made",
		},
		UpgradeBuffer: money.UpgradeBufferDefault,
		Clock:         func() time.Time { return h.now },
	})

	return h
}

// sampleTerms returns a representative terms.Terms for command tests
// that don't exercise accrual/cvl edge cases directly.
func sampleTerms() terms.Terms {
	return terms.Terms{
		Duration:            terms.Duration{Periods: 12, Interval: terms.AccrualMonthly},
		AnnualInterestRatePct: money.NewCVLPct(12, 0),
		InitialCVL:            money.NewCVLPct(140, 0),
		MarginCallCVL:         money.NewCVLPct(120, 0),
		LiquidationCVL:        money.NewCVLPct(105, 0),
		ObligationDueAfter:    30 * 24 * time.Hour,
		ObligationOverdueAfter: 15 * 24 * time.Hour,
		ObligationDefaultedAfter: 15 * 24 * time.Hour,
		LiquidationEnabled:    true,
	}
}
