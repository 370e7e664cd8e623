package jobhandlers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/obligation"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/jobs"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
)

type fakeDatedStore struct {
	spawned []jobs.DatedJob
}

func (s *fakeDatedStore) Spawn(ctx context.Context, job jobs.DatedJob) error {
	s.spawned = append(s.spawned, job)
	return nil
}

func (s *fakeDatedStore) DueBefore(ctx context.Context, at time.Time, limit int) ([]jobs.DatedJob, error) {
	return nil, nil
}

func (s *fakeDatedStore) Delete(ctx context.Context, id string) error { return nil }

func TestPaymentAllocator_DispatchesOnlyOnPaymentReceived(t *testing.T) {
	var allocated []ids.PaymentID
	a := &PaymentAllocator{Allocate: func(ctx context.Context, paymentID ids.PaymentID) error {
		allocated = append(allocated, paymentID)
		return nil
	}}

	paymentID := ids.NewPaymentID()

	err := a.Dispatch(context.Background(), nil, outbox.Sequenced{
		Sequence: 1,
		Event:    events.New(events.TypePaymentReceived, time.Now(), events.PaymentReceived{PaymentID: paymentID.String()}),
	})
	require.NoError(t, err)
	require.Len(t, allocated, 1)
	assert.Equal(t, paymentID, allocated[0])

	// A differently-typed event is ignored.
	err = a.Dispatch(context.Background(), nil, outbox.Sequenced{
		Sequence: 2,
		Event:    events.New(events.TypeObligationDue, time.Now(), events.ObligationDue{ObligationID: "irrelevant"}),
	})
	require.NoError(t, err)
	assert.Len(t, allocated, 1)
}

func TestObligationScheduler_SpawnsDueAndDatedFollowOnJobs(t *testing.T) {
	store := newMemoryEventStoreForJobHandlerTest()
	repo := &eventlog.Repo[*obligation.Obligation]{
		Store: store,
		Hydrate: func(id string, evs []eventlog.Event) (*obligation.Obligation, error) {
			parsed, err := ids.ParseObligationID(id)
			if err != nil {
				return nil, err
			}
			return obligation.Hydrate(parsed, evs)
		},
	}

	obligationID := ids.NewObligationID()
	facilityID := ids.CreditFacilityID(uuid.New())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dueAt := now.Add(30 * 24 * time.Hour)
	overdueAt := dueAt.Add(15 * 24 * time.Hour)
	defaultedAt := overdueAt.Add(15 * 24 * time.Hour)

	o, err := obligation.Create(obligationID, facilityID, obligation.KindDisbursal, money.UsdCents(1_000_00), dueAt, &overdueAt, &defaultedAt, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), obligationID.String(), o, 1))

	dated := &fakeDatedStore{}
	sched := &ObligationScheduler{Obligations: repo, Dated: dated}

	err = sched.Dispatch(context.Background(), nil, outbox.Sequenced{
		Sequence: 1,
		Event: events.New(events.TypeObligationCreated, now, events.ObligationCreated{
			ObligationID: obligationID.String(), FacilityID: facilityID.String(),
			Kind: events.ObligationDisbursal, Amount: money.UsdCents(1_000_00), DueAt: dueAt,
		}),
	})
	require.NoError(t, err)

	require.Len(t, dated.spawned, 3)
	assert.Equal(t, JobTypeObligationDue+":"+obligationID.String(), dated.spawned[0].ID)
	assert.Equal(t, JobTypeObligationOverdue+":"+obligationID.String(), dated.spawned[1].ID)
	assert.Equal(t, JobTypeObligationDefaulted+":"+obligationID.String(), dated.spawned[2].ID)
	assert.Equal(t, dueAt, dated.spawned[0].FireAt)
	assert.Equal(t, overdueAt, dated.spawned[1].FireAt)
	assert.Equal(t, defaultedAt, dated.spawned[2].FireAt)
}

func TestObligationScheduler_IgnoresOtherEventTypes(t *testing.T) {
	dated := &fakeDatedStore{}
	sched := &ObligationScheduler{Obligations: nil, Dated: dated}

	err := sched.Dispatch(context.Background(), nil, outbox.Sequenced{
		Sequence: 1,
		Event:    events.New(events.TypePaymentReceived, time.Now(), events.PaymentReceived{PaymentID: "x"}),
	})
	require.NoError(t, err)
	assert.Empty(t, dated.spawned)
}

func TestParseObligationID_RoundTrips(t *testing.T) {
	id := ids.NewObligationID()

	parsed, err := ParseObligationID([]byte(id.String()))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

// memoryEventStoreForJobHandlerTest is a minimal in-memory
// eventlog.EventStore, local to this package's tests (internal/services
// has its own copy for its own command tests).
type memoryEventStoreForJobHandlerTest struct {
	byID map[string][]eventlog.Event
}

func newMemoryEventStoreForJobHandlerTest() *memoryEventStoreForJobHandlerTest {
	return &memoryEventStoreForJobHandlerTest{byID: map[string][]eventlog.Event{}}
}

func (s *memoryEventStoreForJobHandlerTest) Load(ctx context.Context, id string) ([]eventlog.Event, error) {
	return append([]eventlog.Event(nil), s.byID[id]...), nil
}

func (s *memoryEventStoreForJobHandlerTest) Append(ctx context.Context, id string, expectedNextSeq int, newEvents []eventlog.Event) error {
	existing := s.byID[id]
	if len(existing)+1 != expectedNextSeq && len(newEvents) > 0 {
		return eventlog.ErrConcurrentModification
	}
	s.byID[id] = append(existing, newEvents...)
	return nil
}
