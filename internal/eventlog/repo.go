package eventlog

import "context"

// Aggregate is the minimal shape every event-sourced domain aggregate
// in internal/domain/* exposes, letting Repo stay generic instead of
// every package hand-rolling its own load/save boilerplate.
type Aggregate interface {
	NewEvents() []Event
	MarkPersisted()
}

// Repo is a generic event-sourced repository over an EventStore,
// parameterized by the aggregate's Hydrate function. One instance per
// aggregate kind, constructed in internal/bootstrap.
type Repo[T Aggregate] struct {
	Store   EventStore
	Hydrate func(id string, events []Event) (T, error)
}

// Load replays the persisted stream for id into a live aggregate.
func (r *Repo[T]) Load(ctx context.Context, id string) (T, error) {
	events, err := r.Store.Load(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}

	return r.Hydrate(id, events)
}

// Save persists agg's new events, starting at expectedNextSeq, under
// the caller's optimistic-concurrency check. Callers typically run this
// inside RetryOnConflict.
func (r *Repo[T]) Save(ctx context.Context, id string, agg T, expectedNextSeq int) error {
	if err := r.Store.Append(ctx, id, expectedNextSeq, agg.NewEvents()); err != nil {
		return err
	}

	agg.MarkPersisted()

	return nil
}
