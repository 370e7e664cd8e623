package outbox

import "context"

// ConsumerState is the per-consumer durable checkpoint described in
// spec.md §4.3: "consumers store last processed sequence in their own
// job state and commit it in the same transaction as their
// side-effects." One row per job_type.
type ConsumerState struct {
	JobType      string
	LastSequence Sequence
}

// ConsumerStateStore persists ConsumerState, read/written in the same
// unit of work as the consumer's business side-effects so a crash
// between "apply side-effect" and "advance checkpoint" cannot happen.
type ConsumerStateStore interface {
	Load(ctx context.Context, jobType string) (ConsumerState, error)
	Save(ctx context.Context, op UnitOfWork, state ConsumerState) error
}

// Dispatch is the shape every outbox consumer implements: given one
// sequenced event, apply its side effect. Handlers must be idempotent,
// since delivery is at-least-once.
type Dispatch func(ctx context.Context, op UnitOfWork, ev Sequenced) error
