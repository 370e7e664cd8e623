// Package outbox implements the durable, sequenced, at-least-once event
// bus bridging transactional entity writes to consumers, per spec.md
// §4.3. Grounded on the teacher's
// components/transaction/internal/adapters/postgres/outbox package
// (table-backed, sequenced, FIFO-per-key) — only test files for that
// package survived retrieval, so the contract below is reconstructed
// from spec.md plus the generic pattern every other teacher outbox-like
// table follows (append-only, bigserial sequence, JSON payload).
package outbox

import (
	"context"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
)

// Sequence is the durable, strictly-increasing position of a published
// event in the outbox.
type Sequence int64

// Sequenced pairs a published event with its durable position.
type Sequenced struct {
	Sequence Sequence
	Event    events.Event
}

// Writer is the transactional write side: publish_all_persisted from
// spec.md §4.3, called inside the same unit of work as the entity event
// write so the publish and the state change commit atomically.
type Writer interface {
	PublishAllPersisted(ctx context.Context, op UnitOfWork, evs []events.Event) error
}

// UnitOfWork is the caller's open transaction, the same unit of work the
// entity repository used to persist new events.
type UnitOfWork interface {
	Exec(ctx context.Context, sql string, args ...any) error
}

// Reader is the consumer side: a resumable, ordered stream of events
// with their sequences (listen_persisted), per spec.md §4.3.
type Reader interface {
	// ListenPersisted streams every durable event with sequence > from,
	// in order, until ctx is canceled. from == nil starts at sequence 0
	// (used by "rebuild projection from zero", spec.md §9).
	ListenPersisted(ctx context.Context, from *Sequence) (<-chan Sequenced, error)
}

// EphemeralReader merges the durable stream with an in-memory,
// non-durable channel (e.g. price ticks), per spec.md §4.3 "listen_all".
type EphemeralReader interface {
	Reader
	ListenAll(ctx context.Context, from *Sequence) (<-chan Sequenced, error)
}
