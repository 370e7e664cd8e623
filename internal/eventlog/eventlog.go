// Package eventlog implements the append-only, per-entity event stream
// that every domain aggregate in the credit core is built on: state is
// the replay of an ordered sequence of typed events keyed by entity id,
// persisted under a row-level optimistic-concurrency check, grounded on
// the teacher's common/mpostgres.Table helper style (parameterized
// inserts against a whitelisted column set).
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event is one typed, persisted fact about an entity. EventType is the
// discriminator used both in storage and in the wire JSON; Sequence is
// the entity-local monotonic position assigned at append time.
type Event struct {
	EntityID  string
	Sequence  int
	EventType string
	Payload   json.RawMessage
	RecordedAt time.Time
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent builds an Event with the next sequence for an in-memory
// append; RecordedAt is stamped by the caller at persist time so replay
// remains deterministic given the same clock.
func NewEvent(entityID string, sequence int, eventType string, payload any, recordedAt time.Time) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("eventlog: marshal %s: %w", eventType, err)
	}

	return Event{
		EntityID:   entityID,
		Sequence:   sequence,
		EventType:  eventType,
		Payload:    raw,
		RecordedAt: recordedAt,
	}, nil
}

// Stream is the in-memory replay buffer an aggregate wraps: the
// persisted events (sequence 1..N) plus new events appended but not yet
// persisted (sequence N+1..M). Persisting flushes exactly the new
// suffix, per spec.md §3 "Persisting an entity writes only the new
// suffix."
type Stream struct {
	entityID string
	events   []Event
	persisted int
}

// NewStream wraps a freshly loaded (or empty) sequence of persisted
// events for replay.
func NewStream(entityID string, persisted []Event) *Stream {
	return &Stream{entityID: entityID, events: append([]Event{}, persisted...), persisted: len(persisted)}
}

// EntityID returns the id this stream replays.
func (s *Stream) EntityID() string { return s.entityID }

// All returns every event, persisted and new, in sequence order.
func (s *Stream) All() []Event { return s.events }

// NextSequence is the sequence number the next appended event receives.
func (s *Stream) NextSequence() int { return len(s.events) + 1 }

// Append records a new event in memory, assigning the next sequence.
func (s *Stream) Append(eventType string, payload any, recordedAt time.Time) (Event, error) {
	ev, err := NewEvent(s.entityID, s.NextSequence(), eventType, payload, recordedAt)
	if err != nil {
		return Event{}, err
	}

	s.events = append(s.events, ev)

	return ev, nil
}

// NewEvents returns the suffix of events appended since load, the exact
// set a repository must persist.
func (s *Stream) NewEvents() []Event {
	return s.events[s.persisted:]
}

// HasAppended reports whether any event of the given type already exists
// in the stream — the idempotency-guard primitive described in spec.md
// §9 Design Notes: "iterates the current event log and returns early
// when a specific event matching the intended transition already
// exists."
func (s *Stream) HasAppended(eventType string, match func(Event) bool) bool {
	for _, ev := range s.events {
		if ev.EventType != eventType {
			continue
		}

		if match == nil || match(ev) {
			return true
		}
	}

	return false
}

// MarkPersisted advances the persisted watermark after a successful
// flush, so a subsequent NewEvents() call on the same in-memory
// aggregate (e.g. a retry loop) does not re-offer already-written
// events.
func (s *Stream) MarkPersisted() {
	s.persisted = len(s.events)
}

// EventStore is the persistence contract every per-entity postgres
// repository implements: append-only writes under optimistic
// concurrency, keyed by the last known sequence.
type EventStore interface {
	// Load returns every persisted event for id in sequence order.
	Load(ctx context.Context, id string) ([]Event, error)

	// Append persists newEvents, which must start at expectedNextSeq.
	// Implementations must reject (ErrConcurrentModification) if another
	// writer has already advanced the sequence past expectedNextSeq.
	Append(ctx context.Context, id string, expectedNextSeq int, newEvents []Event) error
}

// ErrConcurrentModification signals an optimistic-concurrency conflict;
// callers retry the whole mutation closure against a freshly loaded
// entity, bounded per spec.md §9 to a small constant.
var ErrConcurrentModification = fmt.Errorf("eventlog: concurrent modification")
