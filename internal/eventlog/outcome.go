package eventlog

// Outcome is the two-case result every idempotent domain mutation
// returns, per spec.md §7: "domain methods return a tagged outcome
// (Executed(data) | AlreadyApplied) for idempotent mutations." A caller
// that reaches AlreadyApplied must treat it as success, not error — the
// requested transition was already recorded in a prior call.
type Outcome[T any] struct {
	applied bool
	value   T
}

// Executed wraps the result of a mutation that actually appended new
// events.
func Executed[T any](value T) Outcome[T] {
	return Outcome[T]{applied: true, value: value}
}

// AlreadyApplied reports that the requested transition was already
// present in the event stream; no new events were appended.
func AlreadyApplied[T any]() Outcome[T] {
	return Outcome[T]{}
}

// WasExecuted reports whether this call actually performed the
// transition (false means AlreadyApplied).
func (o Outcome[T]) WasExecuted() bool { return o.applied }

// Value returns the wrapped result. Only meaningful when WasExecuted is
// true; callers that only care about idempotent success should ignore it.
func (o Outcome[T]) Value() T { return o.value }
