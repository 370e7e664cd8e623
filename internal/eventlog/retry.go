package eventlog

import (
	"context"
	"errors"
)

// MaxConcurrentModificationRetries bounds the retry-on-conflict loop
// described in spec.md §9 Design Notes ("bounded to a small constant
// (e.g. 5)").
const MaxConcurrentModificationRetries = 5

// RetryOnConflict re-runs fn up to MaxConcurrentModificationRetries times
// whenever it returns ErrConcurrentModification, surfacing the error
// once the bound is exhausted.
func RetryOnConflict(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error

	for attempt := 0; attempt < MaxConcurrentModificationRetries; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, ErrConcurrentModification) {
			return err
		}
	}

	return err
}
