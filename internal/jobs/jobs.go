// Package jobs implements the cooperative job runtime from spec.md §4.4:
// dated spawns, retry, unique-instance jobs, and graceful shutdown. The
// runtime keeps no durable state of its own; outbox consumer checkpoints
// and dated-job rows are persisted by the postgres adapters. Grounded on the teacher's worker-loop
// convention (components/transaction/internal/bootstrap
// balance.worker_test.go, metadata_outbox.worker_test.go — tests only
// survived retrieval for that package, so the runner shape below is
// reconstructed from spec.md's explicit contract).
package jobs

import (
	"context"
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
)

// Completion is what a JobRunner returns after one execution pass.
type Completion int

const (
	// Complete means the job instance is finished and should not run again.
	Complete Completion = iota
	// RescheduleNow means the runner should be invoked again immediately
	// (used for "more work is ready now" and for the shutdown-observed case).
	RescheduleNow
	// RescheduleAt schedules the next invocation for a specific instant.
	RescheduleAt
)

// Result is returned by a Runner's Run method.
type Result struct {
	Completion Completion
	At         time.Time // only meaningful when Completion == RescheduleAt
	Err        error
}

// Runner executes one pass of a job. Runners suspend only at I/O
// boundaries (spec.md §5) and must observe Shutdown on every loop
// iteration, returning RescheduleNow when it fires mid-work so the
// runtime can re-queue without losing progress.
type Runner interface {
	Run(ctx context.Context, shutdown <-chan struct{}) Result
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, shutdown <-chan struct{}) Result

func (f RunnerFunc) Run(ctx context.Context, shutdown <-chan struct{}) Result { return f(ctx, shutdown) }

// Uniqueness describes how many concurrent instances of a job_type may
// run, per spec.md §4.4.
type Uniqueness int

const (
	// Unique means at most one active instance system-wide — used for
	// projection and sync loops, and the collateralization engine.
	Unique Uniqueness = iota
	// Dated means an instance is spawned to fire at a future instant.
	Dated
	// RepeatIndefinitely means the job restarts forever (long-lived
	// outbox listeners), retrying transient errors.
	RepeatIndefinitely
)

// Spec describes one registered job.
type Spec struct {
	JobType    string
	Uniqueness Uniqueness
	Runner     Runner
}
