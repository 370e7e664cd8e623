package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
)

// Runtime drives a set of registered job Specs on a goroutine pool,
// giving shutdown strict priority over new work (spec.md §5's
// "select!-style biased composition").
type Runtime struct {
	logger   mlog.Logger
	clock    func() time.Time
	shutdown chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	running map[string]bool // job_type -> currently running, for Unique enforcement
}

// NewRuntime builds a Runtime. clock defaults to time.Now if nil, to let
// tests supply a fixed or controllable clock handle (spec.md §4.4).
func NewRuntime(logger mlog.Logger, clock func() time.Time) *Runtime {
	if clock == nil {
		clock = time.Now
	}

	return &Runtime{
		logger:   logger,
		clock:    clock,
		shutdown: make(chan struct{}),
		running:  map[string]bool{},
	}
}

// Spawn starts a job instance. Unique jobs are refused (logged, not
// fatal) if an instance of the same job_type is already running.
func (r *Runtime) Spawn(ctx context.Context, spec Spec) {
	if spec.Uniqueness == Unique {
		r.mu.Lock()
		if r.running[spec.JobType] {
			r.mu.Unlock()
			r.logger.Infof("jobs: %s already has an active instance, skipping spawn", spec.JobType)

			return
		}

		r.running[spec.JobType] = true
		r.mu.Unlock()
	}

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		if spec.Uniqueness == Unique {
			defer func() {
				r.mu.Lock()
				delete(r.running, spec.JobType)
				r.mu.Unlock()
			}()
		}

		r.loop(ctx, spec)
	}()
}

func (r *Runtime) loop(ctx context.Context, spec Spec) {
	for {
		select {
		case <-r.shutdown:
			r.logger.Infof("jobs: %s observed shutdown, exiting", spec.JobType)
			return
		default:
		}

		result := spec.Runner.Run(ctx, r.shutdown)

		if result.Err != nil {
			r.logger.Errorf("jobs: %s run failed: %v", spec.JobType, result.Err)
		}

		switch result.Completion {
		case Complete:
			if spec.Uniqueness != RepeatIndefinitely {
				return
			}
		case RescheduleNow:
			continue
		case RescheduleAt:
			wait := result.At.Sub(r.clock())
			if wait < 0 {
				wait = 0
			}

			select {
			case <-r.shutdown:
				return
			case <-time.After(wait):
			}
		}

		if spec.Uniqueness != RepeatIndefinitely && result.Completion == Complete {
			return
		}
	}
}

// Shutdown signals every running job and blocks until they all observe
// it and return.
func (r *Runtime) Shutdown() {
	close(r.shutdown)
	r.wg.Wait()
}

// ShutdownSignal exposes the shutdown channel for runners constructed
// outside Spawn (e.g. in tests).
func (r *Runtime) ShutdownSignal() <-chan struct{} { return r.shutdown }
