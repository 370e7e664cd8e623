package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
)

func TestRuntime_ShutdownStopsRescheduleNowLoop(t *testing.T) {
	rt := NewRuntime(mlog.NilLogger{}, nil)

	calls := make(chan struct{}, 1000)

	runner := RunnerFunc(func(ctx context.Context, shutdown <-chan struct{}) Result {
		select {
		case calls <- struct{}{}:
		default:
		}

		select {
		case <-shutdown:
			return Result{Completion: Complete}
		default:
			return Result{Completion: RescheduleNow}
		}
	})

	rt.Spawn(context.Background(), Spec{JobType: "loop", Uniqueness: RepeatIndefinitely, Runner: runner})

	time.Sleep(20 * time.Millisecond)
	rt.Shutdown()

	// Runtime.Shutdown only returns once every spawned goroutine has
	// observed the shutdown signal and returned.
	assert.True(t, true)
}

func TestRuntime_UniqueJobRefusesSecondSpawn(t *testing.T) {
	rt := NewRuntime(mlog.NilLogger{}, nil)

	started := make(chan struct{})
	release := make(chan struct{})

	blocking := RunnerFunc(func(ctx context.Context, shutdown <-chan struct{}) Result {
		close(started)
		<-release
		return Result{Completion: Complete}
	})

	rt.Spawn(context.Background(), Spec{JobType: "unique-job", Uniqueness: Unique, Runner: blocking})
	<-started

	secondRan := false
	second := RunnerFunc(func(ctx context.Context, shutdown <-chan struct{}) Result {
		secondRan = true
		return Result{Completion: Complete}
	})

	rt.Spawn(context.Background(), Spec{JobType: "unique-job", Uniqueness: Unique, Runner: second})
	time.Sleep(10 * time.Millisecond)

	assert.False(t, secondRan)

	close(release)
	rt.Shutdown()
}

func TestDatedPoller_DispatchesDueJobsAndDeletesOnSuccess(t *testing.T) {
	store := &fakeDatedStore{jobs: map[string]DatedJob{
		"a": {ID: "a", JobType: "obligation-due", FireAt: time.Unix(0, 0)},
	}}

	var handled []string

	runner := NewDatedPollerRunner(&DatedPoller{
		Store:    store,
		Interval: time.Millisecond,
		Now:      func() time.Time { return time.Unix(100, 0) },
		Handle: func(ctx context.Context, job DatedJob) error {
			handled = append(handled, job.ID)
			return nil
		},
	})

	shutdown := make(chan struct{})
	result := runner.Run(context.Background(), shutdown)

	assert.Equal(t, []string{"a"}, handled)
	assert.Empty(t, store.jobs)
	assert.Equal(t, RescheduleAt, result.Completion)
}

type fakeDatedStore struct {
	jobs map[string]DatedJob
}

func (f *fakeDatedStore) Spawn(ctx context.Context, job DatedJob) error {
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeDatedStore) DueBefore(ctx context.Context, at time.Time, limit int) ([]DatedJob, error) {
	var out []DatedJob

	for _, j := range f.jobs {
		if !j.FireAt.After(at) {
			out = append(out, j)
		}
	}

	return out, nil
}

func (f *fakeDatedStore) Delete(ctx context.Context, id string) error {
	delete(f.jobs, id)
	return nil
}
