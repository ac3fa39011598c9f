package sched

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures lifecycle notifications for assertions.
type recordingSink struct {
	mu         sync.Mutex
	runStarts  []int
	taskStarts []string
	taskEnds   []Result
	runEnds    []Summary
}

func (r *recordingSink) RunStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runStarts = append(r.runStarts, total)
}

func (r *recordingSink) TaskStart(t Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taskStarts = append(r.taskStarts, t.Name)
}

func (r *recordingSink) TaskEnd(t Task, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taskEnds = append(r.taskEnds, res)
}

func (r *recordingSink) RunEnd(results []Result, s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runEnds = append(r.runEnds, s)
}

func (r *recordingSink) startsFor(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.taskStarts {
		if s == name {
			n++
		}
	}
	return n
}

func passingTask(name string) Task {
	return NewTask(name, func(ctx context.Context) (Result, error) {
		return Result{}, nil
	})
}

func failingTask(name string) Task {
	return NewTask(name, func(ctx context.Context) (Result, error) {
		return Result{}, errors.New(name + " failed")
	})
}

func TestRunNoTaskDropped(t *testing.T) {
	s := newTestScheduler(Config{MaxWorkers: 3, Timeout: time.Second})
	require.NoError(t, s.Submit(
		passingTask("a"), failingTask("b"), passingTask("c"),
		failingTask("d"), passingTask("e"),
	))

	results, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 5)

	sum := Summarize(results)
	assert.Equal(t, 3, sum.Passed)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 0, sum.Skipped)
}

func TestRunInFlightNeverExceedsMaxWorkers(t *testing.T) {
	const maxWorkers = 2

	var inFlight, peak int32
	work := func(ctx context.Context) (Result, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return Result{}, nil
	}

	s := newTestScheduler(Config{MaxWorkers: maxWorkers, Timeout: time.Second})
	for i := 0; i < 8; i++ {
		require.NoError(t, s.Submit(NewTask("t", work)))
	}

	results, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(maxWorkers))
}

func TestRunRetriesExhaustAfterMaxRetries(t *testing.T) {
	sink := &recordingSink{}
	s := newTestScheduler(Config{
		MaxWorkers:  1,
		Timeout:     time.Second,
		RetryFailed: true,
		MaxRetries:  2,
	}, sink)
	require.NoError(t, s.Submit(failingTask("flaky")))

	results, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	// MaxRetries=2 means exactly 3 attempts, each with its own task:start.
	assert.Equal(t, 3, sink.startsFor("flaky"))
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, 3, results[0].Attempts)
}

func TestRunRetrySucceedsEventually(t *testing.T) {
	var calls int32
	task := NewTask("flaky", func(ctx context.Context) (Result, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return Result{}, errors.New("not yet")
		}
		return Result{}, nil
	})

	s := newTestScheduler(Config{
		MaxWorkers:  2,
		Timeout:     time.Second,
		RetryFailed: true,
		MaxRetries:  3,
	})
	require.NoError(t, s.Submit(task))

	results, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusPassed, results[0].Status)
	assert.Equal(t, 3, results[0].Attempts)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRunMaxRetriesZeroDisablesRetries(t *testing.T) {
	sink := &recordingSink{}
	s := newTestScheduler(Config{
		MaxWorkers:  1,
		Timeout:     time.Second,
		RetryFailed: true,
		MaxRetries:  0,
	}, sink)
	require.NoError(t, s.Submit(failingTask("once")))

	results, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, sink.startsFor("once"))
	assert.Equal(t, StatusFailed, results[0].Status)
}

func TestRunFailFastStopsAdmission(t *testing.T) {
	sink := &recordingSink{}
	s := newTestScheduler(Config{MaxWorkers: 1, Timeout: time.Second, FailFast: true}, sink)
	require.NoError(t, s.Submit(failingTask("a"), passingTask("b"), passingTask("c")))

	results, err := s.Run(context.Background())
	require.NoError(t, err)

	// With one worker slot, A finalizes as failed before B or C is admitted.
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, 0, sink.startsFor("b"))
	assert.Equal(t, 0, sink.startsFor("c"))
}

func TestRunFailFastTripsOnFinalizedFailureOnly(t *testing.T) {
	// A failed attempt that still has retries left does not trip fail-fast;
	// only its finalized (retries exhausted) failure does.
	sink := &recordingSink{}
	s := newTestScheduler(Config{
		MaxWorkers:  1,
		Timeout:     time.Second,
		FailFast:    true,
		RetryFailed: true,
		MaxRetries:  1,
	}, sink)
	require.NoError(t, s.Submit(failingTask("a"), passingTask("b")))

	results, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, 2, sink.startsFor("a")) // initial attempt + one retry
	assert.Equal(t, 0, sink.startsFor("b"))
}

func TestRunFailFastHaltsQueuedRetries(t *testing.T) {
	// Deliberate policy: once fail-fast trips, a retry already sitting in
	// the queue is not admitted either; its task never finalizes.
	slowFail := NewTask("slow", func(ctx context.Context) (Result, error) {
		time.Sleep(80 * time.Millisecond)
		return Result{}, errors.New("slow failed")
	})

	sink := &recordingSink{}
	s := newTestScheduler(Config{
		MaxWorkers:  2,
		Timeout:     time.Second,
		FailFast:    true,
		RetryFailed: true,
		MaxRetries:  1,
	}, sink)
	require.NoError(t, s.Submit(slowFail, failingTask("fast")))

	results, err := s.Run(context.Background())
	require.NoError(t, err)

	// "fast" burns through its retry budget and trips fail-fast while
	// "slow" is still in flight; slow's retry is queued but never admitted.
	require.Len(t, results, 1)
	assert.Equal(t, "fast", results[0].Name)
	assert.Equal(t, 2, sink.startsFor("fast"))
	assert.Equal(t, 1, sink.startsFor("slow"))
}

func TestRunIdempotentForPassingTasks(t *testing.T) {
	run := func() Summary {
		s := newTestScheduler(Config{MaxWorkers: 2, Timeout: time.Second})
		require.NoError(t, s.Submit(passingTask("a"), passingTask("b"), passingTask("c")))
		results, err := s.Run(context.Background())
		require.NoError(t, err)
		return Summarize(results)
	}

	first := run()
	second := run()
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.Passed, second.Passed)
	assert.Equal(t, 3, first.Passed)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	s := newTestScheduler(Config{MaxWorkers: 1, Timeout: 5 * time.Second})
	require.NoError(t, s.Submit(NewTask("slow", func(ctx context.Context) (Result, error) {
		<-release
		return Result{}, nil
	})))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.Run(context.Background())
		assert.NoError(t, err)
	}()

	// Wait until the first run is in progress.
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.running
	}, time.Second, 5*time.Millisecond)

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	err = s.Submit(passingTask("late"))
	assert.ErrorIs(t, err, ErrSubmitDuringRun)

	close(release)
	<-done
}

func TestRunCancellationHaltsAdmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started int32
	work := func(c context.Context) (Result, error) {
		atomic.AddInt32(&started, 1)
		cancel()
		<-c.Done()
		return Result{}, c.Err()
	}

	s := newTestScheduler(Config{MaxWorkers: 1, Timeout: 5 * time.Second})
	require.NoError(t, s.Submit(NewTask("a", work), passingTask("b"), passingTask("c")))

	results, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, atomic.LoadInt32(&started))
	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status)
}

func TestRunEventOrderAndSummary(t *testing.T) {
	sink := &recordingSink{}
	s := newTestScheduler(Config{MaxWorkers: 2, Timeout: time.Second}, sink)
	require.NoError(t, s.Submit(passingTask("a"), failingTask("b")))

	results, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Len(t, sink.runStarts, 1)
	assert.Equal(t, 2, sink.runStarts[0])
	assert.Len(t, sink.taskEnds, 2)
	require.Len(t, sink.runEnds, 1)
	assert.Equal(t, Summary{Total: 2, Passed: 1, Failed: 1, Duration: sink.runEnds[0].Duration}, sink.runEnds[0])
}

type panickySink struct{ NopSink }

func (panickySink) TaskEnd(Task, Result) { panic("reporter bug") }

func TestRunSurvivesPanickingSink(t *testing.T) {
	s := newTestScheduler(Config{MaxWorkers: 1, Timeout: time.Second}, panickySink{})
	require.NoError(t, s.Submit(passingTask("a"), passingTask("b")))

	results, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSubmitValidation(t *testing.T) {
	s := newTestScheduler(Config{})
	err := s.Submit(Task{Name: "no work"})
	assert.ErrorIs(t, err, ErrNilWork)
	assert.Equal(t, 0, s.Pending())

	require.NoError(t, s.Submit(Task{Work: func(ctx context.Context) (Result, error) {
		return Result{}, nil
	}}))
	assert.Equal(t, 1, s.Pending())
}
