package sched

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the terminal outcome of a task attempt.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Work is the opaque unit of execution. It should honor ctx cancellation;
// the executor abandons it once the deadline elapses either way.
//
// A Work may report a Skipped outcome by returning a Result with
// Status == StatusSkipped and a nil error. A nil error with a zero Status
// counts as passed.
type Work func(ctx context.Context) (Result, error)

// Task is one schedulable unit of work plus retry bookkeeping.
//
// Attempt starts at 0; a retried task is a new value derived from the
// original with Attempt+1, never a concurrently-running duplicate.
type Task struct {
	ID      string
	Name    string
	Attempt int
	Work    Work
}

// NewTask builds a task with a generated ID.
func NewTask(name string, work Work) Task {
	return Task{ID: uuid.NewString(), Name: strings.TrimSpace(name), Work: work}
}

// retry derives the queue entry for the next attempt.
func (t Task) retry() Task {
	next := t
	next.Attempt++
	return next
}

// Result is the outcome of one execution attempt.
//
// Err is set only when Status == StatusFailed. Started/Ended/Duration are
// wall-clock timings of the attempt that produced this result.
type Result struct {
	TaskID   string
	Name     string
	Status   Status
	Attempts int
	Started  time.Time
	Ended    time.Time
	Duration time.Duration
	Err      error
}

// Failed reports whether the result is a failure.
func (r Result) Failed() bool { return r.Status == StatusFailed }

// Summary aggregates a completed run's results.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Summarize folds results into a summary. Pure; no scheduler state involved.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
		s.Duration += r.Duration
	}
	return s
}
