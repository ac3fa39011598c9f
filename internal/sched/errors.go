package sched

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyRunning is returned by Run when a run is already in progress
	// on the same scheduler.
	ErrAlreadyRunning = errors.New("scheduler: run already in progress")

	// ErrSubmitDuringRun is returned by Submit while Run is in progress.
	// Tasks must be submitted before the run starts.
	ErrSubmitDuringRun = errors.New("scheduler: submit during run")

	// ErrNilWork is returned by Submit for a task without a Work function.
	ErrNilWork = errors.New("scheduler: task Work is nil")
)

// TimeoutError marks a task attempt that outlived its deadline.
//
// It unwraps to context.DeadlineExceeded so callers can use errors.Is.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timed out after %dms", e.Limit.Milliseconds())
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// IsTimeout reports whether err stems from a per-task deadline.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
