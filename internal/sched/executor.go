package sched

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	logx "runq/pkg/logx"
)

type settled struct {
	res Result
	err error
}

// execute runs one attempt of t, racing Work against the per-task deadline.
// First of {work, timer} to settle wins; a late Work completion is discarded.
//
// All failure modes (returned error, panic, deadline, run cancel) collapse
// into a failed Result. execute never returns an error to the caller.
func (s *Scheduler) execute(ctx context.Context, t Task) Result {
	start := time.Now()
	s.sinks.taskStart(t)

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// Buffered so an abandoned Work can still deliver and exit.
	done := make(chan settled, 1)
	go func() {
		// Guard against task panics: convert to error so one bad task can't
		// take down the run or leave the in-flight count inflated.
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("task panic",
					logx.String("task", t.Name),
					logx.Any("panic", r),
					logx.Stack(string(debug.Stack())))
				done <- settled{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		res, err := t.Work(runCtx)
		done <- settled{res: res, err: err}
	}()

	var res Result
	select {
	case d := <-done:
		switch {
		case d.err != nil:
			res = Result{Status: StatusFailed, Err: d.err}
		default:
			res = d.res
			if res.Status == "" {
				res.Status = StatusPassed
			}
		}
	case <-runCtx.Done():
		err := runCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = &TimeoutError{Limit: s.cfg.Timeout}
		}
		res = Result{Status: StatusFailed, Err: err}
	}

	// Normalize identity and timing regardless of what Work reported.
	res.TaskID = t.ID
	res.Name = t.Name
	res.Attempts = t.Attempt + 1
	res.Started = start
	res.Ended = time.Now()
	res.Duration = res.Ended.Sub(start)
	if res.Status != StatusFailed {
		res.Err = nil
	}

	s.sinks.taskEnd(t, res)
	return res
}
