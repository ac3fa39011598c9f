// Package suite turns configured task specs into schedulable work: each
// spec becomes a command invocation bound to the executor's context, so
// a per-task timeout kills the process.
package suite

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"runq/internal/config"
	"runq/internal/sched"
	logx "runq/pkg/logx"
)

// maxOutputTail bounds how much command output ends up in a failure error.
const maxOutputTail = 512

// Build converts task specs into scheduler tasks. Specs are assumed to
// have passed config validation.
func Build(specs []config.TaskSpec, log logx.Logger) []sched.Task {
	if log.IsZero() {
		log = logx.Nop()
	}
	tasks := make([]sched.Task, 0, len(specs))
	for _, sp := range specs {
		tasks = append(tasks, sched.NewTask(sp.Name, commandWork(sp, log)))
	}
	return tasks
}

func commandWork(sp config.TaskSpec, log logx.Logger) sched.Work {
	return func(ctx context.Context) (sched.Result, error) {
		if sp.Skip {
			return sched.Result{Status: sched.StatusSkipped}, nil
		}

		cmd := exec.CommandContext(ctx, sp.Command, sp.Args...)
		cmd.Dir = sp.Dir
		if len(sp.Env) > 0 {
			cmd.Env = append(os.Environ(), sp.Env...)
		}

		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out

		log.Debug("command starting",
			logx.String("task", sp.Name),
			logx.String("command", sp.Command))

		err := cmd.Run()
		if err == nil {
			return sched.Result{Status: sched.StatusPassed}, nil
		}
		if ctx.Err() != nil {
			// The executor owns the timeout/cancel classification.
			return sched.Result{}, ctx.Err()
		}
		if tail := outputTail(out.Bytes()); tail != "" {
			return sched.Result{}, fmt.Errorf("%w: %s", err, tail)
		}
		return sched.Result{}, err
	}
}

// outputTail returns the last chunk of combined output, collapsed to a
// single line.
func outputTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return ""
	}
	if len(s) > maxOutputTail {
		s = "..." + s[len(s)-maxOutputTail:]
	}
	return strings.Join(strings.Fields(s), " ")
}
