package sched

import (
	"errors"
	"testing"
)

func TestRetryDecision(t *testing.T) {
	failed := Result{Status: StatusFailed, Err: errors.New("boom")}
	passed := Result{Status: StatusPassed}

	cases := []struct {
		name    string
		res     Result
		attempt int
		cfg     Config
		requeue bool
	}{
		{"passed never retries", passed, 0, Config{RetryFailed: true, MaxRetries: 3}, false},
		{"skipped never retries", Result{Status: StatusSkipped}, 0, Config{RetryFailed: true, MaxRetries: 3}, false},
		{"failed with retries left", failed, 0, Config{RetryFailed: true, MaxRetries: 2}, true},
		{"failed at retry budget", failed, 2, Config{RetryFailed: true, MaxRetries: 2}, false},
		{"retries disabled by flag", failed, 0, Config{RetryFailed: false, MaxRetries: 2}, false},
		{"max_retries zero disables", failed, 0, Config{RetryFailed: true, MaxRetries: 0}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := Task{ID: "t1", Name: "t1", Attempt: tc.attempt}
			requeue, next := decide(tc.res, task, tc.cfg)
			if requeue != tc.requeue {
				t.Fatalf("requeue = %v, want %v", requeue, tc.requeue)
			}
			if !requeue {
				return
			}
			if next.Attempt != tc.attempt+1 {
				t.Fatalf("next.Attempt = %d, want %d", next.Attempt, tc.attempt+1)
			}
			if next.ID != task.ID || next.Name != task.Name {
				t.Fatalf("retry must keep task identity: %+v", next)
			}
		})
	}
}
