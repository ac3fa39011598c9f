package sched

// decide applies the retry policy to a settled attempt.
//
// Requeue only when the attempt failed, retries are enabled, and the task
// has attempts left. MaxRetries counts retries, not attempts: MaxRetries=2
// allows 3 executions total, MaxRetries=0 disables retries entirely.
func decide(r Result, t Task, cfg Config) (requeue bool, next Task) {
	if r.Status != StatusFailed {
		return false, Task{}
	}
	if !cfg.RetryFailed || cfg.MaxRetries <= 0 {
		return false, Task{}
	}
	if t.Attempt >= cfg.MaxRetries {
		return false, Task{}
	}
	return true, t.retry()
}
