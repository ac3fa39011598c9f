// Package sched implements a bounded-concurrency task scheduler with
// per-task timeout enforcement and retry-on-failure.
//
// A caller submits opaque work units before the run, then Run drains the
// queue through at most MaxWorkers concurrent executors. Failed attempts
// are requeued at the front of the pending queue while retries remain;
// lifecycle events are fanned out to registered Sinks.
package sched
