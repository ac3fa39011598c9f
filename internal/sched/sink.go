package sched

// Sink receives lifecycle notifications for external reporting.
//
// Contract:
//   - Calls are fire-and-forget: a sink has no scheduling authority and
//     cannot veto, delay, or reorder tasks.
//   - A sink that panics is recovered by the scheduler; it must not assume
//     its panic aborts the run.
//   - TaskStart/TaskEnd fire once per attempt; RunEnd receives only
//     finalized results.
type Sink interface {
	RunStart(total int)
	TaskStart(t Task)
	TaskEnd(t Task, r Result)
	RunEnd(results []Result, s Summary)
}

// NopSink discards all notifications. Embed it to implement a partial Sink.
type NopSink struct{}

func (NopSink) RunStart(int)             {}
func (NopSink) TaskStart(Task)           {}
func (NopSink) TaskEnd(Task, Result)     {}
func (NopSink) RunEnd([]Result, Summary) {}

// sinks fans notifications out to all registered sinks, isolating the
// scheduler from sink panics.
type sinks []Sink

func (ss sinks) each(f func(Sink)) {
	for _, s := range ss {
		if s == nil {
			continue
		}
		func() {
			defer func() { _ = recover() }()
			f(s)
		}()
	}
}

func (ss sinks) runStart(total int) { ss.each(func(s Sink) { s.RunStart(total) }) }
func (ss sinks) taskStart(t Task)   { ss.each(func(s Sink) { s.TaskStart(t) }) }
func (ss sinks) taskEnd(t Task, r Result) {
	ss.each(func(s Sink) { s.TaskEnd(t, r) })
}
func (ss sinks) runEnd(results []Result, sum Summary) {
	ss.each(func(s Sink) { s.RunEnd(results, sum) })
}
