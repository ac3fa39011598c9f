package report

import (
	"runq/internal/sched"
	logx "runq/pkg/logx"
)

// ConsoleSink reports lifecycle events through the structured logger.
type ConsoleSink struct {
	log logx.Logger
}

func NewConsole(log logx.Logger) *ConsoleSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &ConsoleSink{log: log.With(logx.String("comp", "report"))}
}

func (c *ConsoleSink) RunStart(total int) {
	c.log.Info("run starting", logx.Int("tasks", total))
}

func (c *ConsoleSink) TaskStart(t sched.Task) {
	c.log.Debug("task starting", logx.String("task", t.Name), logx.Int("attempt", t.Attempt+1))
}

func (c *ConsoleSink) TaskEnd(t sched.Task, r sched.Result) {
	switch r.Status {
	case sched.StatusFailed:
		c.log.Warn("task failed",
			logx.String("task", r.Name),
			logx.Int("attempt", t.Attempt+1),
			logx.Duration("took", r.Duration),
			logx.Err(r.Err))
	case sched.StatusSkipped:
		c.log.Info("task skipped", logx.String("task", r.Name))
	default:
		c.log.Info("task passed",
			logx.String("task", r.Name),
			logx.Duration("took", r.Duration))
	}
}

func (c *ConsoleSink) RunEnd(results []sched.Result, s sched.Summary) {
	c.log.Info("run complete",
		logx.Int("total", s.Total),
		logx.Int("passed", s.Passed),
		logx.Int("failed", s.Failed),
		logx.Int("skipped", s.Skipped),
		logx.Duration("took", s.Duration))
}
