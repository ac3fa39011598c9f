package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"runq/internal/sched"
	"runq/internal/storage"
	logx "runq/pkg/logx"
)

// HistorySink persists finalized runs to the configured store.
//
// Persistence failures are logged and swallowed: losing history must not
// affect the run outcome.
type HistorySink struct {
	sched.NopSink

	store storage.Store
	log   logx.Logger

	started time.Time
}

func NewHistory(store storage.Store, log logx.Logger) *HistorySink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &HistorySink{store: store, log: log}
}

func (h *HistorySink) RunStart(total int) {
	h.started = time.Now()
}

func (h *HistorySink) RunEnd(results []sched.Result, s sched.Summary) {
	if h.store == nil {
		return
	}

	runID := uuid.NewString()
	run := storage.RunRecord{
		ID:        runID,
		StartedAt: h.started,
		TookMS:    time.Since(h.started).Milliseconds(),
		Total:     s.Total,
		Passed:    s.Passed,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	records := make([]storage.ResultRecord, 0, len(results))
	for _, r := range results {
		rec := storage.ResultRecord{
			RunID:    runID,
			TaskID:   r.TaskID,
			Name:     r.Name,
			Status:   string(r.Status),
			Attempts: r.Attempts,
			Started:  r.Started,
			TookMS:   r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		records = append(records, rec)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.store.AppendRun(ctx, run, records); err != nil {
		h.log.Warn("run history append failed", logx.String("run", runID), logx.Err(err))
	}
}
