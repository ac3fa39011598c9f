package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"runq/internal/sched"
	logx "runq/pkg/logx"
)

// JSONSink writes one JSON line per finalized result plus a trailing
// summary line. The file is written atomically (tmp + rename) at run end,
// so observers never see a partial report.
type JSONSink struct {
	sched.NopSink

	path string
	log  logx.Logger
}

type jsonResult struct {
	Kind     string    `json:"kind"` // "result"
	TaskID   string    `json:"task_id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Attempts int       `json:"attempts"`
	Started  time.Time `json:"started"`
	TookMS   int64     `json:"took_ms"`
	Error    string    `json:"error,omitempty"`
}

type jsonSummary struct {
	Kind    string `json:"kind"` // "summary"
	Total   int    `json:"total"`
	Passed  int    `json:"passed"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
	TookMS  int64  `json:"took_ms"`
}

func NewJSON(path string, log logx.Logger) *JSONSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &JSONSink{path: path, log: log}
}

func (j *JSONSink) RunEnd(results []sched.Result, s sched.Summary) {
	if err := j.write(results, s); err != nil {
		j.log.Warn("json report write failed", logx.String("path", j.path), logx.Err(err))
	}
}

func (j *JSONSink) write(results []sched.Result, s sched.Summary) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return err
	}

	tmp := j.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	for _, r := range results {
		line := jsonResult{
			Kind:     "result",
			TaskID:   r.TaskID,
			Name:     r.Name,
			Status:   string(r.Status),
			Attempts: r.Attempts,
			Started:  r.Started,
			TookMS:   r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			line.Error = r.Err.Error()
		}
		if err := enc.Encode(line); err != nil {
			_ = f.Close()
			return err
		}
	}
	sum := jsonSummary{
		Kind:    "summary",
		Total:   s.Total,
		Passed:  s.Passed,
		Failed:  s.Failed,
		Skipped: s.Skipped,
		TookMS:  s.Duration.Milliseconds(),
	}
	if err := enc.Encode(sum); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, j.path)
}
