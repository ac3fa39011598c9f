package config

// Config is the root of the runner configuration file (YAML or JSON).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Runner controls scheduling: worker slots, per-task timeout,
	// fail-fast and the retry policy.
	Runner RunnerConfig `json:"runner"`

	// Storage optionally persists run history.
	Storage *StorageConfig `json:"storage,omitempty"`

	// Notify optionally announces run results over Telegram.
	Notify *NotifyConfig `json:"notify,omitempty"`

	// Schedule enables recurring runs on a cron spec (serve mode).
	Schedule *ScheduleConfig `json:"schedule,omitempty"`

	// Report controls file reporters.
	Report *ReportConfig `json:"report,omitempty"`

	// Tasks is the suite executed by each run.
	Tasks []TaskSpec `json:"tasks"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`

	// Console is a pointer so "omitted" defaults to true.
	Console *bool `json:"console,omitempty"`

	File FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// RunnerConfig mirrors sched.Config with duration strings.
//
// Defaults (when fields are omitted/zero):
//   - max_workers: NumCPU-1 (min 1)
//   - timeout: "30s"
//   - fail_fast: false
//   - retry_failed: false, max_retries: 0
type RunnerConfig struct {
	MaxWorkers int    `json:"max_workers,omitempty"`
	Timeout    string `json:"timeout,omitempty"`

	FailFast bool `json:"fail_fast,omitempty"`

	RetryFailed bool `json:"retry_failed,omitempty"`
	MaxRetries  int  `json:"max_retries,omitempty"`
}

// StorageConfig controls the optional run-history persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./runq.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// NotifyConfig controls the Telegram run-end notification sink.
type NotifyConfig struct {
	Enabled      bool   `json:"enabled"`
	Token        string `json:"token"`
	ChatID       int64  `json:"chat_id"`
	OnlyFailures bool   `json:"only_failures,omitempty"`
	RatePerSec   int    `json:"rate_per_sec,omitempty"`
}

// ScheduleConfig controls recurring runs in serve mode.
// Spec accepts 5- or 6-field cron expressions and @every descriptors.
type ScheduleConfig struct {
	Enabled  bool   `json:"enabled"`
	Spec     string `json:"spec"`
	Timezone string `json:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Jakarta"
}

type ReportConfig struct {
	// JSONPath, when set, writes a JSONL result stream plus a summary
	// object to this file after each run.
	JSONPath string `json:"json_path,omitempty"`
}

// TaskSpec describes one suite entry: a command invoked with the
// executor-provided context so timeouts kill the process.
type TaskSpec struct {
	Name    string   `json:"name"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
	Dir     string   `json:"dir,omitempty"`
	Env     []string `json:"env,omitempty"`

	// Skip marks the task as skipped without executing the command.
	Skip bool `json:"skip,omitempty"`
}

// ConsoleEnabled resolves the console pointer default.
func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}
