// Package app wires the configuration, logging, storage and reporting
// layers into the two top-level modes: a one-shot run and serve mode
// with recurring scheduled runs.
package app

import (
	"context"
	"strings"

	"runq/internal/config"
	"runq/internal/report"
	"runq/internal/sched"
	"runq/internal/schedule"
	"runq/internal/storage"
	"runq/internal/suite"
	logx "runq/pkg/logx"
)

type App struct {
	cfgPath string

	mgr  *config.Manager
	log  logx.Logger
	logs *logx.Service

	store  storage.Store
	notify *report.TelegramSink
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogging(cfg))
	log = log.With(logx.String("comp", "app"))
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		cfgPath: cfgPath,
		mgr:     mgr,
		log:     log,
		logs:    logSvc,
	}

	if sc := cfg.Storage; sc != nil && strings.TrimSpace(sc.Driver) != "" {
		st, err := storage.Open(mapStorage(sc), log.With(logx.String("comp", "storage")))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = st
		if st != nil {
			log.Info("storage enabled", logx.String("driver", sc.Driver))
		}
	}

	if nc := cfg.Notify; nc != nil && nc.Enabled {
		tg, err := report.NewTelegram(report.TelegramConfig{
			Token:        nc.Token,
			ChatID:       nc.ChatID,
			OnlyFailures: nc.OnlyFailures,
			RatePerSec:   nc.RatePerSec,
		}, log.With(logx.String("comp", "notify")))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.notify = tg
	}

	return a, nil
}

// RunOnce executes the configured suite a single time.
func (a *App) RunOnce(ctx context.Context) (sched.Summary, error) {
	cfg := a.mgr.Get()

	s := sched.New(mapRunner(cfg), a.log.With(logx.String("comp", "sched")), a.sinks(cfg)...)
	if err := s.Submit(suite.Build(cfg.Tasks, a.log.With(logx.String("comp", "suite")))...); err != nil {
		return sched.Summary{}, err
	}

	results, err := s.Run(ctx)
	return sched.Summarize(results), err
}

// History returns the most recent persisted runs, newest first.
func (a *App) History(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if a.store == nil {
		return nil, storage.ErrDisabled
	}
	return a.store.RecentRuns(ctx, limit)
}

// Close releases long-lived resources. Safe to call more than once.
func (a *App) Close() {
	if a.notify != nil {
		a.notify.Close()
		a.notify = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
		a.store = nil
	}
	if a.logs != nil {
		a.logs.Close()
		a.logs = nil
	}
}

func (a *App) sinks(cfg *config.Config) []sched.Sink {
	out := []sched.Sink{report.NewConsole(a.log.With(logx.String("comp", "run")))}
	if rc := cfg.Report; rc != nil && strings.TrimSpace(rc.JSONPath) != "" {
		out = append(out, report.NewJSON(rc.JSONPath, a.log.With(logx.String("comp", "report"))))
	}
	if a.store != nil {
		out = append(out, report.NewHistory(a.store, a.log.With(logx.String("comp", "history"))))
	}
	if a.notify != nil {
		out = append(out, a.notify)
	}
	return out
}

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapRunner(cfg *config.Config) sched.Config {
	return sched.Config{
		MaxWorkers:  cfg.Runner.MaxWorkers,
		Timeout:     cfg.RunnerTimeout(),
		FailFast:    cfg.Runner.FailFast,
		RetryFailed: cfg.Runner.RetryFailed,
		MaxRetries:  cfg.Runner.MaxRetries,
	}
}

func mapStorage(sc *config.StorageConfig) storage.Config {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 0)
	if err != nil {
		busy = 0
	}
	return storage.Config{
		Driver:      sc.Driver,
		Path:        sc.Path,
		BusyTimeout: busy,
	}
}

func mapSchedule(sc *config.ScheduleConfig) schedule.Config {
	return schedule.Config{
		Spec:     sc.Spec,
		Timezone: sc.Timezone,
	}
}
