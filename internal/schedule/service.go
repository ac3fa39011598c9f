// Package schedule triggers recurring runs on a cron spec or fixed
// interval. It is trigger-only: the run callback does the work, and an
// overlap gate skips a tick when the previous run is still going.
package schedule

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "runq/pkg/logx"
)

type Config struct {
	Spec     string
	Timezone string // IANA TZ; empty means time.Local
}

// RunFunc executes one run. The context is the service's lifetime
// context handed to Start.
type RunFunc func(ctx context.Context)

type Service struct {
	cfg Config
	log logx.Logger
	run RunFunc

	// SecondOptional allows both 5-field and 6-field (with seconds) specs.
	parser cron.Parser

	mu   sync.Mutex
	c    *cron.Cron
	id   cron.EntryID
	busy atomic.Bool
}

func New(cfg Config, run RunFunc, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		log:    log,
		run:    run,
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Start parses the spec and begins triggering. Idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	spec, err := ParseSpec(s.cfg.Spec)
	if err != nil {
		return err
	}

	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return err
		}
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	job := func() { s.tick(ctx) }

	var id cron.EntryID
	switch spec.Kind {
	case SpecInterval:
		id = c.Schedule(cron.Every(spec.Every), cron.FuncJob(job))
	default:
		id, err = c.AddFunc(spec.Cron, job)
		if err != nil {
			return err
		}
	}

	s.c = c
	s.id = id
	c.Start()
	s.log.Info("schedule started",
		logx.String("spec", s.cfg.Spec),
		logx.String("tz", loc.String()),
		logx.Time("next", c.Entry(id).Next))
	return nil
}

// Stop halts triggering and waits for an in-flight tick, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// best-effort
	}
	s.log.Info("schedule stopped")
}

// Next reports the next trigger time, or zero when not started.
func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}
	}
	return s.c.Entry(s.id).Next
}

func (s *Service) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.log.Warn("tick skipped, previous run still in progress")
		return
	}
	defer s.busy.Store(false)
	s.run(ctx)
}
