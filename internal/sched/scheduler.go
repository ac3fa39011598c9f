package sched

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	logx "runq/pkg/logx"
)

// Config controls one scheduler instance. Zero values fall back to defaults.
type Config struct {
	// MaxWorkers bounds concurrently in-flight tasks.
	// Default: NumCPU-1, minimum 1.
	MaxWorkers int

	// Timeout is the per-attempt deadline. Default: 30s.
	Timeout time.Duration

	// FailFast halts admission of pending tasks (queued retries included)
	// after the first failed finalized result. In-flight tasks drain.
	FailFast bool

	// RetryFailed enables requeueing of failed attempts, up to MaxRetries
	// retries per task. MaxRetries=0 disables retries even when set.
	RetryFailed bool
	MaxRetries  int
}

func (c Config) withDefaults() Config {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = runtime.NumCPU() - 1
		if c.MaxWorkers < 1 {
			c.MaxWorkers = 1
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// Scheduler drives a submitted task set to exhaustion through a bounded set
// of worker slots. The pending queue and in-flight accounting are owned by
// the single coordinating goroutine inside Run; executors hand results back
// over a channel and never touch scheduler state.
type Scheduler struct {
	cfg   Config
	log   logx.Logger
	sinks sinks

	mu      sync.Mutex
	queue   runQueue
	running bool
}

func New(cfg Config, log logx.Logger, sk ...Sink) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{cfg: cfg.withDefaults(), log: log, sinks: sinks(sk)}
}

// Submit appends tasks to the pending queue. It fails while a run is in
// progress; the design does not accept mid-run additions, which keeps
// termination detection simple.
func (s *Scheduler) Submit(tasks ...Task) error {
	for _, t := range tasks {
		if t.Work == nil {
			return ErrNilWork
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSubmitDuringRun
	}
	for _, t := range tasks {
		if strings.TrimSpace(t.ID) == "" {
			t.ID = uuid.NewString()
		}
		if strings.TrimSpace(t.Name) == "" {
			t.Name = t.ID
		}
		s.queue.push(t)
	}
	return nil
}

// Pending reports how many tasks are queued for the next run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

type attemptDone struct {
	task Task
	res  Result
}

// Run drains the queue, admitting tasks to executors while free worker
// slots exist, until queue and in-flight set are both empty or fail-fast
// halts admission. Finalized results are returned in completion order,
// which is nondeterministic across runs.
//
// Task-level failures never surface here; the returned error reports usage
// violations or run-level cancellation only.
func (s *Scheduler) Run(ctx context.Context) ([]Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	q := s.queue
	s.queue = runQueue{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	total := q.len()
	s.sinks.runStart(total)
	s.log.Info("run started",
		logx.Int("tasks", total),
		logx.Int("max_workers", s.cfg.MaxWorkers),
		logx.Duration("timeout", s.cfg.Timeout))

	start := time.Now()
	resCh := make(chan attemptDone, s.cfg.MaxWorkers)
	ctxDone := ctx.Done()
	inFlight := 0
	halted := false
	results := make([]Result, 0, total)

	for {
		// Level-triggered admission: fill free slots from the queue front.
		for !halted && inFlight < s.cfg.MaxWorkers {
			t, ok := q.pop()
			if !ok {
				break
			}
			inFlight++
			go func(t Task) {
				resCh <- attemptDone{task: t, res: s.execute(ctx, t)}
			}(t)
		}
		if inFlight == 0 {
			break
		}

		select {
		case d := <-resCh:
			inFlight--
			if requeue, next := decide(d.res, d.task, s.cfg); requeue {
				s.log.Debug("task requeued",
					logx.String("task", d.task.Name),
					logx.Int("attempt", next.Attempt),
					logx.Err(d.res.Err))
				q.pushRetry(next)
				continue
			}
			results = append(results, d.res)
			if d.res.Failed() {
				s.log.Warn("task failed",
					logx.String("task", d.task.Name),
					logx.Int("attempts", d.res.Attempts),
					logx.Err(d.res.Err))
				if s.cfg.FailFast && !halted {
					halted = true
					s.log.Info("fail-fast: halting admission", logx.Int("pending", q.len()))
				}
			}
		case <-ctxDone:
			// Stop admitting; in-flight attempts observe the cancellation
			// through their derived contexts and drain via resCh.
			halted = true
			ctxDone = nil
		}
	}

	sum := Summarize(results)
	s.log.Info("run finished",
		logx.Int("total", sum.Total),
		logx.Int("passed", sum.Passed),
		logx.Int("failed", sum.Failed),
		logx.Int("skipped", sum.Skipped),
		logx.Duration("took", time.Since(start)))
	s.sinks.runEnd(results, sum)
	return results, ctx.Err()
}
