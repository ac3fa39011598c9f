package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"runq/internal/sched"
	logx "runq/pkg/logx"
)

// TelegramSink announces run results to a Telegram chat.
//
// Delivery is asynchronous and rate-limited; the scheduler is never blocked
// on the Telegram API. If the queue is full, the announcement is dropped.
type TelegramSink struct {
	sched.NopSink

	cfg TelegramConfig
	log logx.Logger
	bot *tele.Bot

	limiter *rate.Limiter
	queue   chan string

	once   sync.Once
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type TelegramConfig struct {
	Token        string
	ChatID       int64
	OnlyFailures bool
	RatePerSec   int
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*TelegramSink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	// Send-only: no poller.
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}

	rps := cfg.RatePerSec
	if rps < 1 {
		rps = 1
	}

	return &TelegramSink{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		queue:   make(chan string, 16),
	}, nil
}

func (t *TelegramSink) RunEnd(results []sched.Result, s sched.Summary) {
	if t.cfg.OnlyFailures && s.Failed == 0 {
		return
	}

	t.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.worker(ctx)
		}()
	})

	// Never block the scheduler on notification delivery.
	select {
	case t.queue <- formatRunMessage(results, s):
	default:
		t.log.Debug("telegram announcement dropped (queue full)")
	}
}

// Close stops the delivery worker. Queued announcements may be lost.
func (t *TelegramSink) Close() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}

func (t *TelegramSink) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-t.queue:
			if err := t.limiter.Wait(ctx); err != nil {
				return
			}
			_, err := t.bot.Send(tele.ChatID(t.cfg.ChatID), msg, &tele.SendOptions{
				DisableWebPagePreview: true,
			})
			if err != nil {
				t.log.Warn("telegram send failed", logx.Err(err))
			}
		}
	}
}

func formatRunMessage(results []sched.Result, s sched.Summary) string {
	var b strings.Builder
	if s.Failed > 0 {
		b.WriteString("❌ run failed\n")
	} else {
		b.WriteString("✅ run passed\n")
	}
	fmt.Fprintf(&b, "total=%d passed=%d failed=%d skipped=%d took=%s",
		s.Total, s.Passed, s.Failed, s.Skipped, s.Duration.Round(10*time.Millisecond))

	const maxListed = 5
	listed := 0
	for _, r := range results {
		if !r.Failed() {
			continue
		}
		if listed == maxListed {
			fmt.Fprintf(&b, "\n- ... and %d more", s.Failed-maxListed)
			break
		}
		msg := ""
		if r.Err != nil {
			msg = ": " + truncate(r.Err.Error(), 120)
		}
		fmt.Fprintf(&b, "\n- %s%s", r.Name, msg)
		listed++
	}
	return b.String()
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
