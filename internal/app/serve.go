package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"runq/internal/config"
	"runq/internal/schedule"
	logx "runq/pkg/logx"
)

// Serve runs the suite on the configured schedule until ctx is canceled.
// The config file is watched; logging changes apply live, everything else
// requires a restart.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.mgr.Get()
	if cfg.Schedule == nil || !cfg.Schedule.Enabled {
		return fmt.Errorf("serve mode requires schedule.enabled in %s", a.cfgPath)
	}

	var wg sync.WaitGroup

	trig := schedule.New(mapSchedule(cfg.Schedule), func(runCtx context.Context) {
		sum, err := a.RunOnce(runCtx)
		if err != nil {
			a.log.Warn("scheduled run ended early", logx.Err(err))
		}
		a.log.Info("scheduled run complete",
			logx.Int("total", sum.Total),
			logx.Int("failed", sum.Failed))
	}, a.log.With(logx.String("comp", "schedule")))
	if err := trig.Start(ctx); err != nil {
		return err
	}

	sub := a.mgr.Subscribe(8)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer a.mgr.Unsubscribe(sub)
		a.reloadLoop(ctx, sub)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.mgr.Watch(ctx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	// No-op outside a systemd unit with Type=notify.
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}
	a.log.Info("serving", logx.Time("next_run", trig.Next()))

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	trig.Stop(stopCtx)
	wg.Wait()
	return nil
}

// reloadLoop applies committed config updates. Bursts are coalesced so
// only the newest version is applied.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.mgr.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			a.applyReload(lastApplied, cfg)
			lastApplied = cfg
		}
	}
}

// applyReload applies what can change live (logging, the task list read
// at the next run) and warns about sections that need a restart.
func (a *App) applyReload(prev, cfg *config.Config) {
	a.logs.Apply(mapLogging(cfg))

	var stale []string
	hasStorage := cfg.Storage != nil && strings.TrimSpace(cfg.Storage.Driver) != ""
	if (a.store != nil) != hasStorage {
		stale = append(stale, "storage")
	}
	hasNotify := cfg.Notify != nil && cfg.Notify.Enabled
	if (a.notify != nil) != hasNotify {
		stale = append(stale, "notify")
	}
	if prev != nil && prev.Schedule != nil && cfg.Schedule != nil &&
		(prev.Schedule.Spec != cfg.Schedule.Spec || prev.Schedule.Timezone != cfg.Schedule.Timezone) {
		stale = append(stale, "schedule")
	}
	if len(stale) > 0 {
		a.log.Warn("config sections changed; restart required",
			logx.String("sections", strings.Join(stale, ",")))
	}

	a.log.Info("config reloaded")
}
