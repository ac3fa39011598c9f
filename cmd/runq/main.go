package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"runq/internal/app"
)

func main() {
	var (
		cfgPath string
		serve   bool
		history int
	)
	flag.StringVar(&cfgPath, "config", "./runq.yaml", "path to config file (yaml or json)")
	flag.BoolVar(&serve, "serve", false, "run on the configured schedule instead of once")
	flag.IntVar(&history, "history", 0, "list the last N persisted runs and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	defer a.Close()

	if history > 0 {
		runs, err := a.History(ctx, history)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			a.Close()
			os.Exit(1)
		}
		for _, r := range runs {
			fmt.Printf("%s  total=%d passed=%d failed=%d skipped=%d took=%dms\n",
				r.StartedAt.Format(time.RFC3339), r.Total, r.Passed, r.Failed, r.Skipped, r.TookMS)
		}
		return
	}

	if serve {
		if err := a.Serve(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			a.Close()
			os.Exit(1)
		}
		return
	}

	sum, err := a.RunOnce(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		a.Close()
		os.Exit(1)
	}
	if sum.Failed > 0 {
		a.Close()
		os.Exit(1)
	}
}
