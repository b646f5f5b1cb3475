package app

import (
	"context"
	"fmt"
	"time"

	logx "relaybot/pkg/logx"
)

// StopReason is logged when the app shuts down.
type StopReason string

const (
	StopUnknown    StopReason = "unknown"
	StopSIGINT     StopReason = "sigint"
	StopSIGTERM    StopReason = "sigterm"
	StopFatalError StopReason = "fatal_error"
)

// Stop shuts down in dependency order: no new jobs, no new updates, then the
// remaining goroutines. Each step is bounded so one stuck component cannot
// hold the process. Pending entries are dropped.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.notify.Stopping()
	a.sup.Cancel()

	a.stopStep(ctx, "scheduler", 2*time.Second, func(c context.Context) error {
		a.sched.Stop(c)
		return nil
	})
	a.stopStep(ctx, "adapter", 2*time.Second, a.adapter.Stop)
	a.stopStep(ctx, "supervisor", 4*time.Second, a.sup.Stop)

	c := a.sup.Counters()
	a.log.Info("stopped",
		logx.Int("pending_dropped", a.relay.Pending().Len()),
		logx.Int64("goroutines_left", c.Active),
		logx.Uint64("goroutines_started", c.Started),
	)
	return a.logs.Close()
}

// stopStep runs fn with at most limit (and never past ctx's deadline). A
// step that overruns is abandoned and logged.
func (a *App) stopStep(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	began := time.Now()
	sctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- fn(sctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step failed", logx.String("step", name), logx.Err(err))
			return
		}
		a.log.Debug("stop step done", logx.String("step", name), logx.Duration("took", time.Since(began)))
	case <-sctx.Done():
		a.log.Warn("stop step abandoned", logx.String("step", name), logx.Duration("after", time.Since(began)))
	}
}
