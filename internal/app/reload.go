package app

import (
	"context"
	"strings"
	"time"

	"relaybot/internal/config"
	logx "relaybot/pkg/logx"
)

// reloadLoop applies committed configs. A burst of reloads is applied once,
// using the newest config.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	defer a.cfgm.Unsubscribe(sub)
	applied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			next = latest(sub, next)
			a.applyConfig(applied, next)
			applied = next
		}
	}
}

// latest drains whatever is already queued on sub and returns the newest config.
func latest(sub <-chan *config.Config, cur *config.Config) *config.Config {
	for {
		select {
		case c, ok := <-sub:
			if !ok {
				return cur
			}
			if c != nil {
				cur = c
			}
		default:
			return cur
		}
	}
}

// applyConfig pushes the reloadable parts of next into the running services.
// The operator and the chat seeds only apply at startup.
func (a *App) applyConfig(prev, next *config.Config) {
	sections, attrs, restart := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if len(restart) > 0 {
		a.log.Warn("config changes need a restart to take effect", logx.String("keys", strings.Join(restart, ",")))
	}

	// Target before Apply so the sink never runs against a stale chat.
	a.logs.SetChatTarget(next.Telegram.LogChat, next.Logging.Telegram.ThreadID)
	a.logs.Apply(logConfig(next))

	if rcfg, err := relayConfig(next); err != nil {
		a.log.Warn("invalid relay config; keeping previous", logx.Err(err))
	} else {
		a.relay.Apply(rcfg)
	}

	if d, err := next.Durations(); err == nil {
		if err := a.sched.AddInterval(sweepJob, d.PendingSweep, time.Minute, sweepFunc(a.relay)); err != nil {
			a.log.Warn("sweep reschedule failed", logx.Err(err))
		}
	}

	a.log.Info("config reloaded", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)...)
}
