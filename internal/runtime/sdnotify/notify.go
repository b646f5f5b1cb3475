// Package sdnotify reports service state to systemd (Type=notify units).
// Every call is a no-op when NOTIFY_SOCKET is not set.
package sdnotify

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "relaybot/pkg/logx"
)

// notifyFunc is daemon.SdNotify; tests replace it.
type notifyFunc func(unsetEnvironment bool, state string) (bool, error)

type Notifier struct {
	log      logx.Logger
	notify   notifyFunc
	watchdog func(unsetEnvironment bool) (time.Duration, error)
}

func New(log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{log: log, notify: daemon.SdNotify, watchdog: daemon.SdWatchdogEnabled}
}

func (n *Notifier) Ready()    { n.send(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by `systemctl status`.
func (n *Notifier) Status(s string) { n.send("STATUS=" + s) }

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		n.log.Debug("sd_notify sent", logx.String("state", state))
	}
}

// WatchdogLoop pings the systemd watchdog at half the configured interval
// until ctx is done. It returns immediately when the unit has no watchdog.
func (n *Notifier) WatchdogLoop(ctx context.Context) {
	interval, err := n.watchdog(false)
	if err != nil {
		n.log.Warn("watchdog check failed", logx.Err(err))
		return
	}
	if interval <= 0 {
		return
	}
	every := interval / 2
	n.log.Info("watchdog enabled", logx.Duration("interval", interval))

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
