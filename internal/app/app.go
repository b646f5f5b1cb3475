package app

import (
	"context"
	"fmt"
	"time"

	"relaybot/internal/config"
	"relaybot/internal/eventbus"
	"relaybot/internal/relay"
	"relaybot/internal/runtime/sdnotify"
	"relaybot/internal/runtime/supervisor"
	"relaybot/internal/task/scheduler"
	kit "relaybot/internal/transport"
	telegram "relaybot/internal/transport/telegram/adapter"
	"relaybot/internal/transport/telegram/router"
	logx "relaybot/pkg/logx"
)

const sweepJob = "relay.pending.sweep"

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	adapter *telegram.Adapter
	relay   *relay.Service
	sched   *scheduler.Service
	cmdm    *router.CommandManager
	notify  *sdnotify.Notifier

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	d, err := cfg.Durations()
	if err != nil {
		return nil, err
	}

	// The chat sink needs the adapter, which needs a logger: start the
	// service without a sender and attach it once the bot exists.
	logSvc, root := logx.New(logConfig(cfg), nil)
	log := root.With(logx.String("comp", "app"))

	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: d.PollTimeout,
	}, root.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	logSvc.SetSender(ad)
	logSvc.SetChatTarget(cfg.Telegram.LogChat, cfg.Logging.Telegram.ThreadID)

	rcfg, err := relayConfig(cfg)
	if err != nil {
		return nil, err
	}
	bus := eventbus.New()
	rel := relay.New(rcfg, ad, root.With(logx.String("comp", "relay")), bus)

	cmdm := router.NewCommandManager(root.With(logx.String("comp", "commands")), ad, router.Options{})
	cmdm.SetRegistry(rel.Commands(), rel.Callbacks(), rel.TextHandler())

	sched := scheduler.New(scheduler.Config{}, root.With(logx.String("comp", "scheduler")))
	if err := sched.AddInterval(sweepJob, d.PendingSweep, time.Minute, sweepFunc(rel)); err != nil {
		return nil, err
	}

	staging, _ := rel.Registry().Staging()
	log.Info("relay configured",
		logx.String("bot", ad.Username()),
		logx.Int64("operator_id", rel.Gate().Operator()),
		logx.Int64("staging_chat", staging),
		logx.Int("destinations", len(rel.Registry().Destinations())),
	)

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		adapter: ad,
		relay:   rel,
		sched:   sched,
		cmdm:    cmdm,
		notify:  sdnotify.New(root.With(logx.String("comp", "sdnotify"))),
		updates: make(chan kit.Update, 256),
	}, nil
}

func sweepFunc(rel *relay.Service) scheduler.Job {
	return func(ctx context.Context) error {
		rel.Sweep(ctx)
		return nil
	}
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	// Reject reloads whose relay section cannot be mapped.
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		_, err := relayConfig(cfg)
		return err
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	a.cmdm.PublishMenu(a.sup.Context())
	a.sched.Start(a.sup.Context())

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		a.logEvents(c, events)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) { a.reloadLoop(c, sub) })

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.sup.Go0("sdnotify.watchdog", a.notify.WatchdogLoop)
	a.notify.Ready()
	a.notify.Status("relaying")

	a.log.Info("app started")
	return nil
}

func (a *App) logEvents(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
		}
	}
}
