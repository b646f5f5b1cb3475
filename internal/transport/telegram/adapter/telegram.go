// Package adapter connects telebot to the transport types: it long-polls
// Telegram, forwards text messages and button presses as updates, and sends
// replies, keyboards and callback answers.
package adapter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "relaybot/internal/runtime/supervisor"
	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

const (
	defaultPollTimeout = 10 * time.Second
	dropReportEvery    = 5 * time.Second
	stopGrace          = 2 * time.Second
)

// Config holds the Telegram connection settings.
type Config struct {
	Token       string
	PollTimeout time.Duration
}

type Adapter struct {
	log logx.Logger
	bot *tele.Bot

	mu  sync.Mutex
	out chan<- kit.Update
	sup *rtsup.Supervisor

	// dropped counts updates lost to a full consumer channel since the last report.
	dropped atomic.Uint64

	menuMu  sync.Mutex
	menuSum uint64
}

// New authenticates the token (getMe) and installs the update handlers.
// Polling starts with Start.
func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
	})
	if err != nil {
		return nil, err
	}
	a := &Adapter{log: log, bot: b}
	b.Handle(tele.OnText, a.onText)
	b.Handle(tele.OnCallback, a.onCallback)
	return a, nil
}

// Username is the bot's own username as reported by getMe.
func (a *Adapter) Username() string {
	if a.bot == nil || a.bot.Me == nil {
		return ""
	}
	return a.bot.Me.Username
}

func (a *Adapter) onText(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Chat == nil {
		return nil
	}
	a.emit(kit.Update{Kind: kit.UpdateMessage, Message: messageFromTele(m)})
	return nil
}

func (a *Adapter) onCallback(c tele.Context) error {
	cb, m := c.Callback(), c.Message()
	if cb == nil || m == nil || m.Chat == nil {
		return nil
	}
	out := &kit.Callback{
		ID:        cb.ID,
		ChatID:    m.Chat.ID,
		ThreadID:  m.ThreadID,
		MessageID: m.ID,
		Data:      callbackData(cb),
	}
	if cb.Sender != nil {
		out.FromID = cb.Sender.ID
	}
	a.emit(kit.Update{Kind: kit.UpdateCallback, Callback: out})
	return nil
}

func messageFromTele(m *tele.Message) *kit.Message {
	out := &kit.Message{
		ID:       m.ID,
		ChatID:   m.Chat.ID,
		ThreadID: m.ThreadID,
		Text:     m.Text,
	}
	if m.Sender != nil {
		out.FromID = m.Sender.ID
	}
	if m.ReplyTo != nil {
		out.ReplyToID = m.ReplyTo.ID
	}
	return out
}

// callbackData strips the "\f<unique>|" prefix telebot adds to buttons
// registered with a unique key.
func callbackData(cb *tele.Callback) string {
	d := cb.Data
	if !strings.HasPrefix(d, "\f") {
		return d
	}
	if _, rest, ok := strings.Cut(d, "|"); ok {
		return rest
	}
	return d[1:]
}

// emit never blocks the poller; overflow is counted and reported.
func (a *Adapter) emit(up kit.Update) {
	a.mu.Lock()
	out := a.out
	a.mu.Unlock()
	if out == nil {
		return
	}
	select {
	case out <- up:
	default:
		a.dropped.Add(1)
	}
}

// Start begins long polling and delivers updates to out until ctx ends or
// Stop is called. Calling Start on a running adapter is a no-op.
func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sup != nil {
		return nil
	}
	a.out = out
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(false))

	a.sup.Go0("telegram.drops", a.reportDrops)
	a.sup.Go0("telegram.halt", func(c context.Context) {
		<-c.Done()
		// Stop blocks until the poll loop acknowledges it.
		go a.bot.Stop()
	})
	// bot.Start returns only on Stop; any other return is restarted.
	a.sup.GoRestart0("telegram.poll", func(context.Context) {
		a.log.Info("polling started", logx.String("bot", a.Username()))
		a.bot.Start()
		a.log.Info("polling stopped")
	},
		rtsup.WithRestartBackoff(time.Second, 15*time.Second),
		rtsup.WithStopOnCleanExit(false),
	)
	return nil
}

func (a *Adapter) reportDrops(ctx context.Context) {
	t := time.NewTicker(dropReportEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			a.flushDrops()
			return
		case <-t.C:
			a.flushDrops()
		}
	}
}

func (a *Adapter) flushDrops() {
	if n := a.dropped.Swap(0); n > 0 {
		a.log.Warn("updates dropped; consumer too slow", logx.Uint64("count", n))
	}
}

// Stop ends polling. It waits at most stopGrace for the long poll to return
// and never fails shutdown.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	sup := a.sup
	a.sup, a.out = nil, nil
	a.mu.Unlock()
	if sup == nil {
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, stopGrace)
	defer cancel()
	switch err := sup.Stop(wctx); {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		a.log.Warn("telegram stop timed out", logx.Err(err))
	case err != nil:
		a.log.Debug("telegram stopped with error", logx.Err(err))
	}
	return nil
}
