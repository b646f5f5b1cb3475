package router

import (
	"context"
	"strconv"
	"strings"
	"time"

	rtsup "relaybot/internal/runtime/supervisor"
	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
	"relaybot/pkg/tgui"
)

const drainTimeout = 3 * time.Second

// job is a routed request waiting for a worker.
type job struct {
	req  *Request
	run  HandlerFunc
	busy func(ctx context.Context)
}

// DispatchLoop routes updates until ctx ends or updates is closed. Handlers
// run on Options.Workers workers; when the queue is full the user is told
// the bot is busy instead of blocking the poller.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	sup := rtsup.NewSupervisor(ctx, rtsup.WithLogger(m.log), rtsup.WithCancelOnError(false))
	jobs := make(chan *job, m.opts.QueueSize)

	for i := range m.opts.Workers {
		sup.GoRestart("router.worker."+strconv.Itoa(i), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case j := <-jobs:
					_ = j.run(c, j.req)
					_ = j.req.Answer(c, "")
				}
			}
		},
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			rtsup.WithPublishFirstError(true),
		)
	}
	m.log.Info("command dispatcher started", logx.Int("workers", m.opts.Workers), logx.Int("queue", m.opts.QueueSize))

	defer func() {
		wctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		_ = sup.Stop(wctx)
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				m.log.Info("updates channel closed")
				return nil
			}
			j := m.route(ctx, up)
			if j == nil {
				continue
			}
			select {
			case jobs <- j:
			default:
				j.req.Logger.Warn("request dropped; queue full")
				j.busy(ctx)
			}
		}
	}
}

// route resolves an update to a job. Nil means nothing to run.
func (m *CommandManager) route(ctx context.Context, up kit.Update) *job {
	switch {
	case up.Kind == kit.UpdateMessage && up.Message != nil:
		return m.routeMessage(ctx, up)
	case up.Kind == kit.UpdateCallback && up.Callback != nil:
		return m.routeCallback(ctx, up)
	}
	return nil
}

func (m *CommandManager) routeMessage(ctx context.Context, up kit.Update) *job {
	msg := up.Message
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
	busy := func(ctx context.Context) {
		_, _ = m.adapter.SendText(ctx, chat, "busy, try again", &kit.SendOptions{ReplyTo: msg.ID})
	}

	m.mu.RLock()
	commands, textHandler := m.commands, m.text
	m.mu.RUnlock()

	if !strings.HasPrefix(text, "/") {
		if textHandler == nil {
			return nil
		}
		return m.newJob(newMessageRequest(up, m.adapter, m.log, "text"), textHandler, 0, busy)
	}

	parts := tokenizeCommandLine(text)
	if len(parts) == 0 {
		return nil
	}
	word, ok := splitCommandWord(parts[0])
	if !ok {
		return nil
	}
	cmd := commands[word]
	if cmd == nil {
		_, _ = m.adapter.SendText(ctx, chat, "Unknown command. Try /help", &kit.SendOptions{ReplyTo: msg.ID})
		return nil
	}

	req := newMessageRequest(up, m.adapter, m.log, cmd.Name)
	req.RawArgs = parts[1:]
	req.Args, req.Flags, req.BoolFlags = parseFlags(req.RawArgs)
	return m.newJob(req, cmd.Handle, cmd.Timeout, busy)
}

func (m *CommandManager) routeCallback(ctx context.Context, up kit.Update) *job {
	cb := up.Callback
	action, payload := tgui.ParseData(cb.Data)

	m.mu.RLock()
	route, ok := m.callbacks[action]
	m.mu.RUnlock()
	if !ok {
		_ = m.adapter.AnswerCallback(ctx, cb.ID, "")
		return nil
	}

	req := newCallbackRequest(up, m.adapter, m.log, action, payload)
	h := func(ctx context.Context, r *Request) error { return route.Handle(ctx, r, payload) }
	return m.newJob(req, h, route.Timeout, func(ctx context.Context) {
		_ = m.adapter.AnswerCallback(ctx, cb.ID, "busy")
	})
}

func (m *CommandManager) newJob(req *Request, h HandlerFunc, timeout time.Duration, busy func(context.Context)) *job {
	if timeout <= 0 {
		timeout = m.opts.DefaultTimeout
	}
	return &job{
		req:  req,
		run:  Chain(h, MWPanicRecover(m.log), MWRequestLog(m.log), MWTimeout(timeout)),
		busy: busy,
	}
}
