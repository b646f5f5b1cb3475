package router

import (
	"context"
	"strings"
	"sync"
	"time"

	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

// Options tune the dispatcher.
type Options struct {
	Workers   int
	QueueSize int
	// DefaultTimeout bounds handlers without their own Timeout.
	DefaultTimeout time.Duration
}

// CommandManager routes updates to commands, callback routes and the
// plain-text handler, and runs them on a bounded worker pool.
type CommandManager struct {
	log     logx.Logger
	adapter kit.Adapter
	opts    Options

	mu        sync.RWMutex
	commands  map[string]*Command // names and aliases
	ordered   []Command
	callbacks map[string]CallbackRoute
	text      HandlerFunc
}

func NewCommandManager(log logx.Logger, adapter kit.Adapter, opts Options) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = time.Minute
	}
	return &CommandManager{
		log:       log,
		adapter:   adapter,
		opts:      opts,
		commands:  map[string]*Command{},
		callbacks: map[string]CallbackRoute{},
	}
}

// SetRegistry replaces the commands, callback routes and the handler for
// text that is not a command. /help is always added.
func (m *CommandManager) SetRegistry(cmds []Command, cbs []CallbackRoute, text HandlerFunc) {
	cmds = append(cmds, m.helpCommand())

	ordered := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		c.Name = strings.ToLower(strings.TrimSpace(c.Name))
		if c.Name != "" && c.Handle != nil {
			ordered = append(ordered, c)
		}
	}
	byName := make(map[string]*Command, len(ordered))
	for i := range ordered {
		byName[ordered[i].Name] = &ordered[i]
	}
	// Aliases never shadow a name or an earlier alias.
	for i := range ordered {
		for _, a := range ordered[i].Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || strings.ContainsRune(a, ' ') {
				continue
			}
			for _, key := range []string{a, sanitizeTelegramCommand(a)} {
				if _, taken := byName[key]; key != "" && !taken {
					byName[key] = &ordered[i]
				}
			}
		}
	}

	routes := make(map[string]CallbackRoute, len(cbs))
	for _, r := range cbs {
		if a := strings.TrimSpace(r.Action); a != "" && r.Handle != nil {
			routes[a] = r
		}
	}

	m.mu.Lock()
	m.commands, m.ordered, m.callbacks, m.text = byName, ordered, routes, text
	m.mu.Unlock()
}

func (m *CommandManager) helpCommand() Command {
	return Command{
		Name:        "help",
		Aliases:     []string{"h"},
		Description: "list commands",
		Usage:       "/help",
		Handle: func(ctx context.Context, req *Request) error {
			_, err := req.Sender.SendText(ctx, req.Chat, m.helpText(), &kit.SendOptions{DisablePreview: true, ParseMode: "HTML"})
			return err
		},
	}
}

// PublishMenu pushes the command list to the Telegram menu when the adapter
// supports it. Failures are logged only.
func (m *CommandManager) PublishMenu(ctx context.Context) {
	up, ok := m.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return
	}
	m.mu.RLock()
	menu := buildTelegramMenuCommands(m.ordered)
	m.mu.RUnlock()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := up.UpdateMenuCommands(cctx, menu); err != nil {
		m.log.Warn("menu update failed", logx.Err(err))
	}
}
