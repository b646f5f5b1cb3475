package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	kit "relaybot/internal/transport"
)

const (
	chatQueueSize   = 256
	chatSendTimeout = 10 * time.Second
	chatLineMax     = 3500
	chatValueMax    = 600
)

type chatLine struct {
	to   kit.ChatTarget
	text string
}

// chatSink is a zerolog.LevelWriter that forwards lines at or above
// minLevel to a chat, rate limited and without ever blocking the caller.
type chatSink struct {
	mu       sync.Mutex
	sender   kit.Sender
	to       kit.ChatTarget
	minLevel zerolog.Level
	limiter  *rate.Limiter

	queue  chan chatLine
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

func newChatSink(sender kit.Sender) *chatSink {
	return &chatSink{
		sender:   sender,
		minLevel: zerolog.WarnLevel,
		limiter:  rate.NewLimiter(1, 1),
		queue:    make(chan chatLine, chatQueueSize),
	}
}

func (c *chatSink) configure(cfg ChatConfig) {
	rps := max(cfg.RatePerSec, 1)
	c.mu.Lock()
	c.minLevel = parseLevel(cfg.MinLevel, zerolog.WarnLevel)
	c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	if cfg.ThreadID != 0 {
		c.to.ThreadID = cfg.ThreadID
	}
	c.mu.Unlock()

	if cfg.Enabled {
		c.once.Do(c.start)
	}
}

func (c *chatSink) setSender(s kit.Sender) {
	c.mu.Lock()
	c.sender = s
	c.mu.Unlock()
}

func (c *chatSink) setTarget(to kit.ChatTarget) {
	c.mu.Lock()
	c.to = to
	c.mu.Unlock()
}

func (c *chatSink) start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()
	go c.deliver(ctx)
}

func (c *chatSink) close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *chatSink) deliver(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ln := <-c.queue:
			c.mu.Lock()
			sender := c.sender
			c.mu.Unlock()
			if sender == nil {
				continue
			}
			sctx, cancel := context.WithTimeout(ctx, chatSendTimeout)
			_, _ = sender.SendText(sctx, ln.to, ln.text, &kit.SendOptions{DisablePreview: true})
			cancel()
		}
	}
}

func (c *chatSink) Write(p []byte) (int, error) { return c.WriteLevel(zerolog.InfoLevel, p) }

func (c *chatSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	c.mu.Lock()
	to, ready := c.to, c.sender != nil && level >= c.minLevel
	lim := c.limiter
	c.mu.Unlock()

	if !ready || to.ChatID == 0 || !lim.Allow() {
		return len(p), nil
	}
	if text := formatChatLine(p); text != "" {
		select {
		case c.queue <- chatLine{to: to, text: text}:
		default:
		}
	}
	return len(p), nil
}

// formatChatLine renders a zerolog JSON line as "[LEVEL] message" followed
// by one "- key=value" line per field, keys sorted.
func formatChatLine(p []byte) string {
	raw := strings.TrimSpace(string(p))
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return truncate(raw, chatLineMax)
	}

	var b strings.Builder
	if lvl, _ := m["level"].(string); lvl != "" {
		fmt.Fprintf(&b, "[%s] ", strings.ToUpper(lvl))
	}
	msg, _ := m["message"].(string)
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", "message":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s=%s", k, truncate(fmt.Sprint(m[k]), chatValueMax))
	}
	return truncate(b.String(), chatLineMax)
}

func truncate(s string, n int) string {
	switch {
	case n <= 0 || len(s) <= n:
		return s
	case n < 10:
		return s[:n]
	}
	return s[:n-3] + "..."
}
