package relay

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"relaybot/internal/eventbus"
	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

// DispatcherConfig tunes the broadcast fan-out.
type DispatcherConfig struct {
	Workers     int           // concurrent sends (default 4)
	RatePerSec  int           // shared send rate across destinations (default 20)
	RetryMax    int           // retries after the first attempt
	RetryBase   time.Duration // first retry delay; doubles per attempt (default 500ms)
	SendTimeout time.Duration // per attempt (default 10s)
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 20
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	return c
}

const maxRetryDelay = 30 * time.Second

// Dispatcher sends a text to a set of chats, best-effort: every destination
// is attempted independently and failures only end up in the report.
type Dispatcher struct {
	sender kit.Sender
	log    logx.Logger
	bus    eventbus.Bus

	mu      sync.Mutex
	cfg     DispatcherConfig
	limiter *rate.Limiter
}

func NewDispatcher(sender kit.Sender, cfg DispatcherConfig, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	d := &Dispatcher{sender: sender, log: log, bus: bus}
	d.Apply(cfg)
	return d
}

// Apply swaps the tuning at runtime; in-flight broadcasts keep their snapshot.
func (d *Dispatcher) Apply(cfg DispatcherConfig) {
	cfg = cfg.withDefaults()
	d.mu.Lock()
	d.cfg = cfg
	d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	d.mu.Unlock()
}

// Broadcast sends text to every chat in dests. It never fails as a whole:
// an empty set is a successful no-op and per-chat failures are reported.
func (d *Dispatcher) Broadcast(ctx context.Context, dests []int64, text string) DeliveryReport {
	rep := DeliveryReport{Attempted: len(dests)}
	if len(dests) == 0 {
		return rep
	}

	// Snapshot mutable dependencies to avoid races with Apply().
	d.mu.Lock()
	cfg := d.cfg
	lim := d.limiter
	d.mu.Unlock()

	start := time.Now()
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(cfg.Workers)
	for _, chatID := range dests {
		chatID := chatID
		g.Go(func() error {
			err := d.sendOne(ctx, cfg, lim, chatID, text)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Failures = append(rep.Failures, DeliveryFailure{ChatID: chatID, Err: err})
			} else {
				rep.Delivered = append(rep.Delivered, chatID)
			}
			return nil // one destination never cancels the others
		})
	}
	_ = g.Wait()

	sort.Slice(rep.Delivered, func(i, j int) bool { return rep.Delivered[i] < rep.Delivered[j] })
	sort.Slice(rep.Failures, func(i, j int) bool { return rep.Failures[i].ChatID < rep.Failures[j].ChatID })

	fields := []logx.Field{
		logx.Int("total", rep.Attempted),
		logx.Int("failed", rep.Failed()),
		logx.Duration("dur", time.Since(start)),
	}
	if rep.Failed() > 0 {
		d.log.Warn("broadcast finished with failures", fields...)
	} else {
		d.log.Info("broadcast finished", fields...)
	}
	return rep
}

func (d *Dispatcher) sendOne(ctx context.Context, cfg DispatcherConfig, lim *rate.Limiter, chatID int64, text string) error {
	var last error
	for attempt := 0; attempt <= cfg.RetryMax; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				last = err
				break
			}
		}
		sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		_, err := d.sender.SendText(sctx, kit.ChatTarget{ChatID: chatID}, text, &kit.SendOptions{DisablePreview: true})
		cancel()
		if err == nil {
			return nil
		}
		last = err
		if attempt == cfg.RetryMax || kit.IsNoRetry(err) || ctx.Err() != nil {
			break
		}

		delay := retryDelay(cfg.RetryBase, attempt+1)
		var ra kit.RetryAfterError
		if errors.As(err, &ra) && ra.RetryAfter() > delay {
			delay = min(ra.RetryAfter(), maxRetryDelay)
		}
		d.log.Debug("broadcast send retry scheduled", logx.Int64("chat_id", chatID), logx.Int("attempt", attempt+2), logx.Duration("delay", delay), logx.Err(err))
		if err := sleepCtx(ctx, delay); err != nil {
			last = err
			break
		}
	}

	d.log.Warn("broadcast send failed", logx.Int64("chat_id", chatID), logx.Err(last))
	d.bus.Publish(eventbus.Event{Type: EventDeliveryFailed, Data: DeliveryFailure{ChatID: chatID, Err: last}})
	return last
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}

// retryDelay is base * 2^(attempt-1) with 0.7..1.3 jitter, capped.
func retryDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxRetryDelay {
			d = maxRetryDelay
			break
		}
	}
	j := 0.7 + rand.Float64()*0.6
	d = time.Duration(float64(d) * j)
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}
