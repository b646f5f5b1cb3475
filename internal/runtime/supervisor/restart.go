package supervisor

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	logx "relaybot/pkg/logx"
)

// stableRun is how long a run must last for the backoff to reset.
const stableRun = 30 * time.Second

// RestartOption configures GoRestart.
type RestartOption func(*restartPolicy)

type restartPolicy struct {
	min, max        time.Duration
	restartOnExit   bool
	publishFirstErr bool
}

// WithRestartBackoff bounds the exponential delay between restarts.
func WithRestartBackoff(min, max time.Duration) RestartOption {
	return func(p *restartPolicy) {
		if min > 0 {
			p.min = min
		}
		if max > 0 {
			p.max = max
		}
	}
}

// WithPublishFirstError records the first restart cause as the supervisor Err.
func WithPublishFirstError(enabled bool) RestartOption {
	return func(p *restartPolicy) { p.publishFirstErr = enabled }
}

// WithStopOnCleanExit controls whether a nil return ends the loop (default)
// or counts as a failure to restart from.
func WithStopOnCleanExit(enabled bool) RestartOption {
	return func(p *restartPolicy) { p.restartOnExit = !enabled }
}

func (s *Supervisor) GoRestart0(name string, fn func(ctx context.Context), opts ...RestartOption) {
	if fn == nil {
		return
	}
	s.GoRestart(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	}, opts...)
}

// GoRestart runs fn in a loop, restarting it after an error or panic with
// jittered exponential backoff until the supervisor context ends.
func (s *Supervisor) GoRestart(name string, fn func(ctx context.Context) error, opts ...RestartOption) {
	if fn == nil {
		return
	}
	p := restartPolicy{min: 250 * time.Millisecond, max: 30 * time.Second}
	for _, o := range opts {
		o(&p)
	}
	p.max = max(p.max, p.min)

	s.Go0(name, func(ctx context.Context) {
		delay := p.min
		for ctx.Err() == nil {
			began := time.Now()
			err := s.call(name, fn)
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			if err == nil {
				if !p.restartOnExit {
					return
				}
				err = errors.New(name + ": exited")
			}
			if p.publishFirstErr {
				s.record(err)
			}

			if time.Since(began) >= stableRun {
				delay = p.min
			}
			wait := delay + rand.N(delay/5+1)
			s.log.Warn("goroutine restarting", logx.String("name", name), logx.Duration("backoff", wait), logx.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			delay = min(delay*2, p.max)
		}
	})
}
