package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	logx "relaybot/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

// Chain wraps h so that m[0] runs first.
func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// slowRequest promotes successful request logs from debug to info.
const slowRequest = 750 * time.Millisecond

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, req *Request) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// MWPanicRecover turns a handler panic into an error and clears the
// button spinner for callbacks.
func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				reqLog(log, req).Error("handler panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				if req != nil {
					_ = req.Answer(ctx, "internal error")
				}
				err = fmt.Errorf("panic: %v", r)
			}()
			return next(ctx, req)
		}
	}
}

// MWRequestLog logs the outcome and latency of every request.
func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			dur := time.Since(start)

			l := reqLog(log, req).With(
				logx.String("kind", string(req.Update.Kind)),
				logx.Duration("dur", dur),
			)
			switch {
			case err != nil:
				l.Warn("request failed", logx.Err(err))
			case dur >= slowRequest:
				l.Info("request ok (slow)")
			default:
				l.Debug("request ok")
			}
			return err
		}
	}
}

// reqLog prefers the request-scoped logger (rid, chat, sender, cmd).
func reqLog(fallback logx.Logger, req *Request) logx.Logger {
	if req != nil && !req.Logger.IsZero() {
		return req.Logger
	}
	return fallback
}
