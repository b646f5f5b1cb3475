package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	vOnce sync.Once
	vInst *validator.Validate
)

func structValidator() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// prefer json tag names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		vInst = v
	})
	return vInst
}

// Durations holds the parsed duration fields with defaults applied.
type Durations struct {
	PollTimeout      time.Duration
	PendingTTL       time.Duration
	PendingSweep     time.Duration
	BroadcastRetry   time.Duration
	BroadcastTimeout time.Duration
}

func (c *Config) Durations() (Durations, error) {
	var (
		d    Durations
		err  error
		errs []error
	)
	if d.PollTimeout, err = durationOr("telegram.poll_timeout", c.Telegram.PollTimeout, 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if d.PendingTTL, err = durationOr("relay.pending.ttl", c.Relay.Pending.TTL, 72*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if d.PendingSweep, err = durationOr("relay.pending.sweep_every", c.Relay.Pending.SweepEvery, 10*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if d.BroadcastRetry, err = durationOr("relay.broadcast.retry_base", c.Relay.Broadcast.RetryBase, 500*time.Millisecond); err != nil {
		errs = append(errs, err)
	}
	if d.BroadcastTimeout, err = durationOr("relay.broadcast.send_timeout", c.Relay.Broadcast.SendTimeout, 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	return d, errors.Join(errs...)
}

// Validate checks struct tags and duration fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q", trimNamespace(fe.Namespace()), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}
	if _, err := cfg.Durations(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Logging.Telegram.Enabled && cfg.Telegram.LogChat == 0 {
		errs = append(errs, errors.New("logging.telegram.enabled requires telegram.log_chat"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// trimNamespace turns "Config.telegram.token" into "telegram.token".
func trimNamespace(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
