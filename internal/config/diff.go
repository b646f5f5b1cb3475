package config

import (
	"reflect"
	"sort"
	"strings"

	logx "relaybot/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) safe structured attrs for logging (never includes the bot token),
// and (3) the settings that changed but only take effect after a restart.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 16)
	restart := make([]string, 0, 3)

	// Telegram (never log token)
	tokenChanged := strings.TrimSpace(oldCfg.Telegram.Token) != strings.TrimSpace(newCfg.Telegram.Token)
	if tokenChanged {
		restart = append(restart, "telegram.token")
	}
	if oldCfg.Telegram.OperatorID != newCfg.Telegram.OperatorID {
		restart = append(restart, "telegram.operator_id")
	}
	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) {
		restart = append(restart, "telegram.poll_timeout")
	}
	if tokenChanged ||
		oldCfg.Telegram.OperatorID != newCfg.Telegram.OperatorID ||
		strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		oldCfg.Telegram.LogChat != newCfg.Telegram.LogChat {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Bool("telegram.token_changed", tokenChanged),
			logx.Bool("telegram.log_chat_set", newCfg.Telegram.LogChat != 0),
		)
	}

	// Logging
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	// Relay seeds only apply at startup; knobs apply live.
	if oldCfg.Relay.StagingChat != newCfg.Relay.StagingChat ||
		!reflect.DeepEqual(oldCfg.Relay.Destinations, newCfg.Relay.Destinations) {
		changed = append(changed, "relay.seed")
		restart = append(restart, "relay.staging_chat/destinations")
	}
	if oldCfg.Relay.Pending != newCfg.Relay.Pending {
		changed = append(changed, "relay.pending")
		attrs = append(attrs,
			logx.Int("pending.max_entries", newCfg.Relay.Pending.MaxEntries),
			logx.String("pending.ttl", newCfg.Relay.Pending.TTL),
			logx.String("pending.sweep_every", newCfg.Relay.Pending.SweepEvery),
		)
	}
	if oldCfg.Relay.Broadcast != newCfg.Relay.Broadcast {
		changed = append(changed, "relay.broadcast")
		attrs = append(attrs,
			logx.Int("broadcast.workers", newCfg.Relay.Broadcast.Workers),
			logx.Int("broadcast.rate_per_sec", newCfg.Relay.Broadcast.RatePerSec),
			logx.Int("broadcast.retry_max", newCfg.Relay.Broadcast.RetryMax),
			logx.String("broadcast.send_timeout", newCfg.Relay.Broadcast.SendTimeout),
		)
	}

	sort.Strings(changed)
	return changed, attrs, restart
}
