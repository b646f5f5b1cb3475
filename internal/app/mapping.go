package app

import (
	"relaybot/internal/config"
	"relaybot/internal/relay"
	logx "relaybot/pkg/logx"
)

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func relayConfig(cfg *config.Config) (relay.Config, error) {
	d, err := cfg.Durations()
	if err != nil {
		return relay.Config{}, err
	}
	return relay.Config{
		OperatorID:   cfg.Telegram.OperatorID,
		StagingChat:  cfg.Relay.StagingChat,
		Destinations: cfg.Relay.Destinations,
		MaxPending:   cfg.Relay.Pending.MaxEntries,
		PendingTTL:   d.PendingTTL,
		Dispatch: relay.DispatcherConfig{
			Workers:     cfg.Relay.Broadcast.Workers,
			RatePerSec:  cfg.Relay.Broadcast.RatePerSec,
			RetryMax:    cfg.Relay.Broadcast.RetryMax,
			RetryBase:   d.BroadcastRetry,
			SendTimeout: d.BroadcastTimeout,
		},
	}, nil
}
