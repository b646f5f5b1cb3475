package config

// Config is the on-disk configuration (JSON or YAML).
//
// Durations are Go duration strings ("500ms", "10s", "72h") and are parsed
// by Resolve; empty strings fall back to defaults.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Relay    RelayConfig    `json:"relay"`
}

type TelegramConfig struct {
	Token string `json:"token" validate:"required"`
	// OperatorID is the only Telegram user allowed to moderate and run directives.
	OperatorID int64 `json:"operator_id" validate:"required,ne=0"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
	// LogChat is the chat id receiving log lines when logging.telegram is enabled.
	LogChat int64 `json:"log_chat,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id" validate:"gte=0"`
	MinLevel   string `json:"min_level" validate:"omitempty,oneof=trace debug info warn warning error"`
	RatePerSec int    `json:"rate_per_sec" validate:"gte=0"`
}

type RelayConfig struct {
	// StagingChat and Destinations seed the registry at startup.
	// Directives change them at runtime; reloads do not.
	StagingChat  int64   `json:"staging_chat,omitempty"`
	Destinations []int64 `json:"destinations,omitempty" validate:"dive,ne=0"`

	Pending   PendingConfig   `json:"pending"`
	Broadcast BroadcastConfig `json:"broadcast"`
}

// PendingConfig bounds the store of messages awaiting a decision.
//
// Defaults:
//   - max_entries: 1000
//   - ttl: "72h"
//   - sweep_every: "10m"
type PendingConfig struct {
	MaxEntries int    `json:"max_entries,omitempty" validate:"gte=0"`
	TTL        string `json:"ttl,omitempty"`
	SweepEvery string `json:"sweep_every,omitempty"`
}

// BroadcastConfig tunes fan-out to destinations.
//
// Defaults:
//   - workers: 4
//   - rate_per_sec: 20 (Telegram allows ~30 msg/s per bot)
//   - retry_max: 2
//   - retry_base: "500ms"
//   - send_timeout: "10s"
type BroadcastConfig struct {
	Workers     int    `json:"workers,omitempty" validate:"gte=0,lte=64"`
	RatePerSec  int    `json:"rate_per_sec,omitempty" validate:"gte=0,lte=30"`
	RetryMax    int    `json:"retry_max,omitempty" validate:"gte=0,lte=10"`
	RetryBase   string `json:"retry_base,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{PollTimeout: "10s"},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Telegram: LoggingTelegram{
				MinLevel:   "warn",
				RatePerSec: 1,
			},
		},
		Relay: RelayConfig{
			Pending: PendingConfig{MaxEntries: 1000, TTL: "72h", SweepEvery: "10m"},
			Broadcast: BroadcastConfig{
				Workers:     4,
				RatePerSec:  20,
				RetryMax:    2,
				RetryBase:   "500ms",
				SendTimeout: "10s",
			},
		},
	}
}
