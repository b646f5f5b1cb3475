package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverlay lists the settings that may come from the environment.
// Non-empty values win over the file.
type envOverlay struct {
	Token      string `env:"BOT_TOKEN"`
	OperatorID int64  `env:"OPERATOR_ID"`
	LogLevel   string `env:"RELAY_LOG_LEVEL"`
}

// ParseEnv loads the overlay from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var ov envOverlay
	if err := ParseEnv(&ov); err != nil {
		return err
	}
	if t := strings.TrimSpace(ov.Token); t != "" {
		cfg.Telegram.Token = t
	}
	if ov.OperatorID != 0 {
		cfg.Telegram.OperatorID = ov.OperatorID
	}
	if l := strings.TrimSpace(ov.LogLevel); l != "" {
		cfg.Logging.Level = strings.ToLower(l)
	}
	return nil
}
