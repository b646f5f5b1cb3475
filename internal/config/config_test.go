package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
telegram:
  token: "123:abc"
  operator_id: 42
relay:
  staging_chat: -100
  destinations: [-200, -300]
  broadcast:
    workers: 8
`)
	cfg, err := NewConfigManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.OperatorID != 42 || cfg.Relay.StagingChat != -100 || len(cfg.Relay.Destinations) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Relay.Broadcast.Workers != 8 {
		t.Fatalf("workers = %d, want 8", cfg.Relay.Broadcast.Workers)
	}
	// Omitted keys keep their defaults.
	if cfg.Relay.Broadcast.RatePerSec != 20 || cfg.Relay.Pending.TTL != "72h" || !cfg.Logging.Console {
		t.Fatalf("defaults not kept: %+v", cfg.Relay)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram":{"token":"x","operator_id":1,"owner":2}}`)
	if _, err := NewConfigManager(path).Parse(); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram":{"token":"x","operator_id":1}}{}`)
	if _, err := NewConfigManager(path).Parse(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	valid := func() *Config {
		c := Default()
		c.Telegram.Token = "123:abc"
		c.Telegram.OperatorID = 42
		return c
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Telegram.Token = "" }, wantErr: "telegram.token"},
		{name: "missing operator", mutate: func(c *Config) { c.Telegram.OperatorID = 0 }, wantErr: "telegram.operator_id"},
		{name: "bad duration", mutate: func(c *Config) { c.Relay.Pending.TTL = "soon" }, wantErr: "relay.pending.ttl"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "zero destination", mutate: func(c *Config) { c.Relay.Destinations = []int64{0} }, wantErr: "destinations"},
		{name: "rate above telegram limit", mutate: func(c *Config) { c.Relay.Broadcast.RatePerSec = 100 }, wantErr: "rate_per_sec"},
		{name: "log chat required", mutate: func(c *Config) { c.Logging.Telegram.Enabled = true }, wantErr: "log_chat"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := valid()
			tt.mutate(c)
			err := Validate(c)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDurationsDefaults(t *testing.T) {
	t.Parallel()
	d, err := (&Config{}).Durations()
	if err != nil {
		t.Fatalf("Durations: %v", err)
	}
	if d.PendingTTL != 72*time.Hour || d.PendingSweep != 10*time.Minute || d.BroadcastTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}

func TestEnvOverlayAndMissingFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999:env")
	t.Setenv("OPERATOR_ID", "7")
	t.Setenv("RELAY_LOG_LEVEL", "DEBUG")

	m := NewConfigManager(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "999:env" || cfg.Telegram.OperatorID != 7 || cfg.Logging.Level != "debug" {
		t.Fatalf("env overlay not applied: %+v", cfg.Telegram)
	}
	if m.Get() != cfg {
		t.Fatal("Load must commit the config")
	}
}

func TestSummarizeConfigChangeNeverLogsToken(t *testing.T) {
	t.Parallel()
	oldCfg := Default()
	oldCfg.Telegram.Token = "secret-old"
	oldCfg.Telegram.OperatorID = 1
	newCfg := Default()
	newCfg.Telegram.Token = "secret-new"
	newCfg.Telegram.OperatorID = 2
	newCfg.Relay.Broadcast.Workers = 2

	changed, attrs, restart := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(changed, ",") != "relay.broadcast,telegram" {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
	if strings.Join(restart, ",") != "telegram.token,telegram.operator_id" {
		t.Fatalf("restart = %v", restart)
	}
}

func TestWatchPublishesValidChanges(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram":{"token":"a","operator_id":1}}`)
	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond) // let the watcher attach

	// Invalid change: rejected, nothing published.
	if err := os.WriteFile(path, []byte(`{"telegram":{"token":"a","operator_id":0}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)
	select {
	case c := <-sub:
		t.Fatalf("invalid config published: %+v", c.Telegram)
	default:
	}

	if err := os.WriteFile(path, []byte(`{"telegram":{"token":"a","operator_id":1},"relay":{"broadcast":{"workers":2}}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-sub:
		if c.Relay.Broadcast.Workers != 2 {
			t.Fatalf("workers = %d, want 2", c.Relay.Broadcast.Workers)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("config change not published")
	}
}

func TestDecodeYAMLAndDurations(t *testing.T) {
	t.Parallel()
	cfg := Default()
	err := decodeInto("c.yml", []byte("relay:\n  pending:\n    ttl: 90m\n    sweep_every: 0s\n"), cfg)
	if err != nil {
		t.Fatalf("decodeInto: %v", err)
	}
	d, err := cfg.Durations()
	if err != nil {
		t.Fatalf("Durations: %v", err)
	}
	if d.PendingTTL != 90*time.Minute || d.PendingSweep != 10*time.Minute {
		t.Fatalf("ttl = %s, sweep = %s", d.PendingTTL, d.PendingSweep)
	}

	cfg.Relay.Broadcast.RetryBase = "-1s"
	if _, err := cfg.Durations(); err == nil || !strings.Contains(err.Error(), "retry_base") {
		t.Fatalf("negative duration err = %v", err)
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	t.Parallel()
	calls := make(chan struct{}, 4)
	d := &debouncer{wait: 20 * time.Millisecond, fn: func() { calls <- struct{}{} }}
	for i := 0; i < 5; i++ {
		d.trigger()
	}
	time.Sleep(150 * time.Millisecond)
	if n := len(calls); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}
