package logx

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	kit "relaybot/internal/transport"
)

const (
	timeFormat      = "2006-01-02T15:04:05.000Z07:00"
	defaultFilePath = "./relaybot.log"
)

type Config struct {
	Level   string
	Console bool
	File    FileConfig
	Chat    ChatConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// ChatConfig mirrors log lines into a Telegram chat.
type ChatConfig struct {
	Enabled    bool
	ThreadID   int
	MinLevel   string
	RatePerSec int
}

var globalsOnce sync.Once

// Service owns the log outputs. Apply rebuilds them; loggers created from
// the Service pick up the change on their next event.
type Service struct {
	mu   sync.Mutex
	file *os.File
	chat *chatSink

	zl atomic.Pointer[zerolog.Logger]
}

// New applies cfg and returns the Service with its root logger. sender may
// be nil and attached later with SetSender.
func New(cfg Config, sender kit.Sender) (*Service, Logger) {
	globalsOnce.Do(func() {
		zerolog.TimeFieldFormat = timeFormat
		zerolog.ErrorFieldName = "err"
	})

	s := &Service{chat: newChatSink(sender)}
	s.Apply(cfg)
	return s, Logger{svc: s}
}

func (s *Service) current() *zerolog.Logger { return s.zl.Load() }

func (s *Service) SetSender(sender kit.Sender) { s.chat.setSender(sender) }

// SetChatTarget sets where chat lines go; chatID 0 pauses delivery.
func (s *Service) SetChatTarget(chatID int64, threadID int) {
	s.chat.setTarget(kit.ChatTarget{ChatID: chatID, ThreadID: threadID})
}

// Apply rebuilds outputs and levels. Safe for concurrent use.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	var (
		outs    []io.Writer
		fileErr error
	)
	if cfg.Console {
		outs = append(outs, consoleWriter(os.Stdout))
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = defaultFilePath
		}
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
			fileErr = err
		} else {
			s.file = f
			outs = append(outs, zerolog.SyncWriter(f))
		}
	}
	s.chat.configure(cfg.Chat)
	if cfg.Chat.Enabled {
		outs = append(outs, s.chat)
	}
	if len(outs) == 0 {
		outs = append(outs, consoleWriter(os.Stdout))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(outs...)).
		Level(parseLevel(cfg.Level, zerolog.InfoLevel)).
		With().Timestamp().Logger()
	s.zl.Store(&zl)

	if fileErr != nil {
		zl.Warn().Err(fileErr).Str("path", cfg.File.Path).Msg("log file unavailable")
	}
}

// Close stops the chat sink and closes the log file.
func (s *Service) Close() error {
	s.chat.close()

	s.mu.Lock()
	f := s.file
	s.file = nil
	s.mu.Unlock()
	if f != nil {
		return f.Close()
	}
	return nil
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:          w,
		TimeFormat:   timeFormat,
		FormatCaller: func(i any) string {
			s, _ := i.(string)
			return s
		},
	}
}

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	return def
}
