package relay

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"relaybot/internal/eventbus"
	logx "relaybot/pkg/logx"
)

var (
	setUsage = &UsageError{Usage: "/set <chat_id>"}
	addUsage = &UsageError{Usage: "/add <chat_id>"}
)

// SetStaging handles /set <chat_id>.
func (s *Service) SetStaging(actorID int64, args []string) (string, error) {
	if err := s.gate.Check(actorID); err != nil {
		return "", err
	}
	id, err := parseChatID(args, setUsage)
	if err != nil {
		return "", err
	}
	s.registry.SetStaging(id)
	s.log.Info("staging chat set", logx.Int64("staging_chat", id))
	s.registryChanged()
	return fmt.Sprintf("✅ Staging chat set to %d", id), nil
}

// AddDestination handles /add <chat_id>.
func (s *Service) AddDestination(actorID int64, args []string) (string, error) {
	if err := s.gate.Check(actorID); err != nil {
		return "", err
	}
	id, err := parseChatID(args, addUsage)
	if err != nil {
		return "", err
	}
	if !s.registry.AddDestination(id) {
		return fmt.Sprintf("ℹ️ Chat %d is already in the forward list", id), nil
	}
	s.log.Info("destination added", logx.Int64("chat_id", id), logx.Int("destinations", len(s.registry.Destinations())))
	s.registryChanged()
	return fmt.Sprintf("✅ Chat %d added to forward list", id), nil
}

// Status handles /status: staging chat, destinations and pending count.
func (s *Service) Status(actorID int64) (string, error) {
	if err := s.gate.Check(actorID); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("📋 Relay status\n")
	if id, ok := s.registry.Staging(); ok {
		fmt.Fprintf(&b, "Staging chat: %d\n", id)
	} else {
		b.WriteString("Staging chat: not set\n")
	}
	dests := s.registry.Destinations()
	fmt.Fprintf(&b, "Destinations (%d):", len(dests))
	for _, id := range dests {
		fmt.Fprintf(&b, " %d", id)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Pending: %d", s.pending.Len())
	if oldest, ok := s.pending.Oldest(); ok {
		fmt.Fprintf(&b, " (oldest %s ago)", s.now().Sub(oldest).Truncate(time.Second))
	}
	return b.String(), nil
}

func (s *Service) registryChanged() {
	staging, _ := s.registry.Staging()
	s.bus.Publish(eventbus.Event{Type: EventRegistryChanged, Data: RegistryEvent{
		Staging:      staging,
		Destinations: len(s.registry.Destinations()),
	}})
}

// parseChatID reads the single chat id argument ("-1001234567890").
func parseChatID(args []string, usage *UsageError) (int64, error) {
	if len(args) == 0 {
		return 0, usage
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil || id == 0 {
		return 0, usage
	}
	return id, nil
}
