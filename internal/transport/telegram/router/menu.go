package router

import (
	"sort"
	"strings"
	"unicode"

	kit "relaybot/internal/transport"
)

const (
	maxCommandLen  = 32
	maxCommandDesc = 256
	maxMenuEntries = 100
)

// sanitizeTelegramCommand maps a name or alias onto Telegram's command
// alphabet [a-z0-9_]{1,32}. Separators collapse to one underscore, other
// characters are dropped and a leading digit gets a "cmd_" prefix.
func sanitizeTelegramCommand(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '_', r == '-', r == '/', unicode.IsSpace(r):
			pendingSep = true
		}
	}
	out := b.String()
	if out == "" {
		return ""
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "cmd_" + out
	}
	if len(out) > maxCommandLen {
		out = strings.TrimRight(out[:maxCommandLen], "_")
	}
	return out
}

func buildTelegramMenuCommands(cmds []Command) []kit.BotCommand {
	seen := map[string]bool{}
	out := make([]kit.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		name := sanitizeTelegramCommand(c.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		desc := strings.TrimSpace(strings.ReplaceAll(c.Description, "\n", " "))
		if desc == "" {
			desc = name
		}
		if len(desc) > maxCommandDesc {
			desc = desc[:maxCommandDesc]
		}
		out = append(out, kit.BotCommand{Command: name, Description: desc})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	if len(out) > maxMenuEntries {
		out = out[:maxMenuEntries]
	}
	return out
}
