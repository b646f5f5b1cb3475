package router

import (
	"html"
	"sort"
	"strings"
)

// helpText renders Telegram-friendly help in HTML parse mode.
func (m *CommandManager) helpText() string {
	m.mu.RLock()
	cmds := append([]Command(nil), m.ordered...)
	m.mu.RUnlock()

	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	lines := []string{
		"📚 <b>Commands</b>",
		"Send any other text to submit it for moderation.",
		"",
	}
	for _, c := range cmds {
		usage := strings.TrimSpace(c.Usage)
		if usage == "" {
			usage = "/" + c.Name
		}
		line := "<code>" + html.EscapeString(usage) + "</code>"
		if d := strings.TrimSpace(c.Description); d != "" {
			line += " - " + html.EscapeString(d)
		}
		if len(c.Aliases) > 0 {
			al := make([]string, 0, len(c.Aliases))
			for _, a := range c.Aliases {
				al = append(al, "/"+html.EscapeString(a))
			}
			line += " <i>(" + strings.Join(al, ", ") + ")</i>"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
