package adapter

import "strings"

// maxMessageRunes stays under Telegram's 4096 limit to leave room for entities.
const maxMessageRunes = 4000

// splitText cuts s into chunks of at most limit runes. A cut prefers the last
// newline in the window unless that would leave a chunk under a third of
// limit. With html set, a cut never lands inside a tag.
func splitText(s string, limit int, html bool) []string {
	if limit <= 0 {
		limit = maxMessageRunes
	}
	rs := []rune(s)
	var out []string
	for len(rs) > limit {
		cut := limit
		if nl := lastRune(rs[:limit], '\n'); nl >= limit/3 {
			cut = nl + 1
		}
		if html {
			if lt := lastRune(rs[:cut], '<'); lt > 0 && lastRune(rs[:cut], '>') < lt {
				cut = lt
			}
		}
		out = append(out, strings.TrimRight(string(rs[:cut]), "\n"))
		rs = rs[cut:]
		for len(rs) > 0 && rs[0] == '\n' {
			rs = rs[1:]
		}
	}
	return append(out, string(rs))
}

func lastRune(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
