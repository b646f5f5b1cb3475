package router

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// newReqID is a short id for correlating one request's log lines.
func newReqID() string {
	return uuid.NewString()[:8]
}

// splitCommandWord returns the lowercased command of a first token,
// dropping any "@botname" suffix: "/Set@relay_bot" -> "set".
func splitCommandWord(tok string) (word string, ok bool) {
	word, found := strings.CutPrefix(tok, "/")
	if !found {
		return "", false
	}
	word, _, _ = strings.Cut(word, "@")
	word = strings.ToLower(word)
	return word, word != ""
}

// tokenizeCommandLine splits s on whitespace. Single or double quotes group
// words and a backslash escapes the next character.
func tokenizeCommandLine(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
		case unicode.IsSpace(r):
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// parseFlags separates positionals from flags. Accepted forms are
// --k=v, --k v, --flag, -k=v, -k v, -k and -abc (bools a, b and c).
// Negative numbers such as group chat ids stay positional.
func parseFlags(args []string) (pos []string, flags map[string]string, bools map[string]bool) {
	flags, bools = map[string]string{}, map[string]bool{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		key := strings.TrimLeft(a, "-")
		if !isFlag(a) || key == "" {
			pos = append(pos, a)
			continue
		}
		if k, v, ok := strings.Cut(key, "="); ok {
			flags[k] = v
			continue
		}
		if !strings.HasPrefix(a, "--") && len(key) > 1 {
			for _, c := range key {
				bools[string(c)] = true
			}
			continue
		}
		if i+1 < len(args) && !isFlag(args[i+1]) {
			flags[key] = args[i+1]
			i++
			continue
		}
		bools[key] = true
	}
	return pos, flags, bools
}

func isFlag(s string) bool {
	return len(s) > 1 && s[0] == '-' && !isNumber(s)
}

func isNumber(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
