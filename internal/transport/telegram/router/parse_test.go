package router

import (
	"reflect"
	"testing"
)

func TestTokenizeCommandLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "/set -100123", want: []string{"/set", "-100123"}},
		{in: `/cmd a "b c" --k=v`, want: []string{"/cmd", "a", "b c", "--k=v"}},
		{in: `/cmd 'x y' z\ w`, want: []string{"/cmd", "x y", "z w"}},
		{in: "  /help   \n ", want: []string{"/help"}},
	}
	for _, tt := range tests {
		if got := tokenizeCommandLine(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("tokenizeCommandLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFlagsKeepsNegativeChatIDs(t *testing.T) {
	t.Parallel()
	pos, flags, bools := parseFlags([]string{"-1001234567890", "--quiet", "-k", "v", "42"})
	if !reflect.DeepEqual(pos, []string{"-1001234567890", "42"}) {
		t.Fatalf("pos = %q", pos)
	}
	if flags["k"] != "v" {
		t.Fatalf("flags = %v", flags)
	}
	if !bools["quiet"] {
		t.Fatalf("bools = %v", bools)
	}
}

func TestSplitCommandWord(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "/set", want: "set", wantOK: true},
		{in: "/Allow@relay_bot", want: "allow", wantOK: true},
		{in: "/", wantOK: false},
		{in: "hello", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := splitCommandWord(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("splitCommandWord(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
