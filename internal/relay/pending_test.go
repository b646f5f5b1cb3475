package relay

import (
	"errors"
	"testing"
	"time"
)

func steppingClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestPendingConsumeIsOnce(t *testing.T) {
	t.Parallel()
	p := NewPendingStore(0)
	k := Key{ChatID: stagingChat, MessageID: 1}
	p.Stage(k, "hello")

	text, err := p.Consume(k)
	if err != nil || text != "hello" {
		t.Fatalf("Consume = %q, %v", text, err)
	}
	if _, err := p.Consume(k); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Consume err = %v, want ErrNotFound", err)
	}
	if p.Len() != 0 {
		t.Fatalf("Len = %d", p.Len())
	}
}

func TestPendingDiscard(t *testing.T) {
	t.Parallel()
	p := NewPendingStore(0)
	k := Key{ChatID: stagingChat, MessageID: 1}
	p.Stage(k, "hello")

	if !p.Discard(k) {
		t.Fatal("Discard on a staged key reported false")
	}
	if p.Discard(k) {
		t.Fatal("Discard on a removed key reported true")
	}
	if _, err := p.Consume(k); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Consume after Discard err = %v", err)
	}
}

func TestPendingKeysAreScopedByChat(t *testing.T) {
	t.Parallel()
	p := NewPendingStore(0)
	p.Stage(Key{ChatID: 1, MessageID: 5}, "one")
	p.Stage(Key{ChatID: 2, MessageID: 5}, "two")

	if text, _ := p.Consume(Key{ChatID: 2, MessageID: 5}); text != "two" {
		t.Fatalf("text = %q, want two", text)
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
}

func TestPendingStageEvictsOldestWhenFull(t *testing.T) {
	t.Parallel()
	p := NewPendingStore(2)
	p.now = steppingClock(time.Unix(1000, 0))

	p.Stage(Key{ChatID: 1, MessageID: 1}, "a")
	p.Stage(Key{ChatID: 1, MessageID: 2}, "b")
	if ev := p.Stage(Key{ChatID: 1, MessageID: 2}, "b2"); len(ev) != 0 {
		t.Fatalf("overwrite evicted %v", ev)
	}

	ev := p.Stage(Key{ChatID: 1, MessageID: 3}, "c")
	if len(ev) != 1 || ev[0].Key.MessageID != 1 {
		t.Fatalf("evicted = %+v, want message 1", ev)
	}
	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}
	if text, _ := p.Consume(Key{ChatID: 1, MessageID: 2}); text != "b2" {
		t.Fatalf("overwritten text = %q", text)
	}
}

func TestPendingExpire(t *testing.T) {
	t.Parallel()
	p := NewPendingStore(0)
	base := time.Unix(1000, 0)
	p.now = steppingClock(base)

	p.Stage(Key{ChatID: 1, MessageID: 1}, "a") // base+1s
	p.Stage(Key{ChatID: 1, MessageID: 2}, "b") // base+2s
	p.Stage(Key{ChatID: 1, MessageID: 3}, "c") // base+3s

	out := p.Expire(base.Add(2500 * time.Millisecond))
	if len(out) != 2 || out[0].Key.MessageID != 1 || out[1].Key.MessageID != 2 {
		t.Fatalf("expired = %+v", out)
	}
	oldest, ok := p.Oldest()
	if !ok || !oldest.Equal(base.Add(3*time.Second)) {
		t.Fatalf("Oldest = %v, %v", oldest, ok)
	}
}

func TestRegistryDestinationsAreASortedSet(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	if _, ok := r.Staging(); ok {
		t.Fatal("staging set on a new registry")
	}
	r.SetStaging(10)
	r.SetStaging(20)
	if id, ok := r.Staging(); !ok || id != 20 {
		t.Fatalf("Staging = %d, %v; want 20", id, ok)
	}

	for _, id := range []int64{5, -3, 5} {
		r.AddDestination(id)
	}
	if r.AddDestination(-3) {
		t.Fatal("duplicate AddDestination reported true")
	}
	got := r.Destinations()
	if len(got) != 2 || got[0] != -3 || got[1] != 5 {
		t.Fatalf("Destinations = %v", got)
	}
}

func TestGate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		operator int64
		actor    int64
		want     bool
	}{
		{"operator", 42, 42, true},
		{"stranger", 42, 7, false},
		{"unset operator", 0, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := NewGate(tc.operator)
			if got := g.Authorize(tc.actor); got != tc.want {
				t.Fatalf("Authorize = %v, want %v", got, tc.want)
			}
			if err := g.Check(tc.actor); (err == nil) != tc.want {
				t.Fatalf("Check err = %v", err)
			}
		})
	}
}
