package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"relaybot/internal/eventbus"
	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

func TestBroadcastContinuesPastFailures(t *testing.T) {
	t.Parallel()
	f := newFakeSender()
	f.failures[destA] = kit.NoRetry(errors.New("chat not found"))
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	d := NewDispatcher(f, fastDispatch(), logx.Nop(), bus)
	rep := d.Broadcast(context.Background(), []int64{destA, destB}, "hello")

	if rep.Attempted != 2 || rep.Failed() != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if len(rep.Delivered) != 1 || rep.Delivered[0] != destB {
		t.Fatalf("delivered = %v, want [%d]", rep.Delivered, destB)
	}
	if rep.Failures[0].ChatID != destA {
		t.Fatalf("failure chat = %d", rep.Failures[0].ChatID)
	}
	if got := f.sentTo(destB); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("destB got %v", got)
	}

	select {
	case e := <-events:
		if e.Type != EventDeliveryFailed {
			t.Fatalf("event = %q", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no delivery failure event")
	}
}

func TestBroadcastNoRetryIsAttemptedOnce(t *testing.T) {
	t.Parallel()
	f := newFakeSender()
	f.failures[destA] = kit.NoRetry(errors.New("bot was kicked"))

	d := NewDispatcher(f, fastDispatch(), logx.Nop(), nil)
	d.Broadcast(context.Background(), []int64{destA}, "x")

	if n := f.attemptsTo(destA); n != 1 {
		t.Fatalf("attempts = %d, want 1", n)
	}
}

func TestBroadcastRetriesTransientErrors(t *testing.T) {
	t.Parallel()
	f := newFakeSender()
	f.flaky[destA] = 2

	d := NewDispatcher(f, fastDispatch(), logx.Nop(), nil)
	rep := d.Broadcast(context.Background(), []int64{destA}, "x")

	if rep.Failed() != 0 {
		t.Fatalf("failures = %v", rep.Failures)
	}
	if n := f.attemptsTo(destA); n != 3 {
		t.Fatalf("attempts = %d, want 3", n)
	}
}

func TestBroadcastGivesUpAfterRetryMax(t *testing.T) {
	t.Parallel()
	f := newFakeSender()
	f.failures[destA] = errors.New("network down")

	cfg := fastDispatch()
	cfg.RetryMax = 1
	d := NewDispatcher(f, cfg, logx.Nop(), nil)
	rep := d.Broadcast(context.Background(), []int64{destA}, "x")

	if rep.Failed() != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if n := f.attemptsTo(destA); n != 2 {
		t.Fatalf("attempts = %d, want 2", n)
	}
}

func TestBroadcastEmptySetIsNoop(t *testing.T) {
	t.Parallel()
	f := newFakeSender()
	d := NewDispatcher(f, fastDispatch(), logx.Nop(), nil)

	rep := d.Broadcast(context.Background(), nil, "x")
	if rep.Attempted != 0 || rep.Failed() != 0 || len(rep.Delivered) != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if f.lastSent().text != "" {
		t.Fatal("empty broadcast sent something")
	}
}

func TestRetryDelayIsBoundedAndGrows(t *testing.T) {
	t.Parallel()
	base := 100 * time.Millisecond
	for attempt := 1; attempt <= 12; attempt++ {
		d := retryDelay(base, attempt)
		if d <= 0 || d > maxRetryDelay {
			t.Fatalf("attempt %d: delay %s out of range", attempt, d)
		}
	}
	if d := retryDelay(base, 3); d < 280*time.Millisecond || d > 520*time.Millisecond {
		t.Fatalf("attempt 3 delay = %s, want ~400ms", d)
	}
}
