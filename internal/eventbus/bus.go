// Package eventbus is an in-process fan-out of relay lifecycle events.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
package eventbus

import (
	"slices"
	"sync"
	"time"
)

// Event carries a type such as "relay.staged" and a small payload.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	// Subscribe returns a buffered channel and a func that closes it.
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

const defaultBuffer = 8

func New() Bus { return &bus{} }

// Nop discards events; its subscriptions never deliver.
func Nop() Bus { return nop{} }

type bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

func (b *bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// The read lock keeps unsubscribe from closing a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if i := slices.Index(b.subs, ch); i >= 0 {
			b.subs = slices.Delete(b.subs, i, i+1)
			close(ch)
		}
	}
}

type nop struct{}

func (nop) Publish(Event) {}

func (nop) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}
