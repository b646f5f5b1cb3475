package relay

import (
	"sort"
	"sync"
	"time"
)

// Key identifies a staged rendering: the staging chat and the message id
// Telegram assigned to the rendering.
type Key struct {
	ChatID    int64
	MessageID int
}

type Entry struct {
	Key      Key
	Text     string
	StagedAt time.Time
}

// PendingStore maps staged renderings to the original text.
// Consume and Discard are the only ways a decision removes an entry, so a
// staged message is decided at most once whatever path triggers it.
type PendingStore struct {
	mu         sync.Mutex
	entries    map[Key]Entry
	maxEntries int // 0 = unbounded
	now        func() time.Time
}

func NewPendingStore(maxEntries int) *PendingStore {
	return &PendingStore{
		entries:    map[Key]Entry{},
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// SetMaxEntries changes the cap; it applies from the next Stage.
func (p *PendingStore) SetMaxEntries(n int) {
	p.mu.Lock()
	p.maxEntries = n
	p.mu.Unlock()
}

// Stage inserts (or overwrites) key. When the store is full the oldest
// entries are evicted and returned.
func (p *PendingStore) Stage(key Key, text string) (evicted []Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[key]; !exists && p.maxEntries > 0 {
		for len(p.entries) >= p.maxEntries {
			oldest, ok := p.oldestLocked()
			if !ok {
				break
			}
			delete(p.entries, oldest.Key)
			evicted = append(evicted, oldest)
		}
	}
	p.entries[key] = Entry{Key: key, Text: text, StagedAt: p.now()}
	return evicted
}

// Consume atomically removes key and returns its text, or ErrNotFound.
func (p *PendingStore) Consume(key Key) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	delete(p.entries, key)
	return e.Text, nil
}

// Discard removes key; it reports whether an entry existed.
func (p *PendingStore) Discard(key Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[key]
	delete(p.entries, key)
	return ok
}

func (p *PendingStore) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Expire removes and returns entries staged before cutoff, oldest first.
func (p *PendingStore) Expire(cutoff time.Time) []Entry {
	p.mu.Lock()
	var out []Entry
	for k, e := range p.entries {
		if e.StagedAt.Before(cutoff) {
			out = append(out, e)
			delete(p.entries, k)
		}
	}
	p.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StagedAt.Before(out[j].StagedAt) })
	return out
}

// Oldest returns the staged-at time of the oldest entry.
func (p *PendingStore) Oldest() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.oldestLocked()
	return e.StagedAt, ok
}

func (p *PendingStore) oldestLocked() (Entry, bool) {
	var (
		out   Entry
		found bool
	)
	for _, e := range p.entries {
		if !found || e.StagedAt.Before(out.StagedAt) ||
			(e.StagedAt.Equal(out.StagedAt) && e.Key.MessageID < out.Key.MessageID) {
			out, found = e, true
		}
	}
	return out, found
}
