package relay

import (
	"sort"
	"sync"
)

// Registry holds the staging chat and the destination set.
type Registry struct {
	mu      sync.RWMutex
	staging int64 // 0 = unset
	dests   map[int64]struct{}
}

func NewRegistry() *Registry {
	return &Registry{dests: map[int64]struct{}{}}
}

// SetStaging overwrites the staging chat.
func (r *Registry) SetStaging(chatID int64) {
	r.mu.Lock()
	r.staging = chatID
	r.mu.Unlock()
}

// Staging returns the staging chat; ok is false until one is set.
func (r *Registry) Staging() (chatID int64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.staging, r.staging != 0
}

// AddDestination inserts chatID; it reports false when it was already present.
func (r *Registry) AddDestination(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dests[chatID]; ok {
		return false
	}
	r.dests[chatID] = struct{}{}
	return true
}

// Destinations returns a sorted snapshot of the destination set.
func (r *Registry) Destinations() []int64 {
	r.mu.RLock()
	out := make([]int64, 0, len(r.dests))
	for id := range r.dests {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
