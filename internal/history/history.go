// Package history models the address bar as a two-way channel: the engine
// publishes URLs for its own state changes and subscribes to navigation.
package history

import "sync"

// Channel is the history surface the engine talks to.
type Channel interface {
	// Current returns the URL of the active entry.
	Current() string
	// Publish pushes url as a new entry unless it equals the current one.
	// It reports whether an entry was pushed. Subscribers are not notified.
	Publish(url string) bool
	// Subscribe registers fn for navigation to another entry.
	Subscribe(fn func(url string)) (cancel func())
}

// Memory is an in-memory Channel with back/forward navigation.
type Memory struct {
	mu      sync.Mutex
	entries []string
	pos     int
	subs    map[int]func(string)
	nextSub int
}

// NewMemory starts a history whose only entry is initial.
func NewMemory(initial string) *Memory {
	return &Memory{entries: []string{initial}, subs: make(map[int]func(string))}
}

// Current returns the active entry.
func (h *Memory) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.pos]
}

// Publish pushes url and drops any forward entries.
func (h *Memory) Publish(url string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entries[h.pos] == url {
		return false
	}
	h.entries = append(h.entries[:h.pos+1], url)
	h.pos++
	return true
}

// Subscribe registers a navigation listener.
func (h *Memory) Subscribe(fn func(url string)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Back moves one entry back. It reports false at the first entry.
func (h *Memory) Back() bool {
	return h.Go(-1)
}

// Forward moves one entry forward. It reports false at the last entry.
func (h *Memory) Forward() bool {
	return h.Go(1)
}

// Go moves delta entries and notifies subscribers. Out-of-range moves are
// ignored.
func (h *Memory) Go(delta int) bool {
	h.mu.Lock()
	next := h.pos + delta
	if delta == 0 || next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.pos = next
	url := h.entries[next]
	subs := make([]func(string), 0, len(h.subs))
	for i := 0; i < h.nextSub; i++ {
		if fn, ok := h.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(url)
	}
	return true
}

// Entries returns a copy of every entry.
func (h *Memory) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// Len returns the number of entries.
func (h *Memory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Position returns the index of the active entry.
func (h *Memory) Position() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}
