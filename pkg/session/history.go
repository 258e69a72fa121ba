package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// History is the append-only transcript of one session. Insertion order is
// display order; nothing is ever removed or rewritten.
type History struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewHistory() *History {
	return &History{entries: []Entry{}}
}

// Append stores a copy of e at the end of the transcript.
func (h *History) Append(e Entry) {
	stored := e.clone()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, stored)
}

// All returns a deep copy of the transcript in insertion order.
func (h *History) All() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.clone()
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Recent returns up to limit entries, newest first. limit <= 0 returns
// everything.
func (h *History) Recent(limit int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(h.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.entries[i].clone())
	}
	return out
}

// Session is the state one operator session owns: its transcript, the
// processing guard and the selected mode. It lives from session start to
// process exit.
type Session struct {
	ID      string
	Created time.Time

	mu      sync.RWMutex
	mode    Mode
	history *History
	guard   Guard
}

func New(mode Mode) *Session {
	if !mode.Valid() {
		mode = DefaultMode
	}
	return &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		mode:    mode,
		history: NewHistory(),
	}
}

func (s *Session) History() *History { return s.history }

func (s *Session) Guard() *Guard { return &s.guard }

func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode ignores invalid modes.
func (s *Session) SetMode(m Mode) bool {
	if !m.Valid() {
		return false
	}
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
	return true
}
