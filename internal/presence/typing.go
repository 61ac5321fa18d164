// Package presence tracks who is typing: a set of remote participants
// currently composing, and a debounced announcer for the local user's
// own typing signal.
package presence

import "sync"

// Set tracks which other participants are currently typing. The local
// nickname is never admitted, and duplicate announcements are collapsed.
type Set struct {
	mu     sync.RWMutex
	self   string
	typing map[string]struct{}
}

// NewSet creates a Set that will always exclude self from membership.
func NewSet(self string) *Set {
	return &Set{
		self:   self,
		typing: make(map[string]struct{}),
	}
}

// Handle applies a remote typing event. Repeated events for the same
// client are idempotent.
func (s *Set) Handle(client string, isTyping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !isTyping {
		delete(s.typing, client)
		return
	}
	if client == s.self {
		return
	}
	s.typing[client] = struct{}{}
}

// Contains reports whether client is currently marked as typing.
func (s *Set) Contains(client string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.typing[client]
	return ok
}

// Clients returns the current members. No ordering is guaranteed.
func (s *Set) Clients() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.typing))
	for c := range s.typing {
		out = append(out, c)
	}
	return out
}

// Len returns the number of participants currently typing.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.typing)
}

// Clear empties the set, used on disconnect.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.typing)
}
