// Package history holds the in-memory sliding window of received chat
// messages.
package history

import (
	"sync"

	"github.com/parley-chat/parley/internal/protocol"
)

// DefaultCapacity matches the window kept by the web client.
const DefaultCapacity = 100

// Log is a bounded, append-only window over received messages. Arrival
// order is the only ordering guarantee; once capacity is exceeded the
// oldest entry is evicted first.
type Log struct {
	mu       sync.RWMutex
	messages []protocol.Frame
	capacity int
}

// NewLog creates a Log. A non-positive capacity falls back to
// DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		messages: make([]protocol.Frame, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a message at the tail, evicting from the head when the
// window is full.
func (l *Log) Append(msg protocol.Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
	if len(l.messages) > l.capacity {
		over := len(l.messages) - l.capacity
		l.messages = append(l.messages[:0], l.messages[over:]...)
	}
}

// Len returns the number of buffered messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Snapshot returns a copy of the buffered messages in arrival order.
func (l *Log) Snapshot() []protocol.Frame {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]protocol.Frame, len(l.messages))
	copy(out, l.messages)
	return out
}

// Clear empties the window, used on disconnect.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}
