package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetExcludesSelf(t *testing.T) {
	s := NewSet("Alice")

	s.Handle("Alice", true)
	assert.False(t, s.Contains("Alice"))
	assert.Equal(t, 0, s.Len())

	s.Handle("Bob", true)
	s.Handle("Alice", true)
	assert.Equal(t, []string{"Bob"}, s.Clients())
}

func TestSetIdempotence(t *testing.T) {
	s := NewSet("Alice")

	s.Handle("Bob", true)
	s.Handle("Bob", true)
	assert.Equal(t, 1, s.Len())

	s.Handle("Bob", false)
	s.Handle("Bob", false)
	assert.Equal(t, 0, s.Len())
}

func TestSetRemove(t *testing.T) {
	s := NewSet("Alice")
	s.Handle("Bob", true)
	s.Handle("Carol", true)
	s.Handle("Bob", false)

	assert.False(t, s.Contains("Bob"))
	assert.True(t, s.Contains("Carol"))
}

func TestSetClear(t *testing.T) {
	s := NewSet("Alice")
	s.Handle("Bob", true)
	s.Clear()
	assert.Equal(t, 0, s.Len())
}

// emissions collects announcer output for assertions.
type emissions struct {
	mu   sync.Mutex
	sent []bool
}

func (e *emissions) emit(isTyping bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, isTyping)
}

func (e *emissions) all() []bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]bool, len(e.sent))
	copy(out, e.sent)
	return out
}

const debounce = 20 * time.Millisecond

func settle() { time.Sleep(4 * debounce) }

func TestAnnouncerEmitsOnTransitionOnly(t *testing.T) {
	var got emissions
	a := NewAnnouncer(debounce, got.emit)

	a.Keystroke("h")
	a.Keystroke("hi")
	a.Keystroke("hi there")
	settle()

	require.Equal(t, []bool{true}, got.all(), "a burst of keystrokes announces once")

	a.Keystroke("hi there!")
	settle()
	assert.Equal(t, []bool{true}, got.all(), "still typing, no repeat announcement")

	a.Keystroke("")
	settle()
	assert.Equal(t, []bool{true, false}, got.all())
}

func TestAnnouncerIgnoresWhitespaceOnlyInput(t *testing.T) {
	var got emissions
	a := NewAnnouncer(debounce, got.emit)

	a.Keystroke("   ")
	settle()
	assert.Empty(t, got.all())
}

func TestAnnouncerStaleTimerRevalidates(t *testing.T) {
	var got emissions
	a := NewAnnouncer(debounce, got.emit)

	// the input empties again before any timer fires; the check must
	// see the final state and emit nothing
	a.Keystroke("hi")
	a.Keystroke("")
	settle()

	assert.Empty(t, got.all())
}

func TestAnnouncerMessageSent(t *testing.T) {
	var got emissions
	a := NewAnnouncer(debounce, got.emit)

	a.Keystroke("hello")
	settle()
	require.Equal(t, []bool{true}, got.all())

	a.MessageSent()
	assert.Equal(t, []bool{true, false}, got.all(), "stop frame is emitted immediately")

	a.MessageSent()
	assert.Equal(t, []bool{true, false}, got.all(), "no stop frame when not typing")
}

func TestAnnouncerMessageSentCancelsPendingTimer(t *testing.T) {
	var got emissions
	a := NewAnnouncer(debounce, got.emit)

	a.Keystroke("hello")
	a.MessageSent() // send before the debounce elapses
	settle()

	assert.Empty(t, got.all(), "never announced, nothing to retract")
}

func TestAnnouncerStop(t *testing.T) {
	var got emissions
	a := NewAnnouncer(debounce, got.emit)

	a.Keystroke("hello")
	a.Stop()
	settle()

	assert.Empty(t, got.all())
}
