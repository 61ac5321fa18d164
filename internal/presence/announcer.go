package presence

import (
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is how long after the last keystroke the announcer
// re-checks the input before emitting a transition.
const DefaultDebounce = 200 * time.Millisecond

// EmitFunc delivers a local typing-state transition to the transport.
type EmitFunc func(isTyping bool)

// Announcer coalesces keystrokes into typing-state transitions. Each
// keystroke schedules a single debounce timer; when it fires, the
// current input is re-read and a frame is emitted only if the
// typing/not-typing state actually changed since the last announcement.
// A stale timer firing after a newer keystroke therefore sees the
// newest input and cannot emit an outdated transition.
type Announcer struct {
	mu        sync.Mutex
	announced bool
	input     string
	timer     *time.Timer
	debounce  time.Duration
	emit      EmitFunc
}

// NewAnnouncer creates an Announcer. A non-positive debounce falls back
// to DefaultDebounce.
func NewAnnouncer(debounce time.Duration, emit EmitFunc) *Announcer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Announcer{debounce: debounce, emit: emit}
}

// Keystroke records the current content of the input field and
// (re)schedules the debounce check.
func (a *Announcer) Keystroke(input string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input = input
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, a.check)
}

func (a *Announcer) check() {
	a.mu.Lock()
	typing := strings.TrimSpace(a.input) != ""
	changed := typing != a.announced
	if changed {
		a.announced = typing
	}
	emit := a.emit
	a.mu.Unlock()

	if changed && emit != nil {
		emit(typing)
	}
}

// MessageSent force-resets the announced state after the user sends a
// message, emitting a stop frame immediately if a "typing" announcement
// is outstanding, so receivers never see a stale indicator.
func (a *Announcer) MessageSent() {
	a.mu.Lock()
	wasTyping := a.announced
	a.announced = false
	a.input = ""
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	emit := a.emit
	a.mu.Unlock()

	if wasTyping && emit != nil {
		emit(false)
	}
}

// Stop cancels any pending debounce timer, used on disconnect.
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.announced = false
	a.input = ""
}
