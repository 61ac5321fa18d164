// Package notify derives the unread badge and window title from two
// external signals: visibility changes and message arrivals.
package notify

import (
	"fmt"
	"sync"
)

// AlertFunc fires the audible/attention side effect when a message
// arrives while the view is hidden. The implementation is up to the
// host (terminal bell, audio cue, push notification).
type AlertFunc func()

// Notifier tracks the unread count against the host's visibility state.
// Invariant: unread is always 0 while visible. It is purely reactive
// and owns no timers.
type Notifier struct {
	mu      sync.Mutex
	room    string
	visible bool
	unread  int
	alert   AlertFunc
}

// NewNotifier creates a Notifier for the given room. Sessions start
// visible.
func NewNotifier(room string, alert AlertFunc) *Notifier {
	return &Notifier{room: room, visible: true, alert: alert}
}

// SetVisible applies a visibility-change signal. Becoming visible
// resets the unread count.
func (n *Notifier) SetVisible(visible bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visible = visible
	if visible {
		n.unread = 0
	}
}

// MessageArrived applies a message-arrival signal. While hidden it
// increments the unread count and fires the alert; while visible it is
// a no-op beyond keeping the title current.
func (n *Notifier) MessageArrived() {
	n.mu.Lock()
	if n.visible {
		n.unread = 0
		n.mu.Unlock()
		return
	}
	n.unread++
	alert := n.alert
	n.mu.Unlock()

	if alert != nil {
		alert()
	}
}

// Unread returns the current unread count.
func (n *Notifier) Unread() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unread
}

// Title derives the user-facing title string. Unread counts above 99
// display as "+99".
func (n *Notifier) Title() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	room := n.room
	if room == "" {
		room = "Welcome"
	}
	if n.unread == 0 {
		return fmt.Sprintf("Chat - %s", room)
	}
	badge := fmt.Sprintf("%d", n.unread)
	if n.unread > 99 {
		badge = "+99"
	}
	return fmt.Sprintf("Chat (%s) - %s", badge, room)
}
