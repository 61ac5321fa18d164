package session

import "github.com/parley-chat/parley/internal/protocol"

// Events are the callbacks through which the rendering layer observes
// the session. All fields are optional. Callbacks run on the manager's
// read goroutines and should hand off work that blocks.
type Events struct {
	// OnMessage fires for every inbound chat message, after it has been
	// appended to the history window.
	OnMessage func(protocol.Frame)
	// OnTyping fires when the set of typing participants changes,
	// with the current members.
	OnTyping func(clients []string)
	// OnRoster fires after every successful roster refresh.
	OnRoster func(entries []protocol.RosterEntry)
	// OnStateChange fires on every connection state transition.
	OnStateChange func(State)
}
