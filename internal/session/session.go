// Package session owns the lifecycle of a chat connection: dialing the
// server, routing inbound frames to the history, presence and
// notification state, and recovering from a severed channel.
package session

import (
	"time"

	"github.com/parley-chat/parley/internal/identity"
	"github.com/parley-chat/parley/internal/presence"
)

// TypingChannel selects where typing notifications travel.
type TypingChannel string

const (
	// TypingShared carries typing notifications on the primary channel.
	TypingShared TypingChannel = "shared"
	// TypingDedicated opens a second socket against /typing for them.
	TypingDedicated TypingChannel = "dedicated"
)

// Config collects the knobs that varied across historical client builds.
type Config struct {
	// Origin is the chat server's base HTTP URL, e.g. http://localhost:3000.
	Origin string
	// TypingChannel selects the shared or dedicated typing transport.
	TypingChannel TypingChannel
	// HistoryCapacity bounds the message window. Zero means the default.
	HistoryCapacity int
	// NicknameMatch controls roster availability comparison.
	NicknameMatch identity.MatchMode
	// TypingDebounce is the quiet period for the local typing signal.
	// Zero means the default.
	TypingDebounce time.Duration
}

func (c Config) withDefaults() Config {
	if c.TypingChannel == "" {
		c.TypingChannel = TypingShared
	}
	if c.NicknameMatch == "" {
		c.NicknameMatch = identity.MatchCaseSensitive
	}
	if c.TypingDebounce <= 0 {
		c.TypingDebounce = presence.DefaultDebounce
	}
	return c
}

// State is the connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}
