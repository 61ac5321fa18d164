// Package protocol defines the JSON frames exchanged with the chat server.
package protocol

// Frame types carried on the primary channel.
const (
	TypeMessage      = "message"
	TypeNotification = "notification"
)

// Peer identifies a participant on the wire. Color is only set on
// message frames.
type Peer struct {
	Nickname string `json:"nickname"`
	Color    string `json:"color,omitempty"`
}

// Frame is the envelope for everything on the primary channel.
// Content is set when Type is "message", IsTyping when Type is
// "notification".
type Frame struct {
	Type     string `json:"type"`
	From     Peer   `json:"from"`
	Content  string `json:"content"`
	IsTyping bool   `json:"isTyping"`
	SentAt   string `json:"sentAt,omitempty"`
}

// TypingFrame is the shape used on the dedicated typing channel. The
// channel itself disambiguates, so there is no type discriminator.
type TypingFrame struct {
	Client   string `json:"client"`
	IsTyping bool   `json:"isTyping"`
}

// RosterEntry is one element of the GET /clients response.
type RosterEntry struct {
	Nickname string `json:"nickname"`
	Color    string `json:"color,omitempty"`
}
