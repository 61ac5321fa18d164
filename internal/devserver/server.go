// Package devserver is a small in-process chat server implementing the
// wire contract the client speaks: /ws for chat, /typing for the
// dedicated typing channel, /clients for the roster. It backs the
// `parley serve` command and the end-to-end tests.
package devserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/parley-chat/parley/internal/protocol"
)

// ServerNickname tags the announcements the server itself injects.
const (
	ServerNickname = "SERVER"
	serverColor    = "#64BFFF"
)

type client struct {
	id       string
	nickname string
	color    string
	room     string

	mu   sync.Mutex // gorilla allows one concurrent writer
	conn *websocket.Conn
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type typingConn struct {
	room string

	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *typingConn) writeJSON(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(v)
}

// Server fans chat messages and typing notifications out to every
// connection in the same room.
type Server struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	typing  map[*typingConn]struct{}
}

// New creates an empty Server.
func New() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		typing:  make(map[*typingConn]struct{}),
	}
}

// Handler returns the routes the client expects.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/typing", s.handleTyping)
	mux.HandleFunc("/clients", s.handleClients)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	nickname := r.URL.Query().Get("nickname")
	if nickname == "" {
		http.Error(w, "no nickname provided", http.StatusBadRequest)
		return
	}
	room := r.URL.Query().Get("room")
	if room == "" {
		log.Info().Msg("no room provided, using default room")
		room = "general"
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		id:       uuid.New().String(),
		nickname: nickname,
		room:     room,
		conn:     conn,
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	log.Info().Msgf("%s connected in room %s", nickname, room)
	s.broadcast(room, serverMessage(nickname+" connected"))

	s.reader(c)
}

func (s *Server) reader(c *client) {
	for {
		var frame protocol.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			log.Info().Msgf("%s disconnected from room %s", c.nickname, c.room)

			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			_ = c.conn.Close()

			s.broadcast(c.room, protocol.Frame{
				Type:     protocol.TypeNotification,
				From:     protocol.Peer{Nickname: c.nickname},
				IsTyping: false,
				SentAt:   timestamp(),
			})
			s.broadcast(c.room, serverMessage(c.nickname+" disconnected"))
			return
		}

		switch frame.Type {
		case protocol.TypeMessage:
			log.Info().Msgf("room %s -> %s: %s", c.room, frame.From.Nickname, frame.Content)
		case protocol.TypeNotification:
			log.Info().Msgf("room %s -> %s is typing: %t", c.room, frame.From.Nickname, frame.IsTyping)
		default:
			log.Info().Msgf("room %s -> %s sent an unknown frame type", c.room, frame.From.Nickname)
			continue
		}

		s.broadcast(c.room, protocol.Frame{
			Type:     frame.Type,
			From:     protocol.Peer{Nickname: c.nickname, Color: frame.From.Color},
			Content:  frame.Content,
			IsTyping: frame.IsTyping,
			SentAt:   timestamp(),
		})
	}
}

func (s *Server) handleTyping(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = "general"
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("typing channel upgrade failed")
		return
	}

	t := &typingConn{room: room, conn: conn}
	s.mu.Lock()
	s.typing[t] = struct{}{}
	s.mu.Unlock()

	for {
		var frame protocol.TypingFrame
		if err := conn.ReadJSON(&frame); err != nil {
			s.mu.Lock()
			delete(s.typing, t)
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.broadcastTyping(room, frame)
	}
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	w.Header().Add("Content-Type", "application/json")

	entries := []protocol.RosterEntry{}
	s.mu.Lock()
	for c := range s.clients {
		if c.room == room {
			entries = append(entries, protocol.RosterEntry{Nickname: c.nickname, Color: c.color})
		}
	}
	s.mu.Unlock()

	if err := json.NewEncoder(w).Encode(entries); err != nil {
		log.Warn().Err(err).Msg("roster encode failed")
	}
}

func (s *Server) broadcast(room string, frame protocol.Frame) {
	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		if c.room == room {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.writeJSON(frame); err != nil {
			log.Warn().Err(err).Msgf("broadcast to %s failed", c.nickname)
		}
	}
}

func (s *Server) broadcastTyping(room string, frame protocol.TypingFrame) {
	s.mu.Lock()
	targets := make([]*typingConn, 0, len(s.typing))
	for t := range s.typing {
		if t.room == room {
			targets = append(targets, t)
		}
	}
	s.mu.Unlock()

	for _, t := range targets {
		if err := t.writeJSON(frame); err != nil {
			log.Warn().Err(err).Msg("typing broadcast failed")
		}
	}
}

// Kick severs every connection held by the given nickname, as a
// network failure would. The read loop handles the resulting error and
// announces the disconnect as usual.
func (s *Server) Kick(nickname string) {
	s.mu.Lock()
	var targets []*client
	for c := range s.clients {
		if c.nickname == nickname {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	for _, c := range targets {
		_ = c.conn.Close()
	}
}

// TypingConns reports how many dedicated typing channels are open.
func (s *Server) TypingConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.typing)
}

func serverMessage(content string) protocol.Frame {
	return protocol.Frame{
		Type:    protocol.TypeMessage,
		From:    protocol.Peer{Nickname: ServerNickname, Color: serverColor},
		Content: content,
		SentAt:  timestamp(),
	}
}

func timestamp() string {
	return time.Now().UTC().Format("02-01-2006 15:04:05")
}
