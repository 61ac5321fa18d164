package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"

	"github.com/parley-chat/parley/internal/history"
	"github.com/parley-chat/parley/internal/identity"
	"github.com/parley-chat/parley/internal/notify"
	"github.com/parley-chat/parley/internal/presence"
	"github.com/parley-chat/parley/internal/protocol"
	"github.com/parley-chat/parley/internal/roster"
)

var (
	// ErrNotConnected is returned for operations that need an open
	// channel and cannot recover one.
	ErrNotConnected = errors.New("not connected")
	// ErrConnectAborted is returned when Disconnect lands while a
	// Connect is still dialing; the late connection is discarded.
	ErrConnectAborted = errors.New("disconnected while connecting")
)

// maxPending bounds the frames queued while recovering a stale channel.
const maxPending = 16

// Manager owns one chat session: the primary channel, the optional
// dedicated typing channel, and the state derived from their inbound
// frames. A Manager can be reconnected after a disconnect; in-flight
// callbacks from a previous connection are rendered inert by a
// generation counter.
type Manager struct {
	cfg    Config
	id     identity.Identity
	events Events

	History   *history.Log
	Typing    *presence.Set
	Notifier  *notify.Notifier
	Announcer *presence.Announcer

	rosterHTTP *http.Client

	mu       sync.Mutex
	state    State
	gen      uint64
	ws       *websocket.Conn
	typingWS *websocket.Conn
	dialCtx  context.Context
	pending  []protocol.Frame
	roster   []protocol.RosterEntry
	wg       sync.WaitGroup
}

// NewManager wires a Manager for a resolved identity. The alert hook
// fires when a message arrives while the view is hidden.
func NewManager(cfg Config, id identity.Identity, events Events, alert notify.AlertFunc) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:        cfg,
		id:         id,
		events:     events,
		History:    history.NewLog(cfg.HistoryCapacity),
		Typing:     presence.NewSet(id.Nickname),
		Notifier:   notify.NewNotifier(id.Room, alert),
		rosterHTTP: roster.NewClient(cfg.Origin),
	}
	m.Announcer = presence.NewAnnouncer(cfg.TypingDebounce, func(isTyping bool) {
		if err := m.SendTyping(isTyping); err != nil {
			log.Debug().Err(err).Msg("typing announcement dropped")
		}
	})
	return m
}

// Identity returns the session's resolved identity.
func (m *Manager) Identity() identity.Identity { return m.id }

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Roster returns the last roster reported by the server.
func (m *Manager) Roster() []protocol.RosterEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.RosterEntry, len(m.roster))
	copy(out, m.roster)
	return out
}

// Location is the canonical address of the joined room.
func (m *Manager) Location() string {
	return "/?room=" + url.QueryEscape(m.id.Room)
}

// Connect checks nickname availability, dials the primary channel (and
// the typing channel in dedicated mode) and starts the read loops. The
// context bounds the dial and is retained for opportunistic reconnects.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Disconnected {
		m.mu.Unlock()
		return fmt.Errorf("connect from state %s", m.state)
	}
	m.state = Connecting
	m.dialCtx = ctx
	gen := m.gen
	m.mu.Unlock()
	m.emitState(Connecting)

	entries, err := roster.Fetch(ctx, m.rosterHTTP, m.id.Room)
	if err != nil {
		// a stale roster is tolerated, but without one we cannot prove
		// the nickname is taken, so the connect proceeds
		log.Warn().Err(err).Msg("roster query failed")
		entries = nil
	}
	if err := identity.CheckAvailable(m.id.Nickname, roster.Nicknames(entries), m.cfg.NicknameMatch); err != nil {
		m.setDisconnected()
		return err
	}

	ws, err := dial(ctx, m.cfg.Origin, "/ws?nickname="+url.QueryEscape(m.id.Nickname)+"&room="+url.QueryEscape(m.id.Room))
	if err != nil {
		m.setDisconnected()
		return fmt.Errorf("error dialing chat channel: %w", err)
	}

	var typingWS *websocket.Conn
	if m.cfg.TypingChannel == TypingDedicated {
		typingWS, err = dial(ctx, m.cfg.Origin, "/typing?room="+url.QueryEscape(m.id.Room))
		if err != nil {
			_ = ws.Close()
			m.setDisconnected()
			return fmt.Errorf("error dialing typing channel: %w", err)
		}
	}

	m.mu.Lock()
	if gen != m.gen {
		// a Disconnect landed while dialing; the session it tore down
		// must not be resurrected
		m.mu.Unlock()
		_ = ws.Close()
		if typingWS != nil {
			_ = typingWS.Close()
		}
		return ErrConnectAborted
	}
	m.ws = ws
	m.typingWS = typingWS
	m.state = Connected
	m.roster = entries
	m.mu.Unlock()
	m.emitState(Connected)
	if entries != nil && m.events.OnRoster != nil {
		m.events.OnRoster(entries)
	}

	m.wg.Add(1)
	go m.readLoop(gen, ws)
	if typingWS != nil {
		m.wg.Add(1)
		go m.typingLoop(gen, typingWS)
	}

	m.flushPending()
	return nil
}

// Send transmits a chat message on the primary channel. An outstanding
// "typing" announcement is retracted first. If the channel is not open
// the frame is queued and a reconnect is attempted; queued frames are
// flushed once the channel reopens.
func (m *Manager) Send(content string) error {
	m.Announcer.MessageSent()
	return m.sendFrame(protocol.Frame{
		Type:    protocol.TypeMessage,
		From:    protocol.Peer{Nickname: m.id.Nickname, Color: m.id.Color},
		Content: content,
	})
}

// SendTyping emits a typing-state transition on the configured channel.
// Typing signals are best effort and never trigger a reconnect.
func (m *Manager) SendTyping(isTyping bool) error {
	m.mu.Lock()
	ws, typingWS, st := m.ws, m.typingWS, m.state
	m.mu.Unlock()
	if st != Connected {
		return ErrNotConnected
	}

	if m.cfg.TypingChannel == TypingDedicated {
		return websocket.JSON.Send(typingWS, protocol.TypingFrame{
			Client:   m.id.Nickname,
			IsTyping: isTyping,
		})
	}
	return websocket.JSON.Send(ws, protocol.Frame{
		Type:     protocol.TypeNotification,
		From:     protocol.Peer{Nickname: m.id.Nickname},
		IsTyping: isTyping,
	})
}

// Keystroke feeds the local typing debouncer with the current content
// of the input field.
func (m *Manager) Keystroke(input string) {
	m.Announcer.Keystroke(input)
}

// Disconnect closes all channels and resets the session's transient
// state. It is safe to call from any state, repeatedly.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	ws, typingWS := m.ws, m.typingWS
	m.ws, m.typingWS = nil, nil
	was := m.state
	m.state = Disconnected
	m.pending = nil
	m.roster = nil
	m.mu.Unlock()

	if ws != nil {
		_ = ws.Close() // errs if already closed
	}
	if typingWS != nil {
		_ = typingWS.Close()
	}
	m.Announcer.Stop()
	m.History.Clear()
	m.Typing.Clear()
	if was != Disconnected {
		m.emitState(Disconnected)
	}
	m.wg.Wait()
}

// readLoop drains the primary channel until it closes or the session
// moves to a new generation.
func (m *Manager) readLoop(gen uint64, ws *websocket.Conn) {
	defer m.wg.Done()
	for {
		var frame protocol.Frame
		if err := websocket.JSON.Receive(ws, &frame); err != nil {
			if m.current(gen) {
				if err == io.EOF {
					log.Info().Msg("chat channel closed by server")
				} else {
					log.Warn().Err(err).Msg("error reading chat channel")
				}
				m.channelLost(gen)
			}
			return
		}
		if !m.current(gen) {
			return
		}
		m.route(frame)
	}
}

// typingLoop drains the dedicated typing channel.
func (m *Manager) typingLoop(gen uint64, ws *websocket.Conn) {
	defer m.wg.Done()
	for {
		var frame protocol.TypingFrame
		if err := websocket.JSON.Receive(ws, &frame); err != nil {
			if m.current(gen) && err != io.EOF {
				log.Warn().Err(err).Msg("error reading typing channel")
			}
			return
		}
		if !m.current(gen) {
			return
		}
		m.Typing.Handle(frame.Client, frame.IsTyping)
		if m.events.OnTyping != nil {
			m.events.OnTyping(m.Typing.Clients())
		}
	}
}

func (m *Manager) route(frame protocol.Frame) {
	switch frame.Type {
	case protocol.TypeMessage:
		m.History.Append(frame)
		m.Notifier.MessageArrived()
		m.refreshRoster()
		if m.events.OnMessage != nil {
			m.events.OnMessage(frame)
		}
	case protocol.TypeNotification:
		m.Typing.Handle(frame.From.Nickname, frame.IsTyping)
		if m.events.OnTyping != nil {
			m.events.OnTyping(m.Typing.Clients())
		}
	default:
		log.Debug().Msgf("dropping frame with unknown type %q", frame.Type)
	}
}

// refreshRoster re-queries /clients. On failure the previous roster is
// kept.
func (m *Manager) refreshRoster() {
	m.mu.Lock()
	ctx := m.dialCtx
	m.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	entries, err := roster.Fetch(ctx, m.rosterHTTP, m.id.Room)
	if err != nil {
		log.Warn().Err(err).Msg("roster refresh failed, keeping stale roster")
		return
	}
	m.mu.Lock()
	m.roster = entries
	m.mu.Unlock()
	if m.events.OnRoster != nil {
		m.events.OnRoster(entries)
	}
}

func (m *Manager) sendFrame(frame protocol.Frame) error {
	m.mu.Lock()
	ws, st := m.ws, m.state
	m.mu.Unlock()

	if st != Connected || ws == nil {
		return m.recover(frame)
	}
	if err := websocket.JSON.Send(ws, frame); err != nil {
		log.Warn().Err(err).Msg("send failed on stale channel, reconnecting")
		m.channelLost(m.generation())
		return m.recover(frame)
	}
	return nil
}

// recover queues the frame and attempts a reconnect. Connect flushes
// the queue after the channel reopens; if the reconnect fails the frame
// stays queued for the next attempt.
func (m *Manager) recover(frame protocol.Frame) error {
	m.mu.Lock()
	if len(m.pending) >= maxPending {
		log.Warn().Msg("pending queue full, dropping oldest frame")
		m.pending = m.pending[1:]
	}
	m.pending = append(m.pending, frame)
	ctx := m.dialCtx
	st := m.state
	m.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	// another goroutine may already be reconnecting, or may have
	// finished; either way the queued frame rides its flush
	switch st {
	case Connecting:
		return nil
	case Connected:
		m.flushPending()
		return nil
	}

	log.Info().Msg("connection lost, reconnecting")
	if err := m.Connect(ctx); err != nil {
		if m.State() != Disconnected {
			return nil
		}
		return fmt.Errorf("reconnect failed, message queued: %w", err)
	}
	return nil
}

func (m *Manager) flushPending() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	ws := m.ws
	m.mu.Unlock()
	if ws == nil {
		return
	}

	for i, frame := range pending {
		if err := websocket.JSON.Send(ws, frame); err != nil {
			log.Warn().Err(err).Msg("flush of queued frames interrupted")
			m.mu.Lock()
			m.pending = append(pending[i:], m.pending...)
			m.mu.Unlock()
			return
		}
	}
}

// channelLost records a server- or network-initiated close: channels
// are torn down in lockstep and the state drops to Disconnected, but no
// reconnect loop is started and derived state is kept.
func (m *Manager) channelLost(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.gen++
	ws, typingWS := m.ws, m.typingWS
	m.ws, m.typingWS = nil, nil
	m.state = Disconnected
	m.mu.Unlock()

	if ws != nil {
		_ = ws.Close()
	}
	if typingWS != nil {
		_ = typingWS.Close()
	}
	m.emitState(Disconnected)
}

func (m *Manager) setDisconnected() {
	m.mu.Lock()
	m.state = Disconnected
	m.mu.Unlock()
	m.emitState(Disconnected)
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Manager) emitState(s State) {
	if m.events.OnStateChange != nil {
		m.events.OnStateChange(s)
	}
}

// dial opens a websocket to the chat server for a given endpoint.
func dial(ctx context.Context, origin, endpoint string) (*websocket.Conn, error) {
	loc := strings.Replace(origin, "http", "ws", 1) + endpoint
	log.Debug().Msgf("ws url: %s", loc)

	cfg, err := websocket.NewConfig(loc, "app://parley") // no real origin b/c we're not a browser
	if err != nil {
		return nil, err
	}
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("error dialing ws: %w", err)
	}
	return ws, nil
}
