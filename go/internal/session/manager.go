package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// EventHandler receives every decoded client message. The Manager does not
// interpret events itself; dispatching belongs to the Service.
type EventHandler interface {
	HandleEvent(ctx context.Context, conn *Connection, env Envelope)
}

// DisconnectHandler is notified exactly once per connection after it leaves
// the transport, regardless of how it terminated. campaignID is the room the
// connection was in at the moment it dropped, nil when roomless.
type DisconnectHandler interface {
	HandleDisconnect(conn *Connection, campaignID *uuid.UUID)
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  16 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
	}
}

// broadcastMessage is one unit of fanout work. Exactly one of target or
// room-wide delivery applies: a set target wins. All deliveries flow through
// a single channel so order within a room is FIFO relative to the order
// mutations were persisted.
type broadcastMessage struct {
	campaignID uuid.UUID
	target     *Connection
	exclude    *Connection
	payload    []byte
}

// Manager owns the connection pools per campaign room and the broadcast
// fanout loop.
type Manager struct {
	rooms map[uuid.UUID]map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan broadcastMessage

	events     EventHandler
	disconnect DisconnectHandler
}

// NewManager creates a new connection manager
func NewManager(config ConnectionConfig) *Manager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	return &Manager{
		rooms: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 1024),
	}
}

// SetHandlers wires the event and disconnect callbacks. Must be called
// before any connection is upgraded.
func (m *Manager) SetHandlers(events EventHandler, disconnect DisconnectHandler) {
	m.events = events
	m.disconnect = disconnect
}

// Start runs the fanout loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	log.Info().Msg("session manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session manager shutting down")
			return
		case message := <-m.broadcastCh:
			m.deliver(message)
		}
	}
}

// Upgrade promotes an authenticated HTTP request to a WebSocket connection
// and starts its pumps. The connection joins no room until campaign:join.
func (m *Manager) Upgrade(w http.ResponseWriter, r *http.Request, userID uuid.UUID, userName string) (*Connection, error) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade connection: %w", err)
	}

	conn := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		UserName:    userName,
		conn:        ws,
		Send:        make(chan []byte, m.config.SendBufferSize),
		manager:     m,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	go conn.writePump()
	go conn.readPump()

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", userID.String()).
		Msg("websocket connection established")

	return conn, nil
}

// Register adds the connection to a campaign room.
func (m *Manager) Register(conn *Connection, campaignID uuid.UUID, gm bool) {
	m.mu.Lock()
	if m.rooms[campaignID] == nil {
		m.rooms[campaignID] = make(map[*Connection]bool)
	}
	m.rooms[campaignID][conn] = true
	total := len(m.rooms[campaignID])
	m.mu.Unlock()

	conn.setRoom(&campaignID, gm)

	log.Debug().
		Str("connection_id", conn.ID).
		Str("campaign_id", campaignID.String()).
		Int("room_size", total).
		Msg("connection joined room")
}

// Unregister removes the connection from a campaign room. Returns false if
// the connection was not in that room.
func (m *Manager) Unregister(conn *Connection, campaignID uuid.UUID) bool {
	m.mu.Lock()
	room, ok := m.rooms[campaignID]
	if ok {
		_, ok = room[conn]
	}
	if ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(m.rooms, campaignID)
		}
	}
	m.mu.Unlock()

	if ok {
		conn.setRoom(nil, false)
	}
	return ok
}

// Roster returns a snapshot of every connection currently in the room.
func (m *Manager) Roster(campaignID uuid.UUID) []PlayerInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room := m.rooms[campaignID]
	roster := make([]PlayerInfo, 0, len(room))
	for conn := range room {
		roster = append(roster, PlayerInfo{UserID: conn.UserID, UserName: conn.UserName})
	}
	return roster
}

// SendTo queues an event for one connection, ordered with room broadcasts.
func (m *Manager) SendTo(conn *Connection, event string, payload interface{}) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}
	campaignID := uuid.Nil
	if joined := conn.Campaign(); joined != nil {
		campaignID = *joined
	}
	m.enqueue(broadcastMessage{campaignID: campaignID, target: conn, payload: data})
}

// Broadcast queues an event for every connection in the room, excluding the
// originator when exclude is non-nil.
func (m *Manager) Broadcast(campaignID uuid.UUID, event string, payload interface{}, exclude *Connection) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}
	m.enqueue(broadcastMessage{campaignID: campaignID, exclude: exclude, payload: data})
}

func (m *Manager) enqueue(message broadcastMessage) {
	select {
	case m.broadcastCh <- message:
	default:
		log.Warn().
			Str("campaign_id", message.campaignID.String()).
			Msg("broadcast channel full, dropping message")
	}
}

// deliver pushes one fanout unit to its targets outside the room lock.
func (m *Manager) deliver(message broadcastMessage) {
	var targets []*Connection
	if message.target != nil {
		targets = []*Connection{message.target}
	} else {
		m.mu.RLock()
		for conn := range m.rooms[message.campaignID] {
			if conn == message.exclude {
				continue
			}
			targets = append(targets, conn)
		}
		m.mu.RUnlock()
	}

	for _, conn := range targets {
		select {
		case conn.Send <- message.payload:
		default:
			// Slow or dead consumer; closing it triggers disconnect
			// cleanup through the read pump.
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("send buffer full, closing connection")
			if conn.conn != nil {
				conn.conn.Close()
			}
		}
	}
}

// dropConnection tears down all membership state for a closing connection,
// exactly once even when both pumps exit.
func (m *Manager) dropConnection(conn *Connection) {
	conn.closeOnce.Do(func() {
		joined := conn.Campaign()
		if joined != nil {
			m.Unregister(conn, *joined)
		}
		if m.disconnect != nil {
			m.disconnect.HandleDisconnect(conn, joined)
		}
		log.Info().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID.String()).
			Msg("connection closed")
	})
}

func (m *Manager) handleClientMessage(conn *Connection, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Debug().
			Str("connection_id", conn.ID).
			Err(err).
			Msg("discarding malformed client message")
		return
	}
	if m.events != nil {
		m.events.HandleEvent(context.Background(), conn, env)
	}
}

// Stats returns counts of active rooms and connections.
func (m *Manager) Stats() (connections int, activeRooms int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, room := range m.rooms {
		connections += len(room)
	}
	return connections, len(m.rooms)
}

func marshalEnvelope(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
