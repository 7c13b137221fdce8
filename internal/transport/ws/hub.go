// Package ws provides the chat WebSocket transport.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
	"github.com/Aswinikumar555/ai-customer-support/internal/metrics"
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID      string
	OwnerID string
	Conn    *websocket.Conn
	Send    chan []byte
	mu      sync.Mutex
}

// Hub tracks open connections per owner and fans conversation updates out to
// every device of that owner.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// owners maps owner_id to set of connection IDs
	owners map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *ownerMessage
	done       chan struct{}

	log zerolog.Logger
	mu  sync.RWMutex
}

type ownerMessage struct {
	ownerID string
	data    []byte

	// originConnID receives originData instead of data: the same frame
	// carrying the request_id of the send that produced it.
	originConnID string
	originData   []byte
}

type originKey struct{}

type origin struct {
	connID    string
	requestID string
}

// withOrigin marks ctx as serving requestID of connection connID.
func withOrigin(ctx context.Context, connID, requestID string) context.Context {
	return context.WithValue(ctx, originKey{}, origin{connID: connID, requestID: requestID})
}

// NewHub creates a new Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		owners:      make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *ownerMessage, 256),
		done:        make(chan struct{}),
		log:         log,
	}
}

// Run starts the hub's main loop and blocks until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.owners[conn.OwnerID] == nil {
				h.owners[conn.OwnerID] = make(map[string]bool)
			}
			h.owners[conn.OwnerID][conn.ID] = true
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			h.log.Debug().Str("conn_id", conn.ID).Str("owner_id", conn.OwnerID).Msg("Connection registered")

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Connection
			for connID := range h.owners[msg.ownerID] {
				conn, ok := h.connections[connID]
				if !ok {
					continue
				}
				data := msg.data
				if connID == msg.originConnID {
					data = msg.originData
				}
				select {
				case conn.Send <- data:
				default:
					slow = append(slow, conn)
				}
			}
			h.mu.RUnlock()
			for _, conn := range slow {
				h.log.Warn().Str("conn_id", conn.ID).Msg("Connection buffer full, closing")
				h.remove(conn)
			}
		}
	}
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if set := h.owners[conn.OwnerID]; set != nil {
		delete(set, conn.ID)
		if len(set) == 0 {
			delete(h.owners, conn.OwnerID)
		}
	}
	close(conn.Send)
	metrics.WebSocketConnections.Dec()
	h.log.Debug().Str("conn_id", conn.ID).Msg("Connection unregistered")
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		h.remove(conn)
	}
	close(h.done)
}

// NewConnection creates a connection owned by ownerID. It is not registered yet.
func (h *Hub) NewConnection(ws *websocket.Conn, ownerID string) *Connection {
	return &Connection{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Conn:    ws,
		Send:    make(chan []byte, 64),
	}
}

// Register registers a connection with the hub. It reports false once the hub stopped.
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish sends the updated conversation to every connection of ownerID. When
// ctx comes from a WebSocket send, the requesting connection's copy carries
// its request_id.
func (h *Hub) Publish(ctx context.Context, ownerID string, conv *domain.Conversation) {
	frame := Frame{Type: TypeConversation, Ts: time.Now().UnixMilli(), Conversation: conv}
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode conversation frame")
		return
	}
	msg := &ownerMessage{ownerID: ownerID, data: data}
	if o, ok := ctx.Value(originKey{}).(origin); ok && o.requestID != "" {
		frame.RequestID = o.requestID
		if msg.originData, err = json.Marshal(frame); err == nil {
			msg.originConnID = o.connID
		}
	}

	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.log.Warn().Str("owner_id", ownerID).Msg("Broadcast queue full, dropping conversation update")
	}
}

// SendJSON queues v for a single connection.
func (h *Hub) SendJSON(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return ErrConnectionClosed
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// OwnerConnectionCount returns the number of active connections of ownerID.
func (h *Hub) OwnerConnectionCount(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[ownerID])
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

type sendError string

func (e sendError) Error() string { return string(e) }

const (
	// ErrBufferFull is returned when the send buffer is full.
	ErrBufferFull = sendError("send buffer full")
	// ErrConnectionClosed is returned for connections the hub no longer tracks.
	ErrConnectionClosed = sendError("connection closed")
)
