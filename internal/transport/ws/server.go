package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
	"github.com/Aswinikumar555/ai-customer-support/internal/service"
	v1 "github.com/Aswinikumar555/ai-customer-support/internal/transport/http/v1"
)

const writeTimeout = 10 * time.Second

// Server handles chat WebSocket connections.
type Server struct {
	hub            *Hub
	service        *service.Service
	log            zerolog.Logger
	pingInterval   time.Duration
	maxMessageSize int64
	upgrader       websocket.Upgrader
}

// NewServer creates a new WebSocket server. The service must publish to hub
// for conversation frames to reach clients.
func NewServer(h *Hub, svc *service.Service, pingInterval time.Duration, maxMessageChars int, log zerolog.Logger) *Server {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Server{
		hub:            h,
		service:        svc,
		log:            log,
		pingInterval:   pingInterval,
		maxMessageSize: int64(maxMessageChars)*4 + 4096,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Tokens, not cookies, authenticate the socket.
				return true
			},
		},
	}
}

// RegisterRoutes registers the WebSocket endpoint. auth must run before the upgrade.
func (s *Server) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.GET("/api/chat/ws", s.HandleWebSocket, auth)
}

// HandleWebSocket upgrades the request and starts the connection pumps.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ownerID := v1.OwnerID(c)
	if ownerID == "" {
		return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Message: "No token, authorization denied"})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to upgrade WebSocket")
		return nil
	}

	conn := s.hub.NewConnection(ws, ownerID)
	if !s.hub.Register(conn) {
		_ = ws.Close()
		return nil
	}
	ws.SetReadLimit(s.maxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// readPump reads frames until the connection fails.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	pongWait := 2 * s.pingInterval
	_ = conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn().Err(err).Str("conn_id", conn.ID).Msg("WebSocket read error")
			}
			return
		}
		_ = conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		s.handleFrame(conn, data)
	}
}

// writePump drains the connection's send queue and keeps it alive with pings.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Warn().Err(err).Str("conn_id", conn.ID).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleFrame(conn *Connection, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON frame")
		return
	}

	switch frame.Type {
	case TypeSend:
		s.handleSend(conn, frame)
	case TypePing:
		s.send(conn, Frame{Type: TypePong, RequestID: frame.RequestID})
	default:
		s.sendError(conn, frame.RequestID, ErrorCodeInvalidMessage, "unknown frame type: "+frame.Type)
	}
}

// handleSend acknowledges the frame and runs the exchange off the read loop.
// The resulting conversation reaches the client through the hub, tagged with
// the frame's request_id on this connection only.
func (s *Server) handleSend(conn *Connection, frame Frame) {
	if strings.TrimSpace(frame.Message) == "" {
		s.sendError(conn, frame.RequestID, ErrorCodeInvalid, "message is required")
		return
	}
	s.send(conn, Frame{Type: TypeAck, RequestID: frame.RequestID, ChatID: frame.ChatID})

	go func() {
		ctx := withOrigin(context.Background(), conn.ID, frame.RequestID)
		_, err := s.service.SendMessage(ctx, conn.OwnerID, frame.Message, frame.ChatID)
		if err != nil {
			_, msg := v1.ErrorStatus(err)
			s.sendError(conn, frame.RequestID, errorCode(err), msg)
		}
	}()
}

func errorCode(err error) string {
	var (
		ve *domain.ValidationError
		pe *domain.ProviderError
	)
	switch {
	case errors.As(err, &ve):
		return ErrorCodeInvalid
	case errors.Is(err, domain.ErrNotFound):
		return ErrorCodeNotFound
	case errors.Is(err, domain.ErrConflict):
		return ErrorCodeConflict
	case errors.Is(err, domain.ErrShuttingDown):
		return ErrorCodeUnavailable
	case errors.As(err, &pe):
		return ErrorCodeProvider
	default:
		return ErrorCodeServer
	}
}

func (s *Server) send(conn *Connection, frame Frame) {
	frame.Ts = time.Now().UnixMilli()
	if err := s.hub.SendJSON(conn, frame); err != nil {
		s.log.Debug().Err(err).Str("conn_id", conn.ID).Msg("Dropping frame")
	}
}

func (s *Server) sendError(conn *Connection, requestID, code, message string) {
	s.send(conn, Frame{Type: TypeError, RequestID: requestID, Code: code, Message: message})
}
