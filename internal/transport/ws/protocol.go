package ws

import "github.com/Aswinikumar555/ai-customer-support/internal/domain"

// Frame types from client to server
const (
	TypeSend = "send"
	TypePing = "ping"
)

// Frame types from server to client
const (
	TypeAck          = "ack"
	TypeConversation = "conversation"
	TypePong         = "pong"
	TypeError        = "error"
)

// Error codes carried by error frames.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeInvalid        = "invalid"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeConflict       = "conflict"
	ErrorCodeProvider       = "provider_error"
	ErrorCodeUnavailable    = "unavailable"
	ErrorCodeServer         = "server_error"
)

// Frame is the single JSON envelope used in both directions.
type Frame struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`

	// send
	ChatID  string `json:"chat_id,omitempty"`
	Message string `json:"message,omitempty"`

	// conversation
	Conversation *domain.Conversation `json:"conversation,omitempty"`

	// error
	Code string `json:"code,omitempty"`
}
