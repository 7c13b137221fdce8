package domain

// SendMessageRequest is the body of POST /api/chat/send.
type SendMessageRequest struct {
	Message string `json:"message" validate:"required"`
	ChatID  string `json:"chatId,omitempty" validate:"omitempty,max=64"`
}

// ErrorResponse is the client-facing error body.
type ErrorResponse struct {
	Message string `json:"message"`
}
