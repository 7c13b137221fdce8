package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

// SendMessage runs one chat exchange.
// POST /api/chat/send
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Message: validationMessage(err)})
	}

	conv, err := h.service.SendMessage(c.Request().Context(), OwnerID(c), req.Message, req.ChatID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// ListConversations returns the caller's conversations, most recent first.
// GET /api/chat/history
func (h *Handler) ListConversations(c echo.Context) error {
	summaries, err := h.service.ListConversations(c.Request().Context(), OwnerID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, summaries)
}

// GetConversation returns one conversation of the caller.
// GET /api/chat/:id
func (h *Handler) GetConversation(c echo.Context) error {
	conv, err := h.service.GetConversation(c.Request().Context(), OwnerID(c), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}
