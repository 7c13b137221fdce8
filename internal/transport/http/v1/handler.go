// Package v1 provides the public chat HTTP API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Aswinikumar555/ai-customer-support/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	log     zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the chat routes. auth resolves the caller's identity.
func (h *Handler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	chat := e.Group("/api/chat", auth)
	chat.POST("/send", h.SendMessage)
	chat.GET("/history", h.ListConversations)
	chat.GET("/:id", h.GetConversation)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
