package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

const (
	msgNotFound  = "Chat not found"
	msgConflict  = "Chat was updated by another request, please retry"
	msgAIService = "AI Service Error"
	msgServer    = "Server error"
	msgShutdown  = "Service is restarting, please retry"
)

// ErrorStatus maps a service error onto an HTTP status and a client-safe message.
// Provider and storage details never reach the client.
func ErrorStatus(err error) (int, string) {
	var (
		ve *domain.ValidationError
		pe *domain.ProviderError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, msgConflict
	case errors.Is(err, domain.ErrShuttingDown):
		return http.StatusServiceUnavailable, msgShutdown
	case errors.As(err, &pe):
		if pe.Kind == domain.ProviderUnreachable {
			return http.StatusGatewayTimeout, msgAIService
		}
		return http.StatusBadGateway, msgAIService
	default:
		return http.StatusInternalServerError, msgServer
	}
}

func (h *Handler) writeError(c echo.Context, err error) error {
	status, msg := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		event := h.log.Error().Err(err).
			Str("path", c.Path()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
		var pe *domain.ProviderError
		if errors.As(err, &pe) {
			event = event.Str("kind", string(pe.Kind)).Int("provider_status", pe.StatusCode)
		}
		event.Msg("Chat request failed")
	}
	return c.JSON(status, domain.ErrorResponse{Message: msg})
}
