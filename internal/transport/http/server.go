// Package http provides the HTTP servers of the chat service.
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Aswinikumar555/ai-customer-support/internal/metrics"
	"github.com/Aswinikumar555/ai-customer-support/internal/service"
	v1 "github.com/Aswinikumar555/ai-customer-support/internal/transport/http/v1"
	"github.com/Aswinikumar555/ai-customer-support/internal/transport/ws"
)

// NewPublicServer creates the client-facing HTTP server: the chat API and the
// chat WebSocket, both behind token authentication.
func NewPublicServer(svc *service.Service, wsServer *ws.Server, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := newEcho(log)
	e.Use(middleware.CORS())
	e.Validator = v1.NewValidator()

	auth := v1.Auth([]byte(jwtSecret), log)

	v1.NewHandler(svc, log).RegisterRoutes(e, auth)
	if wsServer != nil {
		wsServer.RegisterRoutes(e, auth)
	}

	return e
}

// NewInternalServer creates the operator-facing server with metrics and probes.
func NewInternalServer(svc *service.Service, log zerolog.Logger) *echo.Echo {
	e := newEcho(log)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := svc.Ready(ctx); err != nil {
			log.Warn().Err(err).Msg("Readiness check failed")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	return e
}

func newEcho(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			metrics.RecordRequest(v.Method, v.RoutePath, strconv.Itoa(v.Status), v.Latency)

			event := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))

	return e
}
