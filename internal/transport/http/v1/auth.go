package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

const (
	ownerContextKey = "owner_id"

	// HeaderAuthToken carries the session token issued at login.
	HeaderAuthToken = "x-auth-token"
)

var errNoToken = errors.New("no token")

// Auth verifies the HS256 session token and stores the caller's identity on
// the echo context. Tokens are read from x-auth-token, a Bearer
// Authorization header or, for WebSocket upgrades, the token query parameter.
func Auth(secret []byte, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := tokenFromRequest(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Message: "No token, authorization denied"})
			}

			ownerID, err := ParseOwner(raw, secret)
			if err != nil {
				log.Warn().Err(err).
					Str("path", c.Path()).
					Str("method", c.Request().Method).
					Msg("token validation failed")
				return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Message: "Token is not valid"})
			}

			c.Set(ownerContextKey, ownerID)
			return next(c)
		}
	}
}

// OwnerID returns the authenticated owner id, or "" when none is set.
func OwnerID(c echo.Context) string {
	id, _ := c.Get(ownerContextKey).(string)
	return id
}

// ParseOwner validates raw and extracts the owner id from the sub claim, or
// from the user.id claim older tokens carry.
func ParseOwner(raw string, secret []byte) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	if sub, _ := claims.GetSubject(); sub != "" {
		return sub, nil
	}
	if user, ok := claims["user"].(map[string]interface{}); ok {
		if id, ok := user["id"].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("token carries no user id")
}

func tokenFromRequest(c echo.Context) (string, error) {
	req := c.Request()
	if tok := strings.TrimSpace(req.Header.Get(HeaderAuthToken)); tok != "" {
		return tok, nil
	}
	if header := req.Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1]), nil
		}
	}
	if tok := strings.TrimSpace(c.QueryParam("token")); tok != "" {
		return tok, nil
	}
	return "", errNoToken
}
