package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinica-salud/identity-service/internal/core/domain"
	"github.com/clinica-salud/identity-service/internal/core/ports"
)

// Authenticate resolves the caller from a Bearer token or, when sessions is
// non-nil, from the session cookie, and injects the identity into context:
// "identity" holds the full domain.SessionPayload; "user_id", "username",
// "role", "medico_id" and "paciente_id" hold its fields as strings.
// A request carrying an Authorization header is judged on the token alone.
func Authenticate(verifier ports.TokenVerifier, sessions ports.SessionStore, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
				}

				payload, err := verifier.Verify(parts[1])
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				setIdentity(c, *payload)
				return next(c)
			}

			if sessions != nil {
				if cookie, err := c.Cookie(cookieName); err == nil && cookie.Value != "" {
					payload, err := sessions.Get(c.Request().Context(), cookie.Value)
					if err != nil {
						return domain.Internal("load session", err)
					}
					if payload == nil {
						return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
					}
					c.Set("session_id", cookie.Value)
					setIdentity(c, *payload)
					return next(c)
				}
			}

			return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
		}
	}
}

func setIdentity(c echo.Context, p domain.SessionPayload) {
	c.Set("identity", p)
	c.Set("user_id", p.ID)
	c.Set("username", p.Username)
	c.Set("role", string(p.Role))
	if p.MedicoID != nil {
		c.Set("medico_id", *p.MedicoID)
	}
	if p.PacienteID != nil {
		c.Set("paciente_id", *p.PacienteID)
	}
}
