package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

// ctxIdentity returns the session payload injected by the Authenticate
// middleware. Its absence means the route was mounted without authentication.
func ctxIdentity(c echo.Context) (domain.SessionPayload, error) {
	p, ok := c.Get("identity").(domain.SessionPayload)
	if !ok || p.ID == "" {
		return domain.SessionPayload{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
