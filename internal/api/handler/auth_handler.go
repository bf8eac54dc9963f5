package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinica-salud/identity-service/internal/core/ports"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	authService ports.AuthService
	cookie      CookieConfig
}

func NewAuthHandler(authService ports.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  domain.UserSummary
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username:   req.Username,
		Password:   req.Password,
		Role:       req.Role,
		MedicoID:   req.MedicoID,
		PacienteID: req.PacienteID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user.Summary())
}

// Login authenticates a user, returns a signed token and, when sessions are
// enabled, sets the session cookie.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	ctx := c.Request().Context()
	res, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}

	sid, err := h.authService.EstablishSession(ctx, res.Payload)
	if err != nil {
		return err
	}
	if sid != "" {
		c.SetCookie(h.sessionCookie(sid, int(h.cookie.TTL.Seconds())))
	}

	return c.JSON(http.StatusOK, loginResponse{User: res.Payload, Token: res.Token, ExpiresAt: res.ExpiresAt})
}

// Logout destroys the current session and clears its cookie.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Failure      500  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var sid string
	if cookie, err := c.Cookie(h.cookie.Name); err == nil {
		sid = cookie.Value
	}

	if err := h.authService.Logout(c.Request().Context(), sid); err != nil {
		return err
	}

	c.SetCookie(h.sessionCookie("", -1))
	return c.JSON(http.StatusOK, messageResponse{Message: "session closed"})
}

// RegisterPatient is the public patient signup. It creates the patient record
// and a Paciente user linked to it.
//
// @Summary      Patient self-registration
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerPatientRequest  true  "Account and patient details"
// @Success      201   {object}  patientRegistrationResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register/paciente [post]
func (h *AuthHandler) RegisterPatient(c echo.Context) error {
	var req registerPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	reg, err := h.authService.RegisterPatient(c.Request().Context(), ports.RegisterPatientInput{
		Username:      req.Username,
		GoogleEmail:   req.GoogleEmail,
		Password:      req.Password,
		DNI:           req.DNI,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Age:           req.Age,
		Sex:           req.Sex,
		HealthInsurer: req.HealthInsurer,
		MemberNumber:  req.MemberNumber,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, patientRegistrationResponse{User: reg.User, Patient: reg.Patient})
}

// Me returns the identity of the authenticated caller.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.SessionPayload
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
