package api

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/clinica-salud/identity-service/internal/api/handler"
	"github.com/clinica-salud/identity-service/internal/api/middleware"
	"github.com/clinica-salud/identity-service/internal/core/domain"
	"github.com/clinica-salud/identity-service/internal/core/ports"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	AuthService   ports.AuthService
	TokenVerifier ports.TokenVerifier
	// Sessions is nil when the service runs token-only.
	Sessions ports.SessionStore
	Cookie   handler.CookieConfig
	// Probes are pinged by GET /health/ready, keyed by dependency name.
	Probes map[string]handler.Pinger
	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))

	authHandler := handler.NewAuthHandler(deps.AuthService, deps.Cookie)
	userHandler := handler.NewUserHandler(deps.AuthService)
	authenticate := middleware.Authenticate(deps.TokenVerifier, deps.Sessions, deps.Cookie.Name)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)
	e.POST("/auth/register/paciente", authHandler.RegisterPatient)
	e.GET("/auth/me", authHandler.Me, authenticate)

	// --- User administration ---
	users := e.Group("/users", authenticate, middleware.RBAC(domain.RoleAdministrative))
	users.GET("", userHandler.List)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Probes, deps.Logger)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// Timeouts applied to the HTTP server.
const (
	ReadTimeout     = 10 * time.Second
	WriteTimeout    = 15 * time.Second
	ShutdownTimeout = 10 * time.Second
)
