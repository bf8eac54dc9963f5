// @title                       Clinic Identity API
// @version                     1.0
// @description                 Registration, login, sessions and user administration for the clinic.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/clinica-salud/identity-service/docs"
	"github.com/clinica-salud/identity-service/internal/api"
	"github.com/clinica-salud/identity-service/internal/api/handler"
	"github.com/clinica-salud/identity-service/internal/core/ports"
	"github.com/clinica-salud/identity-service/internal/core/service"
	mongodb "github.com/clinica-salud/identity-service/internal/infrastructure/db/mongo"
	redisdb "github.com/clinica-salud/identity-service/internal/infrastructure/db/redis"
	"github.com/clinica-salud/identity-service/internal/infrastructure/queue"
	"github.com/clinica-salud/identity-service/internal/infrastructure/security"
	"github.com/clinica-salud/identity-service/internal/pkg/config"
	"github.com/clinica-salud/identity-service/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "identity-service",
		Env:     cfg.Env,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	// The store is mandatory: without it no operation can succeed.
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(ctx)
	}()
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	users := mongodb.NewUserRepository(db)
	patients := mongodb.NewPatientRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users, patients, auditRepo); err != nil {
		return err
	}

	probes := map[string]handler.Pinger{"mongodb": mongodb.Pinger{Client: mongoClient}}

	var sessions ports.SessionStore
	if cfg.Session.Enabled {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		sessions = redisdb.NewSessionStore(rdb, cfg.Session.TTL)
		probes["redis"] = redisdb.Pinger{Client: rdb}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis, sessions enabled")
	} else {
		log.Warn().Msg("sessions disabled, running token-only")
	}

	issuer, err := security.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	auditCtx, stopAudit := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditRepo, log)
	dispatcher.Start(auditCtx)
	defer func() {
		stopAudit()
		dispatcher.Wait()
	}()

	opts := []service.Option{service.WithAudit(dispatcher)}
	if sessions != nil {
		opts = append(opts, service.WithSessions(sessions))
	}
	authService := service.NewAuthService(
		users,
		patients,
		security.NewBcryptHasher(cfg.Auth.BcryptCost),
		issuer,
		log,
		opts...,
	)

	e := api.NewRouter(api.Dependencies{
		AuthService:   authService,
		TokenVerifier: issuer,
		Sessions:      sessions,
		Cookie: handler.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure || cfg.IsProduction(),
			TTL:    cfg.Session.TTL,
		},
		Probes: probes,
		Logger: log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  api.ReadTimeout,
		WriteTimeout: api.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
