package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/supervitec/field-movement-api/internal/auth"
	"github.com/supervitec/field-movement-api/internal/config"
	"github.com/supervitec/field-movement-api/internal/database"
	"github.com/supervitec/field-movement-api/internal/handler"
	"github.com/supervitec/field-movement-api/internal/mailer"
	"github.com/supervitec/field-movement-api/internal/model"
	"github.com/supervitec/field-movement-api/internal/queue"
	"github.com/supervitec/field-movement-api/internal/repository"
	"github.com/supervitec/field-movement-api/internal/router"
	"github.com/supervitec/field-movement-api/internal/scheduler"
	"github.com/supervitec/field-movement-api/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg.Env)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("database migration failed")
	}
	cancel()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable: session tracking, revocation and rate limiting disabled")
	}
	sessions := session.NewStore(rdb)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays)

	users := repository.NewUserRepo(db)
	movements := repository.NewMovementRepo(db)
	messages := repository.NewMessageRepo(db)
	adminConfigs := repository.NewAdminConfigRepo(db)

	mail, err := mailer.New(cfg.SMTP, log)
	if err != nil {
		log.Fatal().Err(err).Msg("mailer setup failed")
	}

	if err := seedAdmin(context.Background(), users, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	router.Register(e, router.Deps{
		Issuer:    issuer,
		Sessions:  sessions,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),

		Auth: &handler.AuthHandler{
			Users: users, Issuer: issuer, Sessions: sessions,
			Mail: mail, Cfg: cfg, Log: log,
		},
		Movements: &handler.MovementHandler{
			Movements: movements, Users: users, RabbitURL: cfg.RabbitURL, Log: log,
		},
		Users:    &handler.UserHandler{Users: users, Sessions: sessions, Log: log},
		Messages: &handler.MessageHandler{Messages: messages, Users: users, Log: log},
		Dashboard: &handler.DashboardHandler{
			Users: users, Movements: movements, Messages: messages, Log: log,
		},
		AdminConfig: &handler.AdminConfigHandler{Configs: adminConfigs, Log: log},
		Health:      &handler.HealthHandler{DB: db},
	})

	go func() {
		if err := queue.StartMovementConsumer(cfg.RabbitURL, log); err != nil {
			log.Warn().Err(err).Msg("movement consumer stopped")
		}
	}()

	sched := scheduler.New(users, movements, mail, cfg, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("scheduler setup failed")
	}

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("bye")
}

// newLogger builds the process logger: human-readable in dev,
// structured JSON everywhere else.
func newLogger(env string) zerolog.Logger {
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// seedAdmin guarantees at least one administrator exists when the
// bootstrap credentials are configured. An existing but disabled admin
// is reactivated so operators cannot lock themselves out permanently.
func seedAdmin(ctx context.Context, users *repository.UserRepo, cfg config.Config, log zerolog.Logger) error {
	if cfg.DefaultAdminEmail == "" || cfg.DefaultAdminPassword == "" {
		return nil
	}

	existing, err := users.GetByEmail(ctx, cfg.DefaultAdminEmail)
	if err == nil {
		if !existing.IsActive {
			// A disabled bootstrap admin means the operator is locked
			// out; reactivate and restore the configured password.
			if err := users.SetActive(ctx, existing.ID, true); err != nil {
				return err
			}
			if err := users.UpdatePassword(ctx, existing.ID, cfg.DefaultAdminPassword, cfg.BcryptCost); err != nil {
				return err
			}
			log.Info().Str("email", cfg.DefaultAdminEmail).Msg("bootstrap admin reactivated")
		}
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	admin := model.User{
		FullName:  "Administrator",
		Email:     cfg.DefaultAdminEmail,
		Role:      model.RoleAdmin,
		Region:    model.RegionCaldas,
		Transport: model.TransportCar,
		IsActive:  true,
	}
	id, err := users.Create(ctx, admin, cfg.DefaultAdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	log.Info().Uint64("user_id", id).Str("email", cfg.DefaultAdminEmail).
		Msg("bootstrap admin created")
	return nil
}
