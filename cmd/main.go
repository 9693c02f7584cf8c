package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/immxrtalbeast/medsignal/internal/api/http"
	"github.com/immxrtalbeast/medsignal/internal/config"
	"github.com/immxrtalbeast/medsignal/internal/domain"
	"github.com/immxrtalbeast/medsignal/internal/repository"
	"github.com/immxrtalbeast/medsignal/internal/service"
	"github.com/immxrtalbeast/medsignal/lib/logger/sl"
	"github.com/immxrtalbeast/medsignal/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Auth.Secret == "" {
		log.Error("JWT secret is not configured, every connection will be refused")
	}

	users, err := setupDirectory(ctx, cfg, log)
	if err != nil {
		log.Error("failed to set up user directory", sl.Err(err))
		os.Exit(1)
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   cfg.Auth.Leeway,
	})
	doctors := service.NewDoctorRegistry(log)
	rooms := service.NewRoomRegistry(log)
	gateway := service.NewGateway(doctors, rooms, users, log)
	router := service.NewMessageRouter(rooms, gateway, log)
	signals := service.NewSignalService(tokens, doctors, rooms, router, log)

	signalController := httpapi.NewSignalController(signals, cfg.WS, cfg.HTTP.AllowedOrigins, log)
	notifyController := httpapi.NewNotifyController(gateway, signals, log)
	iceController := httpapi.NewICEController(cfg.WebRTC)

	if cfg.Internal.APIKey == "" {
		log.Warn("internal api key is empty, notification endpoints are disabled")
	}

	engine := httpapi.SetupRouter(httpapi.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		WSPath:         cfg.WS.Path,
		InternalAPIKey: cfg.Internal.APIKey,
	}, signalController, notifyController, iceController)

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: engine,
	}

	go func() {
		log.Info("starting application", slog.String("addr", cfg.HTTP.Address), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	// Hijacked websocket connections are not tracked by Shutdown; they end
	// when the process exits.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", sl.Err(err))
	}
	log.Info("server exited", slog.Int("rooms", signals.Stats().Rooms))
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

// setupDirectory picks the postgres users table when a DSN is configured and
// a seeded in-memory directory otherwise. Redis, when configured, caches
// role lookups in front of either.
func setupDirectory(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.UserDirectory, error) {
	var users repository.UserDirectory

	if cfg.Database.DSN != "" {
		db, err := connectDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		users = repository.NewPostgresUserRepository(db)
		log.Info("using postgres user directory")
	} else {
		mem := repository.NewInMemoryUserRepository()
		for _, id := range cfg.Admins {
			if err := mem.Create(ctx, domain.NewUser(id, id, domain.RoleAdmin)); err != nil {
				return nil, err
			}
		}
		users = mem
		log.Info("using in-memory user directory", slog.Int("admins", len(cfg.Admins)))
	}

	if cfg.Redis.Addr == "" {
		return users, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, role cache disabled", slog.String("addr", cfg.Redis.Addr), sl.Err(err))
		_ = client.Close()
		return users, nil
	}
	log.Info("caching role lookups in redis", slog.String("addr", cfg.Redis.Addr), slog.Duration("ttl", cfg.Redis.RoleTTL))
	return repository.NewCachedUserDirectory(users, client, cfg.Redis.RoleTTL, log), nil
}

func connectDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
