package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"acquisitions/docs"
	"acquisitions/internal/auth"
	"acquisitions/internal/cache"
	"acquisitions/internal/config"
	"acquisitions/internal/db"
	"acquisitions/internal/handler"
	"acquisitions/internal/middleware"
	"acquisitions/internal/protect"
	"acquisitions/internal/repository"
	"acquisitions/internal/router"
	"acquisitions/internal/service"
)

// @title Acquisitions API
// @version 1.0
// @description User accounts API with cookie or bearer JWT sessions, role guards and adaptive rate limiting.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	setupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		fatal("database init", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		fatal("database migrate", err)
	}

	store, closeStore, err := windowStore(cfg)
	if err != nil {
		fatal("rate limit store init", err)
	}
	defer closeStore()

	mode := protect.ParseMode(cfg.ProtectMode)
	rules := []protect.Rule{
		protect.Shield{Mode: mode},
		protect.DetectBot{
			Mode:  mode,
			Allow: []protect.BotCategory{protect.CategorySearchEngine, protect.CategoryPreview},
			Block: []protect.BotCategory{protect.CategoryAutomated},
		},
	}
	if cfg.BurstMax > 0 {
		rules = append(rules, protect.SlidingWindow{
			Mode:     mode,
			Name:     "burst",
			Interval: cfg.BurstWindow,
			Max:      cfg.BurstMax,
			Store:    store,
		})
	}

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry)
	hasher := auth.NewBcryptHasher(auth.DefaultBcryptCost)
	session := auth.NewSessionCarrier(cfg.IsProduction(), jwtService.Expiry())

	// Initialize services
	userRepo := repository.NewUserRepository(gormDB)
	authService := service.NewAuthService(userRepo, hasher, jwtService)
	userService := service.NewUserService(userRepo, hasher)

	e := echo.New()
	if cfg.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	}
	router.Register(e, router.Handlers{
		Auth:          handler.NewAuthHandler(authService, session),
		Users:         handler.NewUserHandler(userService),
		Health:        handler.NewHealthHandler(),
		Authenticator: middleware.NewAuthenticator(jwtService, session),
		Security: middleware.NewSecurity(middleware.SecurityConfig{
			Protector:  protect.NewClient(rules...),
			Store:      store,
			HealthPath: router.HealthPath,
		}),
	})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}
	slog.Info("swagger documentation available", "url", swaggerURL(cfg))
	slog.Info("server starting",
		"port", cfg.ServerPort,
		"environment", cfg.Environment,
		"db_driver", cfg.DBDriver,
		"protect_mode", mode,
		"protect_store", cfg.ProtectStore,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server start", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h).With("service", "acquisitions"))
}

// windowStore picks where sliding-window hits are kept.
func windowStore(cfg *config.Config) (protect.WindowStore, func(), error) {
	if cfg.ProtectStore == "memory" {
		return protect.NewMemoryWindowStore(), func() {}, nil
	}

	client := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Error("redis close", "error", err)
		}
	}
	return protect.NewRedisWindowStore(client, "acquisitions:ratelimit:"), closeFn, nil
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
