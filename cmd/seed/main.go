package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"acquisitions/internal/auth"
	"acquisitions/internal/config"
	"acquisitions/internal/db"
	apperrors "acquisitions/internal/errors"
	"acquisitions/internal/model"
	"acquisitions/internal/repository"
	"acquisitions/internal/service"
	"acquisitions/internal/validation"
)

// seed creates the initial admin account. Running it again is a no-op once
// the account exists.
func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	slog.Info("starting seed script")

	cfg := config.Load()
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		slog.Error("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")
		os.Exit(1)
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}

	req := validation.SignUpRequest{
		Name:     cfg.SeedAdminName,
		Email:    cfg.SeedAdminEmail,
		Password: cfg.SeedAdminPassword,
		Role:     model.RoleAdmin,
	}
	if err := validation.New().Validate(&req); err != nil {
		slog.Error("invalid seed admin", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	authService := service.NewAuthService(
		repository.NewUserRepository(gormDB),
		auth.NewBcryptHasher(auth.DefaultBcryptCost),
		auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry),
	)
	admin, err := authService.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	switch {
	case errors.Is(err, apperrors.ErrEmailExists):
		slog.Info("admin already exists, nothing to do", "email", req.Email)
	case err != nil:
		slog.Error("create admin", "error", err)
		os.Exit(1)
	default:
		slog.Info("admin created", "id", admin.ID, "email", admin.Email)
	}
}
