package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultJWTSecret is only acceptable outside production.
const defaultJWTSecret = "change-me"

// ErrInsecureJWTSecret is returned by Validate when production runs without JWT_SECRET.
var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set in production")

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	Environment string
	// DBDriver is mysql or sqlite; DatabaseDSN is the MySQL DSN or the SQLite file path.
	DBDriver    string
	DatabaseDSN string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	JWTExpiry   time.Duration
	SwaggerHost string
	// TrustProxy takes the client IP from X-Forwarded-For set by private-range proxies.
	TrustProxy bool

	// ProtectMode is LIVE or DRY_RUN.
	ProtectMode  string
	ProtectStore string
	BurstMax     int
	BurstWindow  time.Duration

	SeedAdminName     string
	SeedAdminEmail    string
	SeedAdminPassword string
}

// Load builds Config from environment with sensible defaults. A .env file in
// the working directory is read first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	env := strings.ToLower(getEnv("ENVIRONMENT", "development"))
	defaultMode := "LIVE"
	if env == "development" {
		defaultMode = "DRY_RUN"
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		Environment:       env,
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DatabaseDSN:       getEnv("DATABASE_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		SwaggerHost:       os.Getenv("SWAGGER_HOST"),
		TrustProxy:        getEnvBool("TRUST_PROXY", false),
		ProtectMode:       strings.ToUpper(getEnv("PROTECT_MODE", defaultMode)),
		ProtectStore:      strings.ToLower(getEnv("PROTECT_STORE", "redis")),
		BurstMax:          getEnvInt("PROTECT_BURST_MAX", 5),
		BurstWindow:       getEnvDuration("PROTECT_BURST_WINDOW", 2*time.Second),
		SeedAdminName:     getEnv("SEED_ADMIN_NAME", "Administrator"),
		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}
}

// Validate rejects settings the service must not start with. Outside
// production the default signing secret is allowed with a warning.
func (c *Config) Validate() error {
	if c.JWTSecret != defaultJWTSecret {
		return nil
	}
	if c.IsProduction() {
		return ErrInsecureJWTSecret
	}
	slog.Warn("JWT_SECRET is not set, using the insecure development default")
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
