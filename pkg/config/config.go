package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string
	LogLevel       string

	// DocStore selects the booking document store: "postgres" (default) or "memory".
	DocStore string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often a pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	// Timezone is the zone scheduled dates are normalized in. Warehouse
	// users think in local calendar days, not UTC ones.
	Timezone string

	Auth AuthConfig

	// AllowedOrigins is a comma-separated allowlist for the scheduling UI. Example:
	//   https://agenda.example.com,http://localhost:5173
	AllowedOrigins []string

	Redis RedisConfig
	AMQP  AMQPConfig
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type AuthConfig struct {
	// JWTSecret signs HS256 bearer tokens. Empty disables auth outside prod.
	JWTSecret string
	Audience  string
}

type RedisConfig struct {
	// Addr enables the client lookup cache when set.
	Addr      string
	Password  string
	ClientTTL time.Duration
}

type AMQPConfig struct {
	// URL enables booking event publishing when set.
	URL      string
	Exchange string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		LogLevel:       env("LOG_LEVEL", "info"),
		DocStore:       env("DOCSTORE", "postgres"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "receiving"),
			User:     env("DB_USER", "receiving"),
			Password: env("DB_PASSWORD", "receiving"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Timezone: env("APP_TIMEZONE", "America/Sao_Paulo"),
		Auth: AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
			Audience:  os.Getenv("AUTH_AUDIENCE"),
		},
		AllowedOrigins: envList("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			ClientTTL: envDuration("CLIENT_CACHE_TTL", 5*time.Minute),
		},
		AMQP: AMQPConfig{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: env("AMQP_EXCHANGE", "bookings"),
		},
	}
}

// Location resolves Timezone, falling back to the process local zone.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
