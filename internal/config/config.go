package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string
	LogLevel    string

	// QueryTimeout bounds each store operation; zero disables the bound.
	QueryTimeout time.Duration

	// AuthPassword guards the API. Empty disables authentication, which is
	// only sensible for local development and tests.
	AuthPassword string
	SessionTTL   time.Duration

	// Circuit breaker for the key-value store.
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
}

func Load() Config {
	return Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnvRequired("DATABASE_URL"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		QueryTimeout:        getEnvDuration("QUERY_TIMEOUT", 5*time.Second),
		AuthPassword:        getEnv("AUTH_PASSWORD", ""),
		SessionTTL:          getEnvDuration("SESSION_TTL", 24*time.Hour),
		BreakerMaxFailures:  getEnvInt("BREAKER_MAX_FAILURES", 5),
		BreakerResetTimeout: getEnvDuration("BREAKER_RESET_TIMEOUT", 10*time.Second),
	}
}

func getEnvRequired(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("required environment variable " + key + " is not set")
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return d
	}
	return fallback
}
