package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabasePath string
	Environment  string

	// SessionTick is the resolution of the active-session countdown timer.
	SessionTick time.Duration

	// AllowedOrigins restricts WebSocket origins. Empty means allow all
	// (single-user local deployment default).
	AllowedOrigins []string
}

func LoadConfig() (*Config, error) {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabasePath:   getEnv("DATABASE_PATH", "testcraft.db"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		SessionTick:    time.Duration(getEnvInt("SESSION_TICK_MS", 1000)) * time.Millisecond,
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "")),
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
