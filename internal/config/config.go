package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration with defaults suitable for local dev.
type Config struct {
	Port          string
	BaseURL       string
	AllowedOrigin string

	RedisURL    string
	DatabaseURL string // optional: enables the Postgres archive
	NatsURL     string // optional: enables visit events

	CodeLength     int
	GenAttempts    int
	StatsRetention time.Duration // 0 keeps creation metadata forever

	RateLimit      int
	RateWindow     time.Duration
	WorkerInterval time.Duration // 0 disables the analytics worker
}

// Load reads configuration from the environment, after a best-effort load
// of a local .env file (existing env vars win).
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		BaseURL:        strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		AllowedOrigin:  os.Getenv("ALLOWED_ORIGIN"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		NatsURL:        os.Getenv("NATS_URL"),
		CodeLength:     getEnvInt("CODE_LENGTH", 7),
		GenAttempts:    getEnvInt("CODE_GEN_ATTEMPTS", 5),
		StatsRetention: time.Duration(getEnvInt("STATS_RETENTION_SEC", 0)) * time.Second,
		RateLimit:      getEnvInt("RL_LIMIT", 120),
		RateWindow:     time.Duration(getEnvInt("RL_WINDOW_SEC", 60)) * time.Second,
		WorkerInterval: time.Duration(getEnvInt("WORKER_INTERVAL_SEC", 10)) * time.Second,
	}

	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 7
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 120
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = 60 * time.Second
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
