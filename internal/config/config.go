package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Database URLs. An empty ClickHouseURL disables the ingest audit sink.
	PostgresURL   string
	ClickHouseURL string
	RedisURL      string

	// Worker pool
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration

	// Auth. An empty secret lets every client request through.
	APISecret           string
	MinCollectorVersion int

	// Steam profile lookups
	SteamAPIKey  string
	SteamTimeout time.Duration

	// Replay storage
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	ReplayURLTTL  time.Duration
	MaxReplaySize int64

	// Ingestion
	MatchWindow    time.Duration
	MatchLockTTL   time.Duration
	LadderCacheTTL time.Duration
}

// Load loads configuration from a .env file, if any, and the environment.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	// A missing .env is the normal case outside development
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		ClickHouseURL: getEnv("CLICKHOUSE_URL", ""),

		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		QueueSize:     getEnvInt("QUEUE_SIZE", 10000),
		BatchSize:     getEnvInt("BATCH_SIZE", 500),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 1*time.Second),

		APISecret:           getEnv("API_SECRET", ""),
		MinCollectorVersion: getEnvInt("MIN_COLLECTOR_VERSION", 21400),

		SteamAPIKey:  getEnv("STEAM_API_KEY", ""),
		SteamTimeout: getEnvDuration("STEAM_TIMEOUT", 5*time.Second),

		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3Region:      getEnv("S3_REGION", "us-east-1"),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3AccessKey:   getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:   getEnv("S3_SECRET_KEY", ""),
		ReplayURLTTL:  getEnvDuration("REPLAY_URL_TTL", 15*time.Minute),
		MaxReplaySize: int64(getEnvInt("MAX_REPLAY_SIZE", 32<<20)),

		MatchWindow:    getEnvDuration("MATCH_WINDOW", 10*time.Minute),
		MatchLockTTL:   getEnvDuration("MATCH_LOCK_TTL", 5*time.Second),
		LadderCacheTTL: getEnvDuration("LADDER_CACHE_TTL", 30*time.Second),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "*")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether ENV selects the production logger
func (c *Config) IsProduction() bool {
	return getEnvBool("PRODUCTION", false) || strings.EqualFold(c.Env, "production")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
