package config

import (
	"os"
	"strconv"
	"time"
)

// Store backend selectors for STORE_BACKEND.
const (
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Port string

	// Backing store selection
	StoreBackend string // redis | mongo | sqlite | memory
	RedisURL     string
	MongoURI     string
	SQLitePath   string

	// Thread lifecycle
	ThreadTTL time.Duration // TTL refreshed on every append

	// Planner
	ContentCeilingTokens int // absolute protocol ceiling, distinct from per-request budgets

	// Provider capabilities
	ModelsFile      string // YAML file of model context windows
	WatchModelsFile bool   // hot-reload on file change

	// Optional at-rest encryption of thread records (64 hex chars)
	EncryptionMasterKey string

	// SQLite expiry sweep
	SweepInterval time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "3040"),

		StoreBackend: getEnv("STORE_BACKEND", BackendRedis),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		MongoURI:     getEnv("MONGODB_URI", ""),
		SQLitePath:   getEnv("SQLITE_PATH", "./threadmem.db"),

		ThreadTTL: getDurationEnv("THREAD_TTL", 3*time.Hour),

		ContentCeilingTokens: getIntEnv("CONTENT_CEILING_TOKENS", 1_000_000),

		ModelsFile:      getEnv("MODELS_FILE", "./models.yaml"),
		WatchModelsFile: getBoolEnv("WATCH_MODELS_FILE", true),

		EncryptionMasterKey: getEnv("ENCRYPTION_MASTER_KEY", ""),

		SweepInterval: getDurationEnv("SWEEP_INTERVAL", 10*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
