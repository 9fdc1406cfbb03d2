package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	ServerPort     string
	StorageDriver  string
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	JWTExpiry      time.Duration
	AllowedOrigins []string

	// Attendance log paging
	DefaultLogLimit int
	MaxLogLimit     int
}

func LoadConfig() (*Config, error) {
	expiryStr := getEnv("JWT_EXPIRY", "24h")
	expiry, err := time.ParseDuration(expiryStr)
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}

	cfg := &Config{
		ServerPort:      getEnv("SERVER_PORT", "5000"),
		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTExpiry:       expiry,
		AllowedOrigins:  splitAndTrim(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		DefaultLogLimit: getIntEnv("ATTENDANCE_DEFAULT_LIMIT", 50),
		MaxLogLimit:     getIntEnv("ATTENDANCE_MAX_LIMIT", 200),
	}

	// Validate required fields
	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
	case StorageMemory:
	default:
		return nil, errors.New("STORAGE_DRIVER must be postgres or memory")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.DefaultLogLimit <= 0 || cfg.MaxLogLimit <= 0 {
		return nil, errors.New("attendance log limits must be positive")
	}
	if cfg.DefaultLogLimit > cfg.MaxLogLimit {
		cfg.DefaultLogLimit = cfg.MaxLogLimit
	}

	return cfg, nil
}

// KioskConfig configures the attendance kiosk client.
type KioskConfig struct {
	APIURL            string
	Token             string
	CachePath         string
	ReconcileInterval time.Duration
}

func LoadKioskConfig() (*KioskConfig, error) {
	cfg := &KioskConfig{
		APIURL:            strings.TrimRight(getEnv("KIOSK_API_URL", "http://localhost:5000"), "/"),
		Token:             os.Getenv("KIOSK_TOKEN"),
		CachePath:         getEnv("KIOSK_CACHE_PATH", "./data/kiosk.db"),
		ReconcileInterval: getDurationEnv("KIOSK_RECONCILE_INTERVAL", 5*time.Minute),
	}

	if cfg.Token == "" {
		return nil, errors.New("KIOSK_TOKEN is required")
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, errors.New("KIOSK_RECONCILE_INTERVAL must be positive")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
