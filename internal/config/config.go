package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	JWTExpiry   time.Duration

	// Retention and delivery knobs. These are configuration, not protocol.
	EventLogMaxLength int
	ReplayBatchSize   int
	PresenceTTL       time.Duration
	WriteTimeout      time.Duration
}

func LoadConfig() (*Config, error) {
	expiry, err := getDurationEnv("JWT_EXPIRY", "24h")
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}
	presenceTTL, err := getDurationEnv("PRESENCE_TTL", "60s")
	if err != nil {
		return nil, errors.New("invalid PRESENCE_TTL format")
	}
	writeTimeout, err := getDurationEnv("WRITE_TIMEOUT", "10s")
	if err != nil {
		return nil, errors.New("invalid WRITE_TIMEOUT format")
	}
	maxLength, err := getIntEnv("EVENT_LOG_MAX_LENGTH", 10000)
	if err != nil {
		return nil, err
	}
	batchSize, err := getIntEnv("REPLAY_BATCH_SIZE", 200)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiry:         expiry,
		EventLogMaxLength: maxLength,
		ReplayBatchSize:   batchSize,
		PresenceTTL:       presenceTTL,
		WriteTimeout:      writeTimeout,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.EventLogMaxLength < 1 {
		return nil, errors.New("EVENT_LOG_MAX_LENGTH must be positive")
	}
	if cfg.ReplayBatchSize < 1 {
		return nil, errors.New("REPLAY_BATCH_SIZE must be positive")
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

func getDurationEnv(key, defaultValue string) (time.Duration, error) {
	return time.ParseDuration(getEnv(key, defaultValue))
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
