package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything cmd/server needs to wire the application.
// Values come from the environment; .env loading happens in main via godotenv.
type Config struct {
	Port        string
	Environment string

	LogLevel string
	LogFile  string

	DatabaseURL string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	JWTSecret  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	AWSRegion string
	MailFrom  string
	MailName  string
	BaseURL   string
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8787"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  getEnvOrDefault("LOG_FILE", "server.log"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:  []byte(os.Getenv("JWT_SECRET")),
		AccessTTL:  getEnvDuration("ACCESS_TOKEN_TTL", time.Minute),
		RefreshTTL: getEnvDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		AWSRegion: getEnvOrDefault("AWS_REGION", "us-east-1"),
		MailFrom:  getEnvOrDefault("MAIL_FROM", "no-reply@ripplefeed.app"),
		MailName:  getEnvOrDefault("MAIL_FROM_NAME", "Ripple"),
		BaseURL:   getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if cfg.DatabaseURL == "" {
		// Fallback to individual components
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "ripple")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		cfg.DatabaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with production hardening
// (secure cookies, JSON-only logs)
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration env var, accepting either a Go duration
// string ("15m") or a plain number of milliseconds for parity with older deploys.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
