// Package config manages application configuration
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	BaseURL     string // public origin embedded in reset links

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Password reset
	ResetTTL time.Duration

	// SMTP
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	EmailName    string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file is honored when present.
func Load() *Config {
	// A missing .env is fine: production deployments set real env vars.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("COINFLOW_PORT", "8080"),
		Environment: getEnv("COINFLOW_ENV", "development"),
		BaseURL:     getEnv("COINFLOW_BASE_URL", "http://localhost:8080"),

		DBHost:     getEnv("POSTGRES_HOST", "localhost"),
		DBPort:     getEnv("POSTGRES_PORT", "5432"),
		DBUser:     getEnv("POSTGRES_USER", "postgres"),
		DBPassword: getEnv("POSTGRES_PASSWORD", ""),
		DBName:     getEnv("POSTGRES_DB", "coinflow"),
		DBSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ResetTTL: getDurationEnv("COINFLOW_RESET_TTL", 15*time.Minute),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("EMAIL_USER", ""),
		SMTPPassword: getEnv("EMAIL_PASS", ""),
		EmailFrom:    getEnv("EMAIL_FROM", ""),
		EmailName:    getEnv("EMAIL_FROM_NAME", "CoinFlow"),
	}
}

// DSN returns the Postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&connect_timeout=10",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EmailConfigured reports whether SMTP credentials are present
func (c *Config) EmailConfigured() bool {
	return c.SMTPUsername != "" && c.SMTPPassword != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
