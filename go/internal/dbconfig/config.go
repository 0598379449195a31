package dbconfig

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds Postgres connection settings. A full DATABASE_URL, when set,
// wins over the individual DB_* variables.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	url string
}

// NewConfigFromEnv reads DATABASE_URL or the DB_* variables, with defaults
// suitable for local development.
func NewConfigFromEnv() Config {
	cfg := Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "faceoff"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		url:      os.Getenv("DATABASE_URL"),
	}
	return cfg
}

// DSN returns the Postgres connection URL.
func (c Config) DSN() string {
	if c.url != "" {
		return c.url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
