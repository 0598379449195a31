package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config covers the settings that are awkward as flat env vars. Everything
// here has a working default so the file itself is optional.
type Config struct {
	Server struct {
		Port         string        `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`

	Outbox struct {
		FallbackInterval time.Duration `yaml:"fallback_interval"`
		BatchSize        int32         `yaml:"batch_size"`
	} `yaml:"outbox"`

	Sweeper struct {
		BatchSize int32 `yaml:"batch_size"`
	} `yaml:"sweeper"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.IdleTimeout = 120 * time.Second
	cfg.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	cfg.Outbox.FallbackInterval = 30 * time.Second
	cfg.Outbox.BatchSize = 100
	cfg.Sweeper.BatchSize = 50
	return &cfg
}

// loadConfig merges an optional yaml file over the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
