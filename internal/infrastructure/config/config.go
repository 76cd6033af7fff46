// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration.
type Config struct {
	Database DatabaseConfig
	Codec    CodecConfig
	App      AppConfig
}

// DatabaseConfig selects and configures the archive store.
type DatabaseConfig struct {
	// Driver is one of "memory", "sqlite", "postgres".
	Driver string
	// DSN is the connection string. Ignored for the memory driver.
	DSN string
}

// CodecConfig configures archive serialization.
type CodecConfig struct {
	// Codec is one of "json", "msgpack".
	Codec string
	// Compression is one of "none", "gzip", "zstd".
	Compression string
}

// AppConfig holds general application settings.
type AppConfig struct {
	LogLevel string
}

// Load reads configuration from environment variables, after sourcing a .env
// file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver: getEnvWithDefault("FLOWTRACE_DB_DRIVER", "memory"),
			DSN:    getEnvWithDefault("FLOWTRACE_DB_DSN", ""),
		},
		Codec: CodecConfig{
			Codec:       getEnvWithDefault("FLOWTRACE_CODEC", "msgpack"),
			Compression: getEnvWithDefault("FLOWTRACE_COMPRESSION", "zstd"),
		},
		App: AppConfig{
			LogLevel: getEnvWithDefault("FLOWTRACE_LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("FLOWTRACE_DB_DRIVER must be memory, sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("FLOWTRACE_DB_DSN is required for driver %q", c.Database.Driver)
	}
	switch c.Codec.Codec {
	case "json", "msgpack":
	default:
		return fmt.Errorf("FLOWTRACE_CODEC must be json or msgpack, got %q", c.Codec.Codec)
	}
	switch c.Codec.Compression {
	case "none", "gzip", "zstd":
	default:
		return fmt.Errorf("FLOWTRACE_COMPRESSION must be none, gzip or zstd, got %q", c.Codec.Compression)
	}
	return nil
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
