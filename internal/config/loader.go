// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
//
// OS environment variables take priority over .env values; godotenv never
// overrides an already-set variable.
package config

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"hearsay/internal/types"
)

// LoadConfig loads and validates the daemon configuration from the
// environment. Any parsing or validation failure is fatal to startup.
func LoadConfig() (*Config, error) {
	// Enforce UTC so message ages and dedup windows are wall-clock stable.
	time.Local = time.UTC

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigInvalid,
			"failed to process environment configuration", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigInvalid,
			"configuration validation failed", err)
	}

	return &cfg, nil
}

// SlogLevel maps the configured log level string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
