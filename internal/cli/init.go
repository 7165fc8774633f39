// Package cli provides the initialization steps shared by the server and
// worker binaries: logging, .env loading, and validated configuration.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"lifeledger/internal/config"
	applog "lifeledger/internal/log"
)

// SetupLogger initializes structured logging with defaults and installs
// it as the process default.
func SetupLogger() *applog.Logger {
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are
// ignored; the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it, exiting
// the process on failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}
