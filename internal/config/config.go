package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	// ConfigDir overrides the per-deployment state directory. Empty means
	// the default (~/.deploykit).
	ConfigDir string
	LogLevel  string

	// Shell command retry policy.
	ShellMaxAttempts int           `validate:"min=1"`
	ShellBackoff     time.Duration `validate:"min=0"`
	ShellBin         string        `validate:"required"`
}

var validate = validator.New()

func Load() (*Config, error) {
	attempts, err := getEnvInt("SHELL_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	backoff, err := getEnvDuration("SHELL_BACKOFF", time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigDir:        getEnv("DEPLOYKIT_CONFIG_DIR", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ShellMaxAttempts: attempts,
		ShellBackoff:     backoff,
		ShellBin:         getEnv("SHELL_BIN", "/bin/sh"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
