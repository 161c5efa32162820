package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/deploykit/internal/config"
)

// NewLogger creates a structured zerolog.Logger for the tool. Unknown log
// levels fall back to info.
func NewLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", "deploykit").
		Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
