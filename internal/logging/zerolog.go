package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewZerolog builds the zerolog logger handed to infrastructure managers
// (database, InfluxDB). A nil writer yields a disabled logger.
func NewZerolog(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		return zerolog.Nop()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("component", "infra").
		Logger()
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
