package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"depthsim/internal/config"
)

type Logger = zerolog.Logger

// NewLogger builds the process logger. Pretty output goes through the
// console writer; the default is JSON lines on stderr.
func NewLogger(cfg config.Config) Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if cfg.Logging.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "depthsim").Logger()
}
