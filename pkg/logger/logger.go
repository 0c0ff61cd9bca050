// pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = newLogger(consoleWriter(os.Stdout), zerolog.InfoLevel)
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Setup configures level and output format ("console" or "json") and makes the
// result the default for packages logging through zerolog/log.
func Setup(levelStr, format string) {
	level := parseLevel(levelStr)

	var out io.Writer = consoleWriter(os.Stdout)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		out = os.Stdout
	}

	zerolog.SetGlobalLevel(level)
	Log = newLogger(out, level)
	log.Logger = Log
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	level := parseLevel(levelStr)
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
}

func parseLevel(levelStr string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil || levelStr == "" {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		return zerolog.InfoLevel
	}
	return level
}
