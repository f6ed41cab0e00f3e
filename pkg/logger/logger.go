package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ServiceName is stamped on every event so ledger logs can be told apart in
// a shared sink.
const ServiceName = "custodial-ledger"

// New builds the process logger: JSON on stdout, or console output with
// millisecond timestamps when pretty is set.
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}
	}
	return build(level, w).With().Caller().Logger()
}

// NewWithWriter is New without the caller field, writing JSON to w.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return build(level, w)
}

// Component tags every event of l with the owning component
// (ledger, registry, webhook, http).
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func build(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// parseLevel falls back to info for empty or unknown levels.
func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
