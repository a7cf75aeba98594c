// Package telemetry carries the adapter's observability concerns: zerolog
// logging, Prometheus metrics for glue registration and invocation, and an
// OpenTelemetry tracer for invocation spans.
package telemetry

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog logger from cfg. Unset fields fall back to
// info-level JSON on stderr.
func NewLogger(cfg LoggingConfig) (zerolog.Logger, error) {
	var writer io.Writer
	switch cfg.Output {
	case "", "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("open log output: %w", err)
		}
		writer = file
	}

	if cfg.Format == "console" {
		writer = zerolog.ConsoleWriter{Out: writer}
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch level {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
