// Package telemetry wires up logging, metrics, and tracing for both
// middleware binaries, following the ambient stack the rest of the
// codebase was built against: logrus for structured logs, a prometheus
// registry for metrics, and an OpenTelemetry SDK for traces.
package telemetry

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the shared *logrus.Logger for a run. level accepts the
// values from the Config schema: CRITICAL, ERROR, WARNING, INFO, DEBUG,
// NOTSET (case-insensitive). Unknown values fall back to INFO.
//
// Output is JSON-formatted except when level is DEBUG and stderr is a
// terminal, in which case a human-readable text formatter is used —
// mirroring the log_capturer daemon's console-vs-production split.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	lvl, err := parseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if lvl == logrus.DebugLevel && isatty.IsTerminal(os.Stderr.Fd()) {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

func parseLevel(level string) (logrus.Level, error) {
	trimmed := strings.TrimSpace(level)
	switch strings.ToUpper(trimmed) {
	case "", "NOTSET":
		return logrus.InfoLevel, nil
	case "CRITICAL":
		return logrus.FatalLevel, nil
	case "ERROR":
		return logrus.ErrorLevel, nil
	case "WARNING":
		return logrus.WarnLevel, nil
	case "INFO":
		return logrus.InfoLevel, nil
	case "DEBUG":
		return logrus.DebugLevel, nil
	default:
		return logrus.ParseLevel(strings.ToLower(trimmed))
	}
}
