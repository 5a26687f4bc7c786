package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// newLogger builds the application's slog logger on top of a charm log handler.
func newLogger(w io.Writer, level string) *slog.Logger {
	var logLevel log.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = log.DebugLevel
	case "info":
		logLevel = log.InfoLevel
	case "warn":
		logLevel = log.WarnLevel
	case "error":
		logLevel = log.ErrorLevel
	default:
		logLevel = log.InfoLevel
	}

	handler := log.NewWithOptions(w, log.Options{
		Prefix:          "markovlang",
		Level:           logLevel,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
	})
	return slog.New(handler)
}
