// Package logging builds the zerolog loggers used across aero-race.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lowaak/aero-race/internal/events"
)

const lineTimeFormat = "15:04:05"

// Settings for the rotated log file
type Settings struct {
	File       string
	Level      zerolog.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel accepts debug, info, warn and error. An empty string means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a logger writing JSON to the rotated log file and, when lines is
// not nil, a human readable copy of every event to the line feed. The returned
// func closes the log file.
func New(settings Settings, lines *events.Feed[string]) (zerolog.Logger, func() error) {
	var writers []io.Writer
	closer := func() error { return nil }

	if settings.File != "" {
		file := &lumberjack.Logger{
			Filename:   settings.File,
			MaxSize:    settings.MaxSizeMB,
			MaxBackups: settings.MaxBackups,
			MaxAge:     settings.MaxAgeDays,
		}
		writers = append(writers, file)
		closer = file.Close
	}
	if lines != nil {
		writers = append(writers, LineWriter(lines))
	}
	if len(writers) == 0 {
		return zerolog.Nop(), closer
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(settings.Level).
		With().
		Timestamp().
		Logger()
	return logger, closer
}

// Console returns a logger for the non-interactive subcommands
func Console(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// LineWriter formats events as plain text lines and publishes each one to the
// feed
func LineWriter(lines *events.Feed[string]) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        &feedWriter{lines: lines},
		NoColor:    true,
		TimeFormat: lineTimeFormat,
	}
}

type feedWriter struct {
	lines *events.Feed[string]
}

func (w *feedWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.lines.Notify(line)
		}
	}
	return len(p), nil
}
