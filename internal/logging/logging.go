package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process logger.
type Options struct {
	// Verbosity is the number of -v flags: 0 warn, 1 info, 2+ debug.
	Verbosity int
	// File, when set, receives JSON log lines rotated by lumberjack.
	File string
	// Console defaults to os.Stderr.
	Console io.Writer
}

// Level maps a verbosity count to a zerolog level.
func Level(verbosity int) zerolog.Level {
	switch {
	case verbosity >= 2:
		return zerolog.DebugLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the logger handed to every component. The returned closer
// releases the log file and must be closed before the process exits.
func New(opts Options) (zerolog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var (
		w      io.Writer = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    16, // MB
			MaxBackups: 3,
		}
		w = zerolog.MultiLevelWriter(w, file)
		closer = file
	}

	return zerolog.New(w).Level(Level(opts.Verbosity)).With().Timestamp().Logger(), closer
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
