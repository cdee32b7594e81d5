package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  zerolog.Level
	}{
		{verbosity: 0, expected: zerolog.WarnLevel},
		{verbosity: 1, expected: zerolog.InfoLevel},
		{verbosity: 2, expected: zerolog.DebugLevel},
		{verbosity: 5, expected: zerolog.DebugLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Level(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestNew_FiltersByVerbosity(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(Options{Verbosity: 0, Console: &buf})
	defer closer.Close()

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updater.log")
	var buf bytes.Buffer
	logger, closer := New(Options{Verbosity: 1, File: path, Console: &buf})

	l := Component(logger, "ntrip")
	l.Info().Msg("fetched")
	l.Debug().Msg("too verbose")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"ntrip"`)
	assert.Contains(t, string(data), `"message":"fetched"`)
	assert.NotContains(t, string(data), "too verbose")
	assert.Contains(t, buf.String(), "fetched")
}

func TestNew_CloserWithoutFile(t *testing.T) {
	_, closer := New(Options{Console: &bytes.Buffer{}})
	assert.NoError(t, closer.Close())
}
