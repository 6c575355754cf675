package logging_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcymc/tcy-updater/internal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tc := range cases {
		got, err := logging.ParseLevel(tc.in)
		if tc.wantErr {
			require.ErrorIs(t, err, logging.ErrInvalidLevel)

			continue
		}

		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}

func TestSetup(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	file := filepath.Join(t.TempDir(), "launcher_debug.log")
	console := &bytes.Buffer{}

	logger, closer, err := logging.Setup(logging.Options{Level: "info", File: file, Console: console})
	require.NoError(t, err)

	logger.Info("Applying update", "version", "26.02.06.15.24")
	logger.Debug("Hidden")
	require.NoError(t, closer.Close())

	require.Contains(t, console.String(), "version=26.02.06.15.24")
	require.NotContains(t, console.String(), "Hidden")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), "Applying update")
}

func TestSetupHandlers(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	console := &bytes.Buffer{}
	extra := &bytes.Buffer{}

	logger, closer, err := logging.Setup(logging.Options{
		Level:    "info",
		Console:  console,
		Handlers: []slog.Handler{slog.NewTextHandler(extra, &slog.HandlerOptions{Level: slog.LevelDebug})},
	})
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	logger.With("run", 1).Debug("Scanning mods")
	logger.Info("Applying update")

	require.NotContains(t, console.String(), "Scanning mods")
	require.Contains(t, console.String(), "Applying update")
	require.Contains(t, extra.String(), "Scanning mods")
	require.Contains(t, extra.String(), "run=1")
	require.Contains(t, extra.String(), "Applying update")
}
