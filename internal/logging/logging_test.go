package logging

import (
	"bytes"
	"encoding/json"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, log.LevelDebug, lvl)

	lvl, err = ParseLevel(" warn ")
	require.NoError(t, err)
	assert.Equal(t, log.LevelWarn, lvl)

	lvl, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, log.LevelInfo, lvl)
}

func TestNew_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	lg, closer := New(Options{Level: log.LevelInfo, Console: &buf, NoColor: true})
	defer closer.Close()

	lg.Debug("hidden")
	lg.Info("Booting up", "wake", "jarvis")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "Booting up")
	assert.Contains(t, out, "wake=jarvis")
}

func TestNew_FileGetsDebug(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "jarvis.log")

	lg, closer := New(Options{Level: log.LevelWarn, Console: &buf, File: path, NoColor: true})
	lg.With("session", "abc").Debug("Capturing command")
	lg.Warn("Wake poll failed", "err", "mic gone")
	require.NoError(t, closer.Close())

	assert.NotContains(t, buf.String(), "Capturing command")
	assert.Contains(t, buf.String(), "Wake poll failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "DEBUG", first["level"])
	assert.Equal(t, "Capturing command", first["msg"])
	assert.Equal(t, "abc", first["session"])
}
