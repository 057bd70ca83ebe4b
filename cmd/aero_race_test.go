package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath = ""
	historyLast = defaultHistoryLast

	var out bytes.Buffer
	rootCmd := newRootCmd()
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigCmd(t *testing.T) {
	dir := isolate(t)
	configDir := filepath.Join(dir, "config", "aero-race")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("race:\n  lanes: 6\n"), 0o644))

	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "gear_ratio:")
	assert.Contains(t, out, "lanes: 6")
	assert.Contains(t, out, "done_duration: 3s")
}

func TestConfigCmd_LogLevelFlag(t *testing.T) {
	isolate(t)

	out, err := execute(t, "config", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")
}

func TestConfigCmd_MissingFile(t *testing.T) {
	isolate(t)

	_, err := execute(t, "config", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHistoryCmd_Empty(t *testing.T) {
	isolate(t)
	t.Setenv("AERO_HISTORY_BACKENDS", "sqlite")

	out, err := execute(t, "history", "--last", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "No reps logged yet.")
}

func TestHistoryCmd_NoQueryableBackend(t *testing.T) {
	isolate(t)
	t.Setenv("AERO_HISTORY_BACKENDS", "text")

	_, err := execute(t, "history")
	assert.Error(t, err)
}
