package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.Journal.Disabled)
	assert.Equal(t, 30*24*time.Hour, cfg.Journal.Retention)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "clipsqueeze", filepath.Base(cfg.DataDir))
}

func TestLoad_ParsesEveryField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /srv/clipsqueeze
poll_interval: 250ms
quiet: true
journal:
  disabled: true
  retention: 1h
log:
  level: debug
  file: /var/log/clipsqueeze.log
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/clipsqueeze", cfg.DataDir)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.Quiet)
	assert.True(t, cfg.Journal.Disabled)
	assert.Equal(t, time.Hour, cfg.Journal.Retention)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/log/clipsqueeze.log", cfg.LogPath())
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quiet: true\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Quiet)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 30*24*time.Hour, cfg.Journal.Retention)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [broken"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultDataDir_HonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	got, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clipsqueeze"), got)
}

func TestDefaultPath_HonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clipsqueeze", "config.yaml"), got)
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{DataDir: "/srv/clipsqueeze"}
	require.NoError(t, cfg.applyDefaults())

	assert.Equal(t, "/srv/clipsqueeze/journal.db", cfg.JournalPath())
	assert.Equal(t, "/srv/clipsqueeze/clipsqueeze.log", cfg.LogPath())
}
