// Package config loads the YAML configuration file and supplies defaults for
// everything the file leaves out.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level clipsqueeze configuration.
type Config struct {
	DataDir      string        `yaml:"data_dir"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Quiet        bool          `yaml:"quiet"` // suppress desktop notifications
	Journal      JournalConfig `yaml:"journal"`
	Log          LogConfig     `yaml:"log"`
}

// JournalConfig controls the optimization run log.
type JournalConfig struct {
	Disabled  bool          `yaml:"disabled"`
	Retention time.Duration `yaml:"retention"`
}

// LogConfig controls daemon logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
	File  string `yaml:"file"`
}

// Load reads the YAML configuration at path. A missing file is not an error;
// it yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		var cfg Config
		if err := cfg.applyDefaults(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Journal.Retention <= 0 {
		c.Journal.Retention = 30 * 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

// JournalPath is the sqlite run log inside the data directory.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// LogPath is where the daemonized process writes its log.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, "clipsqueeze.log")
}

// DefaultPath returns the config file location, honoring XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "clipsqueeze", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home: %w", err)
	}
	return filepath.Join(home, ".config", "clipsqueeze", "config.yaml"), nil
}

// DefaultDataDir returns the artifact/journal directory, honoring
// XDG_DATA_HOME.
func DefaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "clipsqueeze"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home: %w", err)
	}
	return filepath.Join(home, ".local", "share", "clipsqueeze"), nil
}
