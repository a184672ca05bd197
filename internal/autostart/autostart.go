// Package autostart manages the XDG login item so the daemon starts with the
// desktop session.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
)

const entryName = "clipsqueeze.desktop"

// Manager writes and removes the XDG autostart entry for the current user.
type Manager struct {
	dir  string
	exec string
}

// New returns a manager launching execPath on login, typically the value of
// os.Executable.
func New(execPath string) (*Manager, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return &Manager{dir: filepath.Join(dir, "autostart"), exec: execPath}, nil
}

func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("autostart: resolve home: %w", err)
	}
	return filepath.Join(home, ".config"), nil
}

// Path returns the desktop entry location.
func (m *Manager) Path() string { return filepath.Join(m.dir, entryName) }

// Enabled reports whether the login item exists.
func (m *Manager) Enabled() (bool, error) {
	_, err := os.Stat(m.Path())
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("autostart: stat entry: %w", err)
}

// Enable writes the desktop entry. An existing entry is rewritten so the Exec
// line tracks the current binary location.
func (m *Manager) Enable() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("autostart: create dir: %w", err)
	}
	entry := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=Clipsqueeze
Comment=Keeps clipboard images small
Exec=%s start --daemon
Terminal=false
X-GNOME-Autostart-enabled=true
`, m.exec)
	if err := os.WriteFile(m.Path(), []byte(entry), 0644); err != nil {
		return fmt.Errorf("autostart: write entry: %w", err)
	}
	return nil
}

// Disable removes the login item. Removing an absent entry is not an error.
func (m *Manager) Disable() error {
	if err := os.Remove(m.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("autostart: remove entry: %w", err)
	}
	return nil
}
