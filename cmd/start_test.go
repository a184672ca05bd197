package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// useConfig points the CLI at a throwaway config file for one test.
func useConfig(t *testing.T, contents string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	orig := configPath
	configPath = path
	t.Cleanup(func() { configPath = orig })
}

func resetStartFlags(t *testing.T) {
	t.Helper()
	origDaemonize, origForeground, origVerbose := daemonize, foreground, verbose
	t.Cleanup(func() {
		daemonize, foreground, verbose = origDaemonize, origForeground, origVerbose
	})
	daemonize = false
	foreground = false
	verbose = false
}

func TestStart_FailsOnEnvironmentCheckError(t *testing.T) {
	origCheck := checkEnvironment
	defer func() { checkEnvironment = origCheck }()

	envErr := errors.New("no graphical session")
	checkEnvironment = func() error { return envErr }

	resetStartFlags(t)
	daemonize = true
	useConfig(t, "data_dir: "+t.TempDir()+"\n")

	err := startCmd.RunE(startCmd, nil)
	if err == nil {
		t.Fatal("expected error from environment check, got nil")
	}
	if !errors.Is(err, envErr) {
		t.Errorf("expected environment error %q, got %q", envErr, err)
	}
}

func TestStart_InvalidPollInterval(t *testing.T) {
	origCheck := checkEnvironment
	defer func() { checkEnvironment = origCheck }()
	checkEnvironment = func() error { return nil }

	tests := []struct {
		name     string
		interval string
	}{
		{"too_low", "50ms"},
		{"too_high", "30s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetStartFlags(t)
			useConfig(t, fmt.Sprintf("data_dir: %s\npoll_interval: %s\n", t.TempDir(), tt.interval))

			err := startCmd.RunE(startCmd, nil)
			if err == nil {
				t.Fatalf("expected error for poll_interval %s, got nil", tt.interval)
			}
		})
	}
}

func TestStart_BadConfigFile(t *testing.T) {
	resetStartFlags(t)
	useConfig(t, "data_dir: [broken")

	if err := startCmd.RunE(startCmd, nil); err == nil {
		t.Fatal("expected error for unparseable config, got nil")
	}
}
