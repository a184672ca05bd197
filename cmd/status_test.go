package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"zero", 0, "0s"},
		{"sub_second", 500 * time.Millisecond, "0s"},
		{"one_second", time.Second, "1s"},
		{"seconds_only", 45 * time.Second, "45s"},
		{"minutes_and_seconds", 3*time.Minute + 12*time.Second, "3m 12s"},
		{"exact_minutes", 5 * time.Minute, "5m 0s"},
		{"hours_minutes_seconds", 2*time.Hour + 15*time.Minute + 30*time.Second, "2h 15m 30s"},
		{"negative", -5 * time.Second, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatDuration(tt.duration)
			if got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}

func TestStatus_NotRunning(t *testing.T) {
	useConfig(t, "data_dir: "+t.TempDir()+"\n")

	var buf bytes.Buffer
	statusCmd.SetOut(&buf)
	defer statusCmd.SetOut(nil)

	if err := statusCmd.RunE(statusCmd, nil); err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "not running") {
		t.Errorf("expected 'not running', got: %q", buf.String())
	}
}

func TestRevert_NotRunning(t *testing.T) {
	useConfig(t, "data_dir: "+t.TempDir()+"\n")

	err := revertCmd.RunE(revertCmd, nil)
	if err == nil {
		t.Fatal("expected error when daemon is down")
	}
	if !strings.Contains(err.Error(), "not running") {
		t.Errorf("expected 'not running' error, got: %v", err)
	}
}

func TestAutostart_Cycle(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var buf bytes.Buffer
	autostartCmd.SetOut(&buf)
	defer autostartCmd.SetOut(nil)

	if err := autostartCmd.RunE(autostartCmd, []string{"status"}); err != nil {
		t.Fatalf("autostart status: %v", err)
	}
	if !strings.Contains(buf.String(), "disabled") {
		t.Errorf("expected disabled, got: %q", buf.String())
	}

	buf.Reset()
	if err := autostartCmd.RunE(autostartCmd, []string{"on"}); err != nil {
		t.Fatalf("autostart on: %v", err)
	}
	if !strings.Contains(buf.String(), "enabled") {
		t.Errorf("expected enabled confirmation, got: %q", buf.String())
	}

	buf.Reset()
	if err := autostartCmd.RunE(autostartCmd, []string{"status"}); err != nil {
		t.Fatalf("autostart status: %v", err)
	}
	if !strings.Contains(buf.String(), "enabled") {
		t.Errorf("expected enabled, got: %q", buf.String())
	}

	buf.Reset()
	if err := autostartCmd.RunE(autostartCmd, []string{"off"}); err != nil {
		t.Fatalf("autostart off: %v", err)
	}
	if !strings.Contains(buf.String(), "disabled") {
		t.Errorf("expected disabled confirmation, got: %q", buf.String())
	}
}
