package corexy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDeviceOptionsDefaults(t *testing.T) {
	dir := t.TempDir()
	opts, err := LoadDeviceOptions(dir)
	if err != nil {
		t.Fatalf("LoadDeviceOptions: %s", err)
	}
	want := DefaultDeviceOptions()
	if opts != want {
		t.Fatalf("opts = %+v, want defaults %+v", opts, want)
	}
}

func TestLoadDeviceOptionsFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
timeslice_ms = 50
acceleration = 32.0
max_velocity = 8.0
model = "AxiDrawV3"
`)
	if err := os.WriteFile(filepath.Join(dir, "plotter.toml"), content, 0o644); err != nil {
		t.Fatalf("writing config: %s", err)
	}

	opts, err := LoadDeviceOptions(dir)
	if err != nil {
		t.Fatalf("LoadDeviceOptions: %s", err)
	}
	if opts.TimesliceMs != 50 {
		t.Fatalf("timeslice_ms = %d, want 50", opts.TimesliceMs)
	}
	if opts.Acceleration != 32.0 {
		t.Fatalf("acceleration = %f, want 32.0", opts.Acceleration)
	}
	if opts.Model != "AxiDrawV3" {
		t.Fatalf("model = %s, want AxiDrawV3", opts.Model)
	}
}

func TestLoadDeviceOptionsRejectsUnknownModel(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`model = "NoSuchPlotter"`)
	if err := os.WriteFile(filepath.Join(dir, "plotter.toml"), content, 0o644); err != nil {
		t.Fatalf("writing config: %s", err)
	}
	if _, err := LoadDeviceOptions(dir); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestLoadDeviceOptionsRejectsOutOfRangePosition(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`pen_up_position = 150`)
	if err := os.WriteFile(filepath.Join(dir, "plotter.toml"), content, 0o644); err != nil {
		t.Fatalf("writing config: %s", err)
	}
	if _, err := LoadDeviceOptions(dir); err == nil {
		t.Fatal("expected error for out-of-range pen_up_position")
	}
}

func TestDeviceOptionsValidateNegativeSpeed(t *testing.T) {
	opts := DefaultDeviceOptions()
	opts.PenUpSpeed = -1
	if err := opts.Validate(); err == nil {
		t.Fatal("expected error for negative pen_up_speed")
	}
}

func TestServoPositionMapping(t *testing.T) {
	opts := DefaultDeviceOptions()
	opts.PenUpPosition = 0
	if got := opts.ServoUpPosition(); got != 7500 {
		t.Fatalf("ServoUpPosition() = %d, want 7500", got)
	}
	opts.PenUpPosition = 100
	if got := opts.ServoUpPosition(); got != 7500+205*100 {
		t.Fatalf("ServoUpPosition() = %d, want %d", got, 7500+205*100)
	}
}
