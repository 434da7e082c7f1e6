package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	cfg := m.Get()
	def := Defaults()
	if cfg.ServerPort != def.ServerPort || cfg.LogLevel != def.LogLevel {
		t.Errorf("got %d/%s, want defaults %d/%s", cfg.ServerPort, cfg.LogLevel, def.ServerPort, def.LogLevel)
	}
	if cfg.Source.Type != "pattern" {
		t.Errorf("default source = %q, want pattern", cfg.Source.Type)
	}
	if !cfg.Sink.ForceAspectRatio {
		t.Error("aspect forcing not on by default")
	}
}

func TestManagerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	m.SetPort(9191)
	m.SetLogLevel("debug")
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager reload: %v", err)
	}
	cfg := reloaded.Get()
	if cfg.ServerPort != 9191 {
		t.Errorf("port = %d, want 9191", cfg.ServerPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
}

// Older config files may omit newer fields; loading backfills them from the
// defaults instead of leaving zero values.
func TestManagerBackfill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := []byte("server_port: 9000\nsource:\n  type: pattern\n  width: 640\n  height: 480\n  fps: 15\n")
	if err := os.WriteFile(path, partial, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := m.Get()

	if cfg.ServerPort != 9000 {
		t.Errorf("port = %d, want 9000", cfg.ServerPort)
	}
	if cfg.Source.Width != 640 || cfg.Source.FPS != 15 {
		t.Errorf("source geometry %dx%d@%d not preserved", cfg.Source.Width, cfg.Source.Height, cfg.Source.FPS)
	}
	if cfg.LogLevel == "" {
		t.Error("log level not backfilled")
	}
	if cfg.Window.Width == 0 || cfg.Window.Height == 0 {
		t.Error("window geometry not backfilled")
	}
	if cfg.Source.ParD == 0 {
		t.Error("pixel aspect ratio not backfilled")
	}
	if cfg.Sink.DarD == 0 {
		t.Error("display aspect denominator not backfilled")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := m.Get()
	cfg.ServerPort = 1
	if m.Get().ServerPort == 1 {
		t.Error("mutating the returned config leaked into the manager")
	}
}
