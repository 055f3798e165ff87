package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.Store.RequestTimeout != Default().Broker.Store.RequestTimeout {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storenode.yaml")
	contents := `
logger:
  level: DEBUG
  json: true
http-server:
  port: 9090
  read_header_timeout: 2s
broker:
  store:
    tick-interval: 500ms
    request-timeout: 3s
    bus-buffer-size: 64
  backend:
    kind: sqlite
    path: /tmp/store.db
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logger.Level != "DEBUG" || !cfg.Logger.JSON {
		t.Fatalf("logger config = %+v", cfg.Logger)
	}
	if cfg.Server.Port != 9090 || cfg.Server.ReadHeaderTimeout != 2*time.Second {
		t.Fatalf("server config = %+v", cfg.Server)
	}
	if cfg.Broker.Store.TickInterval != 500*time.Millisecond {
		t.Fatalf("tick interval = %v", cfg.Broker.Store.TickInterval)
	}
	if cfg.Broker.Backend.Kind != "sqlite" || cfg.Broker.Backend.Path != "/tmp/store.db" {
		t.Fatalf("backend config = %+v", cfg.Broker.Backend)
	}
}

func TestNewLoggerInstallsConfiguredLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger := NewLogger(LoggerConfig{Level: "debug"})
	if logger.Handler().Enabled(nil, slog.LevelDebug) != true {
		t.Fatal("expected DEBUG level to be enabled")
	}
	if slog.Default() != logger {
		t.Fatal("NewLogger did not install itself via slog.SetDefault")
	}
}

