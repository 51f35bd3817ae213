package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_DefaultsWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Backend != BackendFile {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendFile)
	}
	if !strings.HasSuffix(cfg.DataFile, filepath.Join(appName, "db.json")) {
		t.Errorf("DataFile = %q", cfg.DataFile)
	}
	if !strings.HasSuffix(cfg.SessionFile, filepath.Join(appName, "session.json")) {
		t.Errorf("SessionFile = %q", cfg.SessionFile)
	}
	if cfg.OIDC.Enabled() {
		t.Error("OIDC should be off by default")
	}
}

func TestLoadConfig_DefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	if err := os.MkdirAll(filepath.Join(home, appName), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(home, appName), "config.yaml", "log_level: debug\n")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
backend: postgres
database_url: postgres://localhost/runs?sslmode=disable
session_file: /tmp/session.json
oidc:
  issuer_url: https://accounts.example.com
  client_id: tail-runs
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Backend != BackendPostgres || cfg.DatabaseURL == "" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.OIDC.Enabled() || cfg.OIDC.ClientID != "tail-runs" {
		t.Errorf("OIDC = %+v", cfg.OIDC)
	}
	// Unset keys keep their defaults.
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.json", `{"data_file": "/tmp/runs.json", "log_file": ""}`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.DataFile != "/tmp/runs.json" {
		t.Errorf("DataFile = %q", cfg.DataFile)
	}
	if cfg.LogFile != "" {
		t.Errorf("LogFile = %q, want explicit empty", cfg.LogFile)
	}
}

func TestLoadConfig_EmptyYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "")
	if _, err := loadConfig(path); err != nil {
		t.Errorf("empty YAML should load defaults, got %v", err)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		want string
	}{
		{"unknown yaml key", writeFile(t, dir, "a.yaml", "bakend: file\n"), "bakend"},
		{"unknown json key", writeFile(t, dir, "b.json", `{"bakend": "file"}`), "bakend"},
		{"bad backend", writeFile(t, dir, "c.yaml", "backend: redis\n"), "unknown backend"},
		{"postgres without url", writeFile(t, dir, "d.yaml", "backend: postgres\n"), "database_url"},
		{"issuer without client", writeFile(t, dir, "e.yaml", "oidc:\n  issuer_url: https://x\n"), "client_id"},
		{"no data file", writeFile(t, dir, "f.yaml", "data_file: ''\n"), "data_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig_ExplicitMissing(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOpenLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tail-runs.log")
	logger, closer, err := openLogger(path, "info")
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("visible", "k", "v")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(out, `"msg":"visible"`) || !strings.Contains(out, `"app":"tail-runs"`) {
		t.Errorf("log = %s", out)
	}
}

func TestOpenLogger_EmptyPathDiscards(t *testing.T) {
	logger, closer, err := openLogger("", "debug")
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("nowhere")
	if err := closer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
