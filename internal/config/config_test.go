package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("unexpected port: %d", cfg.HTTPPort)
	}
	if cfg.CompletionTimeout != 60*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.CompletionTimeout)
	}
	if cfg.FilesPrefix != "/files" {
		t.Fatalf("unexpected files prefix: %s", cfg.FilesPrefix)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "http_port: 9090\ncompletion_model: test-model\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Fatalf("yaml port not applied: %d", cfg.HTTPPort)
	}
	if cfg.CompletionModel != "test-model" {
		t.Fatalf("yaml model not applied: %s", cfg.CompletionModel)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("yaml log level not applied: %s", cfg.LogLevel)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http_port: 9090\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("COMPLETION_TIMEOUT_MS", "1500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPPort != 7070 {
		t.Fatalf("env override not applied: %d", cfg.HTTPPort)
	}
	if cfg.CompletionTimeout != 1500*time.Millisecond {
		t.Fatalf("timeout not derived from env: %v", cfg.CompletionTimeout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidEnvIntIgnored(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("invalid env int must keep default, got %d", cfg.HTTPPort)
	}
}
