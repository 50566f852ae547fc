// Package config provides configuration for taskdesk.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Database
	DatabaseURL string `yaml:"database_url"`

	// Completion API
	CompletionBaseURL   string        `yaml:"completion_base_url"`
	CompletionAPIKey    string        `yaml:"completion_api_key"`
	CompletionModel     string        `yaml:"completion_model"`
	CompletionTimeoutMs int           `yaml:"completion_timeout_ms"`
	CompletionTimeout   time.Duration `yaml:"-"`

	// Attachments
	BlobDir     string `yaml:"blob_dir"`
	FilesPrefix string `yaml:"files_prefix"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from an optional YAML file, then applies
// environment-variable overrides. path may be empty.
func Load(path string) (*Config, error) {
	cfg := &Config{
		HTTPPort:            8080,
		DatabaseURL:         "file:taskdesk.db?cache=shared&mode=rwc",
		CompletionBaseURL:   "http://localhost:4000",
		CompletionModel:     "gpt-4o-mini",
		CompletionTimeoutMs: 60000,
		BlobDir:             "attachments",
		FilesPrefix:         "/files",
		LogLevel:            "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.CompletionBaseURL = getEnv("COMPLETION_BASE_URL", cfg.CompletionBaseURL)
	cfg.CompletionAPIKey = getEnv("COMPLETION_API_KEY", cfg.CompletionAPIKey)
	cfg.CompletionModel = getEnv("COMPLETION_MODEL", cfg.CompletionModel)
	cfg.CompletionTimeoutMs = getEnvInt("COMPLETION_TIMEOUT_MS", cfg.CompletionTimeoutMs)
	cfg.BlobDir = getEnv("BLOB_DIR", cfg.BlobDir)
	cfg.FilesPrefix = getEnv("FILES_PREFIX", cfg.FilesPrefix)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.CompletionTimeout = time.Duration(cfg.CompletionTimeoutMs) * time.Millisecond
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
