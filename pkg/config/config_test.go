package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

store:
  type: "memory"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.API.OwnerHeader != "X-Remote-User" {
		t.Errorf("Expected default owner header, got %q", cfg.API.OwnerHeader)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// A path that does not exist keeps the user's own config out of the test
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected default store type 'memory', got %q", cfg.Store.Type)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidStoreType(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
store:
  type: "postgres"
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown store type")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[api]
port = 8081
owner_header = "X-User"

[api.rate_limit]
requests_per_second = 50
burst = 100

[store]
type = "badger"

[store.badger]
db_path = "/var/lib/dittodir"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.API.OwnerHeader != "X-User" {
		t.Errorf("Expected owner header 'X-User', got %q", cfg.API.OwnerHeader)
	}
	if cfg.API.RateLimit.RequestsPerSecond != 50 || cfg.API.RateLimit.Burst != 100 {
		t.Errorf("Unexpected rate limit: %+v", cfg.API.RateLimit)
	}
	if cfg.Store.Badger["db_path"] != "/var/lib/dittodir" {
		t.Errorf("Expected badger db_path from file, got %v", cfg.Store.Badger["db_path"])
	}
}

func TestLoad_Durations(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
server:
  shutdown_timeout: 5s
api:
  read_timeout: 1m
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown_timeout 5s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.API.ReadTimeout != time.Minute {
		t.Errorf("Expected read_timeout 1m, got %v", cfg.API.ReadTimeout)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DITTODIR_LOGGING_LEVEL", "ERROR")
	t.Setenv("DITTODIR_API_PORT", "9999")
	t.Setenv("DITTODIR_API_RATE_LIMIT_REQUESTS_PER_SECOND", "25")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"
api:
  port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Environment variables override the config file
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.API.Port != 9999 {
		t.Errorf("Expected port 9999 from env var, got %d", cfg.API.Port)
	}
	if cfg.API.RateLimit.RequestsPerSecond != 25 {
		t.Errorf("Expected rate 25 from env var, got %d", cfg.API.RateLimit.RequestsPerSecond)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	want := filepath.Join(xdg, "dittodir", "config.yaml")
	if got := GetDefaultConfigPath(); got != want {
		t.Errorf("GetDefaultConfigPath() = %q, want %q", got, want)
	}
	if ConfigExists() {
		t.Error("ConfigExists() should be false in an empty directory")
	}
}

func TestGetConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	dir := GetConfigDir()
	if want := filepath.Join(home, ".config", "dittodir"); dir != want {
		t.Errorf("GetConfigDir() = %q, want %q", dir, want)
	}
}

func TestConfig_APIServerConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.RateLimit = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}

	server := cfg.APIServerConfig()

	if server.Port != cfg.API.Port || server.OwnerHeader != cfg.API.OwnerHeader {
		t.Errorf("Unexpected server config: %+v", server)
	}
	if server.MaxUploadBytes != 32<<20 {
		t.Errorf("Expected 32MB upload limit, got %d", server.MaxUploadBytes)
	}
	if server.ShutdownTimeout != cfg.Server.ShutdownTimeout {
		t.Errorf("Expected shutdown timeout %v, got %v", cfg.Server.ShutdownTimeout, server.ShutdownTimeout)
	}
	if server.RequestsPerSecond != 10 || server.Burst != 20 {
		t.Errorf("Rate limit not carried over: %+v", server)
	}
}
