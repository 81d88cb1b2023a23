package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_API(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.API.Port)
	}
	if cfg.API.OwnerHeader != "X-Remote-User" {
		t.Errorf("Expected default owner header, got %q", cfg.API.OwnerHeader)
	}
	if cfg.API.ReadTimeout != 30*time.Second || cfg.API.WriteTimeout != 30*time.Second {
		t.Errorf("Unexpected read/write timeouts: %v/%v", cfg.API.ReadTimeout, cfg.API.WriteTimeout)
	}
	if cfg.API.IdleTimeout != 2*time.Minute {
		t.Errorf("Expected idle timeout 2m, got %v", cfg.API.IdleTimeout)
	}
	if cfg.API.RateLimit.RequestsPerSecond != 0 {
		t.Errorf("Rate limiting should be off by default, got %d", cfg.API.RateLimit.RequestsPerSecond)
	}
}

func TestApplyDefaults_MetricsDisabled(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Metrics.Enabled {
		t.Error("Metrics should be disabled by default")
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_Store(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Store.Type != "memory" {
		t.Errorf("Expected default store type 'memory', got %q", cfg.Store.Type)
	}
	if cfg.Store.Memory == nil || cfg.Store.Badger == nil || cfg.Store.S3 == nil || cfg.Store.SQL == nil {
		t.Fatal("Store sections should be initialized")
	}
	if cfg.Store.Badger["db_path"] != "/tmp/dittodir/records" {
		t.Errorf("Unexpected badger db_path default: %v", cfg.Store.Badger["db_path"])
	}
	if cfg.Store.S3["region"] != "us-east-1" {
		t.Errorf("Unexpected s3 region default: %v", cfg.Store.S3["region"])
	}
	if _, ok := cfg.Store.S3["bucket"]; ok {
		t.Error("S3 bucket must not get a default")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "WARN", Format: "json", Output: "stderr"},
		Server:  ServerConfig{ShutdownTimeout: 5 * time.Second},
		API: APIConfig{
			Port:           9000,
			OwnerHeader:    "X-User",
			MaxUploadBytes: 1024,
		},
		Store: StoreConfig{
			Type:   "badger",
			Badger: map[string]any{"db_path": "/data/records"},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Errorf("Logging values overwritten: %+v", cfg.Logging)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Shutdown timeout overwritten: %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.API.Port != 9000 || cfg.API.OwnerHeader != "X-User" || cfg.API.MaxUploadBytes != 1024 {
		t.Errorf("API values overwritten: %+v", cfg.API)
	}
	if cfg.Store.Type != "badger" || cfg.Store.Badger["db_path"] != "/data/records" {
		t.Errorf("Store values overwritten: %+v", cfg.Store)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}
