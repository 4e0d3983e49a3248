package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/marmos91/dittohttp/pkg/static"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "info"

adapters:
  http:
    enabled: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Adapters.HTTP.Port != 9999 {
		t.Errorf("Expected default HTTP port 9999, got %d", cfg.Adapters.HTTP.Port)
	}
	if cfg.Adapters.HTTP.WorkerPoolSize != 64 {
		t.Errorf("Expected default worker pool size 64, got %d", cfg.Adapters.HTTP.WorkerPoolSize)
	}
	if cfg.Adapters.HTTP.ReadTimeout != 5*time.Second {
		t.Errorf("Expected default read timeout 5s, got %v", cfg.Adapters.HTTP.ReadTimeout)
	}
	if cfg.Static.Content.Filesystem["path"] != DefaultContentPath {
		t.Errorf("Expected content path %q, got %v", DefaultContentPath, cfg.Static.Content.Filesystem["path"])
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Static.Content.Type != "filesystem" {
		t.Errorf("Expected default content type 'filesystem', got %q", cfg.Static.Content.Type)
	}
	if !slices.Equal(cfg.Static.AllowedPaths, static.DefaultAllowedPaths) {
		t.Errorf("Expected default allow-list, got %v", cfg.Static.AllowedPaths)
	}
	if !slices.Equal(cfg.Static.Templates, []string{DefaultTemplate}) {
		t.Errorf("Expected default templates, got %v", cfg.Static.Templates)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("logging:\n  level: [unclosed\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
adapters:
  http:
    worker_pool_size: -1
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for negative worker pool size, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[logging]
level = "WARN"
format = "json"

[adapters.http]
port = 8081
worker_pool_size = 8
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

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
	if cfg.Adapters.HTTP.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", cfg.Adapters.HTTP.Port)
	}
	if cfg.Adapters.HTTP.WorkerPoolSize != 8 {
		t.Errorf("Expected worker pool size 8, got %d", cfg.Adapters.HTTP.WorkerPoolSize)
	}
}

func TestLoad_CustomAllowList(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
static:
  allowed_paths:
    - /index.html
    - /about.html
  content:
    type: memory
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if !slices.Equal(cfg.Static.AllowedPaths, []string{"/index.html", "/about.html"}) {
		t.Errorf("Unexpected allow-list: %v", cfg.Static.AllowedPaths)
	}
	// /classic.html is not allowed, so it is not rendered as a template either
	if len(cfg.Static.Templates) != 0 {
		t.Errorf("Expected no templates, got %v", cfg.Static.Templates)
	}
	if cfg.Static.Content.Type != "memory" {
		t.Errorf("Expected content type 'memory', got %q", cfg.Static.Content.Type)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected level 'INFO', got %q", cfg.Logging.Level)
	}
	if !cfg.Adapters.HTTP.Enabled {
		t.Error("Expected HTTP adapter to be enabled")
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics to be disabled by default")
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Expected metrics port %d, got %d", DefaultMetricsPort, cfg.Metrics.Port)
	}
}

func TestConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Fatal("Expected no config in an empty config dir")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !ConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	expected := filepath.Join(tmpDir, "dittohttp", "config.yaml")
	if path := GetDefaultConfigPath(); path != expected {
		t.Errorf("Expected %q, got %q", expected, path)
	}
}

func TestGetConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if dir := GetConfigDir(); dir != filepath.Join(tmpDir, "dittohttp") {
		t.Errorf("Unexpected config dir %q", dir)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DITTOHTTP_LOGGING_LEVEL", "ERROR")
	t.Setenv("DITTOHTTP_ADAPTERS_HTTP_PORT", "8080")
	t.Setenv("DITTOHTTP_ADAPTERS_HTTP_READ_TIMEOUT", "2s")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

adapters:
  http:
    enabled: true
    port: 9999
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.HTTP.Port != 8080 {
		t.Errorf("Expected port 8080 from env var, got %d", cfg.Adapters.HTTP.Port)
	}
	// Keys missing from the file are still overridable
	if cfg.Adapters.HTTP.ReadTimeout != 2*time.Second {
		t.Errorf("Expected read timeout 2s from env var, got %v", cfg.Adapters.HTTP.ReadTimeout)
	}
}
