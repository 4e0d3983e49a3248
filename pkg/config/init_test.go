package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if configPath != filepath.Join(tmpDir, "dittohttp", "config.yaml") {
		t.Errorf("Unexpected config path %q", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(data)
	expectedSections := []string{
		"# DittoHTTP Configuration File",
		"logging:",
		"server:",
		"static:",
		"metrics:",
		"adapters:",
	}
	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing section: %s", section)
		}
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err := InitConfig(false)
	if err == nil {
		t.Fatal("Expected error when config already exists, got nil")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}
}

func TestInitConfig_ForceOverwrite(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	if err := os.WriteFile(configPath, []byte("modified: true\n"), 0644); err != nil {
		t.Fatalf("Failed to modify config: %v", err)
	}

	if _, err := InitConfig(true); err != nil {
		t.Fatalf("Forced InitConfig failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	if strings.Contains(string(data), "modified") {
		t.Error("Config was not overwritten")
	}
}

func TestInitConfigToPath_Success(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "custom.yaml")

	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
}

func TestInitConfigToPath_AlreadyExists(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if err := InitConfigToPath(configPath, false); err == nil {
		t.Fatal("Expected error when file exists, got nil")
	}
}

func TestGenerateDefaultConfig_SectionOrder(t *testing.T) {
	data, err := generateDefaultConfig()
	if err != nil {
		t.Fatalf("generateDefaultConfig failed: %v", err)
	}

	out := string(data)
	last := -1
	for _, section := range []string{"\nlogging:", "\nserver:", "\nstatic:", "\nmetrics:", "\nadapters:"} {
		idx := strings.Index(out, section)
		if idx < 0 {
			t.Fatalf("Missing section %q", section)
		}
		if idx < last {
			t.Errorf("Section %q out of order", section)
		}
		last = idx
	}

	// Stable output across runs
	again, err := generateDefaultConfig()
	if err != nil {
		t.Fatalf("generateDefaultConfig failed: %v", err)
	}
	if string(again) != out {
		t.Error("Generated config is not deterministic")
	}
}

func TestGeneratedConfigIsLoadable(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Generated config failed to load: %v", err)
	}

	if cfg.Adapters.HTTP.Port != DefaultHTTPPort {
		t.Errorf("Expected port %d, got %d", DefaultHTTPPort, cfg.Adapters.HTTP.Port)
	}
	if cfg.Adapters.HTTP.OverloadBackoff != 5*time.Second {
		t.Errorf("Expected overload backoff 5s, got %v", cfg.Adapters.HTTP.OverloadBackoff)
	}
	if len(cfg.Static.AllowedPaths) != 11 {
		t.Errorf("Expected 11 allowed paths, got %d", len(cfg.Static.AllowedPaths))
	}
	if len(cfg.Static.Templates) != 1 || cfg.Static.Templates[0] != DefaultTemplate {
		t.Errorf("Expected %s template, got %v", DefaultTemplate, cfg.Static.Templates)
	}
	if cfg.Static.Content.Filesystem["path"] != DefaultContentPath {
		t.Errorf("Expected content path %q, got %v", DefaultContentPath, cfg.Static.Content.Filesystem["path"])
	}
}
