package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	httpadapter "github.com/marmos91/dittohttp/pkg/adapter/http"
)

// Config represents the complete DittoHTTP configuration.
//
// This structure captures all configurable aspects of the server including:
//   - Logging configuration
//   - Server-wide settings
//   - Static content: allow-list, templates and the backing content store
//   - Prometheus metrics
//   - Protocol adapter configuration
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOHTTP_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each content store defines its own options. ContentConfig carries one
// type-specific map per store and only the map matching Type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Static configures the fallback static file responder
	Static StaticConfig `mapstructure:"static"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Adapters contains protocol adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout bounds the whole shutdown sequence started by a signal
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// StaticConfig configures the static responder.
type StaticConfig struct {
	// AllowedPaths lists the request paths that may be served
	AllowedPaths []string `mapstructure:"allowed_paths" validate:"required,min=1,dive,startswith=/"`

	// Templates lists allowed paths rendered with {time} substitution
	Templates []string `mapstructure:"templates" validate:"dive,startswith=/"`

	// Content selects the store the files are read from
	Content ContentConfig `mapstructure:"content"`
}

// ContentConfig specifies content store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type ContentConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: filesystem, memory, s3, badger
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory s3 badger"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the /metrics endpoint
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics HTTP port
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	// HTTP contains HTTP/1.x adapter configuration.
	// Uses the adapter's HTTPConfig type directly to avoid duplication.
	HTTP httpadapter.HTTPConfig `mapstructure:"http"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOHTTP_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with defaults, environment variables and
// config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Defaults make every key known to viper, which is what lets
	// environment variables override keys absent from the file.
	for key, value := range defaultValues() {
		v.SetDefault(key, value)
	}

	// Example: DITTOHTTP_ADAPTERS_HTTP_PORT=8080
	v.SetEnvPrefix("DITTOHTTP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/dittohttp/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			// Missing config file is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittohttp")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittohttp")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
