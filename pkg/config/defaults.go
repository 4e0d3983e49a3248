package config

import (
	"slices"
	"strings"
	"time"

	"github.com/marmos91/dittohttp/internal/protocol/http1"
	httpadapter "github.com/marmos91/dittohttp/pkg/adapter/http"
	"github.com/marmos91/dittohttp/pkg/static"
)

const (
	// DefaultHTTPPort is the port the HTTP adapter listens on by default.
	DefaultHTTPPort = 9999

	// DefaultMetricsPort is the port of the Prometheus endpoint.
	DefaultMetricsPort = 9090

	// DefaultContentPath is the directory served by the filesystem store.
	DefaultContentPath = "./public"

	// DefaultTemplate is the page rendered with the current time.
	DefaultTemplate = "/classic.html"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStaticDefaults(&cfg.Static)
	applyMetricsDefaults(&cfg.Metrics)
	applyAdaptersDefaults(&cfg.Adapters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyStaticDefaults sets the allow-list, templates and content store.
func applyStaticDefaults(cfg *StaticConfig) {
	if len(cfg.AllowedPaths) == 0 {
		cfg.AllowedPaths = slices.Clone(static.DefaultAllowedPaths)
	}

	// The default template only applies when its page is served at all.
	if cfg.Templates == nil && slices.Contains(cfg.AllowedPaths, DefaultTemplate) {
		cfg.Templates = []string{DefaultTemplate}
	}

	applyContentDefaults(&cfg.Content)
}

// applyContentDefaults sets content store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = DefaultContentPath
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// Enable the HTTP adapter when nothing was configured, so a freshly
	// loaded config passes validation. An explicit port with enabled: false
	// keeps it disabled.
	if !cfg.HTTP.Enabled && cfg.HTTP.Port == 0 {
		cfg.HTTP.Enabled = true
	}

	applyHTTPDefaults(&cfg.HTTP)
}

// applyHTTPDefaults sets HTTP adapter defaults.
func applyHTTPDefaults(cfg *httpadapter.HTTPConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultHTTPPort
	}
	if cfg.WorkerPoolSize == 0 {
		cfg.WorkerPoolSize = httpadapter.DefaultWorkerPoolSize
	}

	// QueueSize defaults to 0 (hand off only to idle workers)

	if cfg.AcceptTimeout == 0 {
		cfg.AcceptTimeout = httpadapter.DefaultAcceptTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = httpadapter.DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = httpadapter.DefaultWriteTimeout
	}
	if cfg.OverloadBackoff == 0 {
		cfg.OverloadBackoff = httpadapter.DefaultOverloadBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = httpadapter.DefaultShutdownTimeout
	}
	if cfg.LookaheadLimit == 0 {
		cfg.LookaheadLimit = http1.DefaultLookaheadLimit
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = http1.DefaultMaxBodySize
	}

	// MaxAcceptRate, AcceptBurst and MetricsLogInterval default to 0 (off)
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			HTTP: httpadapter.HTTPConfig{
				Enabled: true,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}

// defaultTree returns the defaults as nested maps keyed like the
// configuration file. Durations are rendered as strings ("5s").
func defaultTree() map[string]any {
	cfg := GetDefaultConfig()
	h := cfg.Adapters.HTTP

	return map[string]any{
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
			"output": cfg.Logging.Output,
		},
		"server": map[string]any{
			"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
		},
		"static": map[string]any{
			"allowed_paths": cfg.Static.AllowedPaths,
			"templates":     cfg.Static.Templates,
			"content": map[string]any{
				"type":       cfg.Static.Content.Type,
				"filesystem": cfg.Static.Content.Filesystem,
			},
		},
		"metrics": map[string]any{
			"enabled": cfg.Metrics.Enabled,
			"port":    cfg.Metrics.Port,
		},
		"adapters": map[string]any{
			"http": map[string]any{
				"enabled":              h.Enabled,
				"bind_address":         h.BindAddress,
				"port":                 h.Port,
				"worker_pool_size":     h.WorkerPoolSize,
				"queue_size":           h.QueueSize,
				"accept_timeout":       h.AcceptTimeout.String(),
				"read_timeout":         h.ReadTimeout.String(),
				"write_timeout":        h.WriteTimeout.String(),
				"overload_backoff":     h.OverloadBackoff.String(),
				"shutdown_timeout":     h.ShutdownTimeout.String(),
				"lookahead_limit":      h.LookaheadLimit,
				"max_body_size":        h.MaxBodySize,
				"max_accept_rate":      h.MaxAcceptRate,
				"accept_burst":         h.AcceptBurst,
				"metrics_log_interval": h.MetricsLogInterval.String(),
			},
		},
	}
}

// defaultValues flattens defaultTree into dotted viper keys.
//
// Templates are left out: their default depends on the configured
// allow-list and is resolved by ApplyDefaults.
func defaultValues() map[string]any {
	flat := make(map[string]any)
	flatten("", defaultTree(), flat)
	delete(flat, "static.templates")
	return flat
}

func flatten(prefix string, tree map[string]any, into map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(key, nested, into)
			continue
		}
		into[key] = value
	}
}
