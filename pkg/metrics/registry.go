// Package metrics provides Prometheus metrics collection for DittoHTTP
// components.
//
// All metrics are optional - if not initialized, components use no-op
// implementations that have zero overhead.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	httpMetrics := metrics.NewHTTPMetrics()
//	s3Metrics := metrics.NewS3Metrics()
//
//	// Or use nil for no-op behavior
//	adapter := http.New(config, nil) // No metrics
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is the global Prometheus registry for all DittoHTTP metrics.
	// Protected by registryOnce for write-once, read-many pattern.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry and registers the
// Go runtime and process collectors on it.
//
// It's safe to call multiple times - subsequent calls are ignored. If never
// called, GetRegistry returns nil and every constructor in this package
// returns a no-op implementation.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// GetRegistry returns the global Prometheus registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
