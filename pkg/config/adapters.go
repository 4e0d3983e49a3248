package config

import (
	"fmt"

	httpadapter "github.com/marmos91/dittohttp/pkg/adapter/http"
	"github.com/marmos91/dittohttp/pkg/metrics"
)

// CreateAdapter creates the HTTP adapter from the configuration.
//
// Parameters:
//   - cfg: The complete DittoHTTP configuration
//   - httpMetrics: Optional HTTP metrics collector (nil = no metrics)
//
// Returns:
//   - *httpadapter.HTTPAdapter: Adapter ready to be handed to server.New
//   - error: If the adapter is disabled in the configuration
func CreateAdapter(cfg *Config, httpMetrics metrics.HTTPMetrics) (*httpadapter.HTTPAdapter, error) {
	if !cfg.Adapters.HTTP.Enabled {
		return nil, fmt.Errorf("http adapter is disabled in configuration")
	}
	return httpadapter.New(cfg.Adapters.HTTP, httpMetrics), nil
}
