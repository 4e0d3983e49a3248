package http

import (
	"fmt"
	"time"

	"github.com/marmos91/dittohttp/internal/protocol/http1"
)

// Default values applied by New for zero fields.
const (
	DefaultPort            = 9999
	DefaultWorkerPoolSize  = 64
	DefaultAcceptTimeout   = time.Second
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultOverloadBackoff = 5 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// HTTPConfig holds configuration parameters for the HTTP adapter.
//
// Zero values are replaced with defaults by New, except Port: a zero port
// asks the OS for an ephemeral port, which tests rely on. The configuration
// layer fills in DefaultPort for the real server.
//
// Default values (applied by New if zero):
//   - WorkerPoolSize: 64
//   - AcceptTimeout: 1s
//   - ReadTimeout: 5s
//   - WriteTimeout: 5s
//   - OverloadBackoff: 5s
//   - ShutdownTimeout: 5s
//   - LookaheadLimit: 4096
//   - MaxBodySize: 10 MiB
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is active.
	Enabled bool `mapstructure:"enabled"`

	// BindAddress is the interface to listen on. Empty means all interfaces.
	BindAddress string `mapstructure:"bind_address" validate:"omitempty,ip|hostname"`

	// Port is the TCP port to listen on. 0 picks an ephemeral port.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// WorkerPoolSize is the number of connections served concurrently.
	WorkerPoolSize int `mapstructure:"worker_pool_size" validate:"min=0"`

	// QueueSize is how many accepted connections may wait for a worker.
	// 0 means a connection is only accepted when a worker is idle.
	QueueSize int `mapstructure:"queue_size" validate:"min=0"`

	// AcceptTimeout bounds each Accept call so the loop notices Stop promptly.
	AcceptTimeout time.Duration `mapstructure:"accept_timeout" validate:"min=0"`

	// ReadTimeout bounds reading the whole request.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing the whole response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// OverloadBackoff is how long the accept loop pauses after the pool
	// turned a connection away.
	OverloadBackoff time.Duration `mapstructure:"overload_backoff" validate:"min=0"`

	// ShutdownTimeout is the grace period Stop waits for in-flight requests,
	// and again after force-closing connections.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// LookaheadLimit is the largest request head (request line plus
	// headers) accepted.
	LookaheadLimit int `mapstructure:"lookahead_limit" validate:"min=0"`

	// MaxBodySize is the largest Content-Length accepted.
	MaxBodySize int64 `mapstructure:"max_body_size" validate:"min=0"`

	// MaxAcceptRate limits accepted connections per second. 0 disables it.
	MaxAcceptRate float64 `mapstructure:"max_accept_rate" validate:"min=0"`

	// AcceptBurst is the token bucket size for MaxAcceptRate.
	AcceptBurst int `mapstructure:"accept_burst" validate:"min=0"`

	// MetricsLogInterval is the interval at which active connections and
	// busy workers are logged. 0 disables periodic logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"min=0"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *HTTPConfig) applyDefaults() {
	// Enabled and Port defaults live in pkg/config so that explicit values
	// from configuration files are kept.

	if c.WorkerPoolSize == 0 {
		c.WorkerPoolSize = DefaultWorkerPoolSize
	}
	if c.AcceptTimeout == 0 {
		c.AcceptTimeout = DefaultAcceptTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.OverloadBackoff == 0 {
		c.OverloadBackoff = DefaultOverloadBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.LookaheadLimit == 0 {
		c.LookaheadLimit = http1.DefaultLookaheadLimit
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = http1.DefaultMaxBodySize
	}
}

// validate checks that the configuration is usable.
func (c *HTTPConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("invalid WorkerPoolSize %d: must be > 0", c.WorkerPoolSize)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("invalid QueueSize %d: must be >= 0", c.QueueSize)
	}
	if c.AcceptTimeout <= 0 {
		return fmt.Errorf("invalid AcceptTimeout %v: must be > 0", c.AcceptTimeout)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.OverloadBackoff < 0 {
		return fmt.Errorf("invalid OverloadBackoff %v: must be >= 0", c.OverloadBackoff)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	// bufio needs at least 16 bytes and a request line needs more than that.
	if c.LookaheadLimit < 64 {
		return fmt.Errorf("invalid LookaheadLimit %d: must be >= 64", c.LookaheadLimit)
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("invalid MaxBodySize %d: must be >= 0", c.MaxBodySize)
	}
	if c.MaxAcceptRate < 0 {
		return fmt.Errorf("invalid MaxAcceptRate %v: must be >= 0", c.MaxAcceptRate)
	}
	if c.AcceptBurst < 0 {
		return fmt.Errorf("invalid AcceptBurst %d: must be >= 0", c.AcceptBurst)
	}
	if c.MetricsLogInterval < 0 {
		return fmt.Errorf("invalid MetricsLogInterval %v: must be >= 0", c.MetricsLogInterval)
	}
	return nil
}

func (c *HTTPConfig) parserOptions() http1.ParserOptions {
	return http1.ParserOptions{
		LookaheadLimit: c.LookaheadLimit,
		MaxBodySize:    c.MaxBodySize,
	}
}
