package adapter

import (
	"context"
	"errors"

	"github.com/marmos91/dittohttp/pkg/registry"
)

var (
	// ErrAlreadyRunning is returned by Start when the adapter is running.
	ErrAlreadyRunning = errors.New("adapter already running")

	// ErrShutdownTimeout is returned by Stop when in-flight work did not
	// finish even after connections were force-closed.
	ErrShutdownTimeout = errors.New("adapter shutdown timed out")
)

// Adapter represents a protocol-specific server adapter managed by
// DittoServer.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Registry injection: SetRegistry() provides the handler table
//  3. Startup: Start() binds the listener and returns; Serve() is the
//     blocking variant
//  4. Shutdown: Stop() drains in-flight work with a bounded wait
//
// An adapter can be started again after Stop returns.
//
// Thread safety:
// Implementations must be safe for concurrent use. Start and Stop are
// mutually exclusive; Stop may be called from any goroutine.
type Adapter interface {
	// Start binds the listener and launches the accept loop, then returns.
	//
	// Returns ErrAlreadyRunning if the adapter is already running, or the
	// listener error if the port cannot be bound.
	Start() error

	// Stop stops accepting, drains in-flight requests and releases the
	// listener. Stop on an adapter that isn't running is a no-op.
	//
	// Returns ErrShutdownTimeout if work could not be drained even after
	// forcing connections closed.
	Stop(ctx context.Context) error

	// Serve starts the adapter and blocks until ctx is cancelled, then stops
	// it. Returns the error from Start or Stop, if any.
	Serve(ctx context.Context) error

	// SetRegistry injects the handler registry used to resolve requests.
	//
	// Called before Start. Calling it while running is safe; connections
	// accepted afterwards use the new registry.
	SetRegistry(reg *registry.Registry)

	// Protocol returns the human-readable protocol name for logging and
	// metrics, e.g. "HTTP".
	Protocol() string

	// Port returns the TCP port the adapter is bound to. With a configured
	// port of 0 this is the OS-assigned port once Start has returned.
	Port() int
}
