package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/protocol/http1"
	"github.com/marmos91/dittohttp/pkg/adapter"
	"github.com/marmos91/dittohttp/pkg/registry"
)

// ErrServerStopped is returned by Start once the server has been stopped.
// A stopped server cannot be restarted; create a new one instead.
var ErrServerStopped = errors.New("server stopped")

// stopTimeout bounds the Stop call issued by Serve.
const stopTimeout = 30 * time.Second

type state int

const (
	stateNew state = iota
	stateRunning
	stateStopped
)

func (s state) String() string {
	switch s {
	case stateNew:
		return "not-started"
	case stateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Server wires a protocol adapter to a handler registry.
//
// Architecture:
// The server owns the Registry. Requests whose method and path match a
// registered handler go to it; everything else, including requests that
// could not be parsed, goes to the fallback handler given to New.
//
// Lifecycle:
//  1. Creation: New() with an adapter and a fallback handler
//  2. Registration: AddHandler() for each exact route
//  3. Startup: Start() returns once the adapter is listening
//  4. Shutdown: Stop() drains the adapter; the server is then terminal
//
// Thread safety:
// All methods are safe for concurrent use. Start and Stop are serialized.
// Handlers may be added while serving.
//
// Example usage:
//
//	srv := server.New(http.New(httpConfig, nil), static.NewHandler(store, nil))
//	srv.AddHandlerFunc("GET", "/health", healthCheck)
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
type Server struct {
	adapter  adapter.Adapter
	registry *registry.Registry

	mu    sync.Mutex
	state state
}

// New creates a server for the given adapter. fallback answers every request
// without a registered handler, and must produce a 400 when given a nil
// request.
//
// Panics if either argument is nil.
func New(a adapter.Adapter, fallback registry.Handler) *Server {
	if a == nil {
		panic("adapter cannot be nil")
	}
	if fallback == nil {
		panic("fallback handler cannot be nil")
	}

	reg := registry.New(fallback)
	a.SetRegistry(reg)

	return &Server{
		adapter:  a,
		registry: reg,
	}
}

// AddHandler registers h for exact matches of method and path, replacing any
// previous handler for that route.
func (s *Server) AddHandler(method, path string, h registry.Handler) error {
	if err := s.registry.Register(method, path, h); err != nil {
		return fmt.Errorf("add handler: %w", err)
	}
	logger.Debug("Registered handler for %s %s", method, path)
	return nil
}

// AddHandlerFunc is AddHandler for plain functions.
func (s *Server) AddHandlerFunc(method, path string, fn func(ctx context.Context, req *http1.Request, w *http1.ResponseWriter) error) error {
	if fn == nil {
		return s.AddHandler(method, path, nil)
	}
	return s.AddHandler(method, path, registry.HandlerFunc(fn))
}

// Registry returns the handler registry used by the adapter.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Adapter returns the protocol adapter.
func (s *Server) Adapter() adapter.Adapter {
	return s.adapter
}

// Start starts the adapter and returns once it is accepting connections.
//
// Returns adapter.ErrAlreadyRunning if the server is running and
// ErrServerStopped if it was stopped before. Adapter start errors are
// returned wrapped and leave the server not started.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateRunning:
		return adapter.ErrAlreadyRunning
	case stateStopped:
		return ErrServerStopped
	}

	if err := s.adapter.Start(); err != nil {
		return fmt.Errorf("start %s adapter: %w", s.adapter.Protocol(), err)
	}
	s.state = stateRunning

	for _, route := range s.registry.Routes() {
		logger.Info("Route %s", route)
	}
	logger.Info("DittoHTTP started: %s on port %d", s.adapter.Protocol(), s.adapter.Port())
	return nil
}

// Stop shuts the adapter down. It is a no-op unless the server is running.
//
// The server is stopped afterwards even if the adapter reported an error,
// which is returned wrapped.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateRunning {
		logger.Debug("Stop called on %s server: nothing to do", s.state)
		return nil
	}
	s.state = stateStopped

	logger.Info("Stopping DittoHTTP")
	if err := s.adapter.Stop(ctx); err != nil {
		return fmt.Errorf("stop %s adapter: %w", s.adapter.Protocol(), err)
	}
	logger.Info("DittoHTTP stopped")
	return nil
}

// Serve starts the server and blocks until ctx is cancelled, then stops it.
//
// Returns the start error, or the stop error, or nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received (reason: %v)", context.Cause(ctx))

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

// Running reports whether the server is serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}
