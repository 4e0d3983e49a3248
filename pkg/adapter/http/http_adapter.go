// Package http serves HTTP/1.x requests over raw TCP connections.
//
// Each accepted connection carries exactly one request: the request is
// parsed, dispatched through the handler registry and answered, then the
// connection is closed. A bounded worker pool serves connections; when it is
// saturated the accept loop answers 503 and backs off.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/protocol/http1"
	"github.com/marmos91/dittohttp/internal/ratelimiter"
	"github.com/marmos91/dittohttp/internal/workerpool"
	"github.com/marmos91/dittohttp/pkg/adapter"
	"github.com/marmos91/dittohttp/pkg/metrics"
	"github.com/marmos91/dittohttp/pkg/registry"
)

// ErrNoRegistry is returned by Start when SetRegistry was never called.
var ErrNoRegistry = errors.New("http adapter: no registry set")

// rejectWriteTimeout bounds the best-effort 503 written to a turned-away
// client, and rejectDrainTimeout bounds reading its request before close.
const (
	rejectWriteTimeout = time.Second
	rejectDrainTimeout = 100 * time.Millisecond
	rejectDrainLimit   = 64 << 10
	acceptErrorPause   = 10 * time.Millisecond
)

// HTTPAdapter implements the adapter.Adapter interface for HTTP/1.x.
//
// Architecture:
// HTTPAdapter owns the listener and a fixed worker pool. A single accept
// goroutine hands every connection to the pool without blocking; a
// connection that finds no idle worker gets a 503 and the accept loop pauses
// for OverloadBackoff before accepting again.
//
// Graceful shutdown:
// Stop closes the listener, lets in-flight requests finish for up to
// ShutdownTimeout, then force-closes remaining connections and waits once
// more. The adapter can be started again afterwards.
type HTTPAdapter struct {
	config   HTTPConfig
	metrics  metrics.HTTPMetrics
	limiter  *ratelimiter.Limiter
	registry atomic.Pointer[registry.Registry]

	// mu serializes Start and Stop.
	mu      sync.Mutex
	running atomic.Bool

	listener   *net.TCPListener
	pool       *workerpool.Pool
	cancelStop context.CancelFunc
	acceptDone chan struct{}
	boundPort  atomic.Int32

	// connCount tracks the current number of active connections.
	connCount atomic.Int32

	// activeConnections maps connection IDs to net.Conn so shutdown can
	// force them closed.
	activeConnections sync.Map
}

// New creates a new HTTPAdapter with the specified configuration.
//
// Zero-valued config fields are replaced with defaults. If m is nil, a no-op
// metrics implementation is used. New panics if the configuration is
// invalid after defaults are applied.
func New(config HTTPConfig, m metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	if m == nil {
		m = metrics.NewNoopHTTPMetrics()
	}

	return &HTTPAdapter{
		config:  config,
		metrics: m,
		limiter: ratelimiter.New(config.MaxAcceptRate, config.AcceptBurst),
	}
}

// Config returns the effective configuration, with defaults applied.
func (s *HTTPAdapter) Config() HTTPConfig {
	return s.config
}

// SetRegistry injects the handler registry. Connections accepted after the
// call resolve handlers against reg.
func (s *HTTPAdapter) SetRegistry(reg *registry.Registry) {
	s.registry.Store(reg)
}

// Start binds the listener and launches the accept loop.
//
// Start returns adapter.ErrAlreadyRunning if the adapter is running and
// ErrNoRegistry if no registry was injected. Bind errors are returned
// wrapped, and leave the adapter idle.
func (s *HTTPAdapter) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return adapter.ErrAlreadyRunning
	}
	if s.registry.Load() == nil {
		return ErrNoRegistry
	}

	addr := net.JoinHostPort(s.config.BindAddress, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on %s: %w", addr, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return fmt.Errorf("unexpected listener type %T", ln)
	}
	s.boundPort.Store(int32(tcpLn.Addr().(*net.TCPAddr).Port))

	ctx, cancel := context.WithCancel(context.Background())
	pool := workerpool.New(s.config.WorkerPoolSize, s.config.QueueSize)
	done := make(chan struct{})

	s.listener = tcpLn
	s.pool = pool
	s.cancelStop = cancel
	s.acceptDone = done
	s.running.Store(true)

	go s.acceptLoop(ctx, tcpLn, pool, done)

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(ctx, pool)
	}

	logger.Info("HTTP server listening on %s (workers: %d, queue: %d)",
		tcpLn.Addr(), s.config.WorkerPoolSize, s.config.QueueSize)
	if s.limiter.Enabled() {
		logger.Info("HTTP accept rate limited to %.1f/s (burst %d)",
			s.config.MaxAcceptRate, s.config.AcceptBurst)
	}
	return nil
}

// Serve starts the adapter and blocks until ctx is cancelled, then stops it.
//
// Stop gets a fresh context long enough for both drain phases, since ctx is
// already done at that point.
func (s *HTTPAdapter) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("HTTP shutdown signal received: %v", context.Cause(ctx))

	stopCtx, cancel := context.WithTimeout(context.Background(),
		2*s.config.ShutdownTimeout+s.config.AcceptTimeout)
	defer cancel()

	return s.Stop(stopCtx)
}

// Stop stops accepting connections and drains in-flight requests.
//
// Shutdown sequence:
//  1. Stop the accept loop and close the listener (frees the port)
//  2. Close the pool; queued and running connections keep going
//  3. Wait up to ShutdownTimeout (or until ctx is done) for them
//  4. Force-close remaining connections and cancel their context
//  5. Wait up to ShutdownTimeout again
//
// Stop on an idle adapter returns nil. If work remains after step 5, Stop
// returns an error wrapping adapter.ErrShutdownTimeout; the adapter is
// idle either way.
func (s *HTTPAdapter) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)

	logger.Info("HTTP shutdown initiated: %d active connections", s.connCount.Load())

	s.cancelStop()
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Debug("Error closing HTTP listener: %v", err)
	}
	s.pool.Close()

	var shutdownErr error
	if err := s.drain(ctx); err != nil {
		logger.Warn("HTTP shutdown grace period expired: %d connections still active",
			s.connCount.Load())

		s.forceCloseConnections()
		s.pool.Cancel()

		// Force-closed connections fail their next read or write, so a
		// second bounded wait is enough for workers to observe it.
		if err := s.drain(context.Background()); err != nil {
			shutdownErr = fmt.Errorf("%w: %d connections still active",
				adapter.ErrShutdownTimeout, s.connCount.Load())
		}
	}

	select {
	case <-s.acceptDone:
	case <-time.After(s.config.AcceptTimeout + rejectWriteTimeout + rejectDrainTimeout):
		logger.Warn("HTTP accept loop did not exit in time")
	}

	s.listener = nil
	s.pool = nil
	s.cancelStop = nil
	s.acceptDone = nil

	if shutdownErr != nil {
		logger.Error("HTTP shutdown incomplete: %v", shutdownErr)
		return shutdownErr
	}

	logger.Info("HTTP server stopped")
	return nil
}

// drain waits for the pool to finish, bounded by ShutdownTimeout and ctx.
func (s *HTTPAdapter) drain(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.pool.Wait(waitCtx)
}

// acceptOutcome classifies a single accept attempt.
type acceptOutcome int

const (
	acceptOK acceptOutcome = iota
	acceptTimeout
	acceptClosed
	acceptError
)

// acceptLoop runs until ctx is cancelled or the listener is closed.
func (s *HTTPAdapter) acceptLoop(ctx context.Context, ln *net.TCPListener, pool *workerpool.Pool, done chan<- struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		conn, outcome, err := s.accept(ln)
		switch outcome {
		case acceptTimeout:
			continue
		case acceptClosed:
			return
		case acceptError:
			logger.Warn("Error accepting HTTP connection: %v", err)
			if !sleepCtx(ctx, acceptErrorPause) {
				return
			}
			continue
		}

		if !s.dispatch(ctx, pool, conn) {
			return
		}
	}
}

// accept waits up to AcceptTimeout for one connection.
func (s *HTTPAdapter) accept(ln *net.TCPListener) (*net.TCPConn, acceptOutcome, error) {
	if err := ln.SetDeadline(time.Now().Add(s.config.AcceptTimeout)); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, acceptClosed, err
		}
		return nil, acceptError, err
	}

	conn, err := ln.AcceptTCP()
	if err == nil {
		return conn, acceptOK, nil
	}
	if errors.Is(err, net.ErrClosed) {
		return nil, acceptClosed, err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil, acceptTimeout, err
	}
	return nil, acceptError, err
}

// dispatch hands conn to the pool. It returns false when the accept loop
// should exit.
func (s *HTTPAdapter) dispatch(ctx context.Context, pool *workerpool.Pool, conn *net.TCPConn) bool {
	reg := s.registry.Load()

	err := pool.Submit(func(taskCtx context.Context) {
		NewHTTPConnection(s, conn, reg).Serve(taskCtx)
	})

	switch {
	case err == nil:
		s.metrics.RecordConnectionAccepted()
		return true

	case errors.Is(err, workerpool.ErrSaturated):
		s.reject(conn)
		s.backoff(ctx, pool)
		return true

	default:
		_ = conn.Close()
		return false
	}
}

// reject answers 503 on a connection no worker could take, then closes it.
//
// The pending request is read (bounded) before closing, otherwise the kernel
// may reset the connection and the client never sees the 503.
func (s *HTTPAdapter) reject(conn *net.TCPConn) {
	s.metrics.RecordConnectionRejected()
	logger.Debug("HTTP connection from %s rejected: worker pool saturated", conn.RemoteAddr())

	_ = conn.SetWriteDeadline(time.Now().Add(rejectWriteTimeout))
	w := http1.NewResponseWriter(conn)
	if err := w.WriteEmpty(http1.StatusServiceUnavailable); err == nil {
		if err := w.Flush(); err != nil {
			logger.Debug("Failed to send 503 to %s: %v", conn.RemoteAddr(), err)
		}
	}

	_ = conn.CloseWrite()
	_ = conn.SetReadDeadline(time.Now().Add(rejectDrainTimeout))
	_, _ = io.CopyN(io.Discard, conn, rejectDrainLimit)
	_ = conn.Close()
}

// backoff pauses accepting for OverloadBackoff, or until ctx is cancelled.
func (s *HTTPAdapter) backoff(ctx context.Context, pool *workerpool.Pool) {
	s.metrics.RecordBackoff()
	logger.Warn("HTTP worker pool saturated (%d/%d busy): pausing accept for %v",
		pool.Busy(), pool.Size(), s.config.OverloadBackoff)
	sleepCtx(ctx, s.config.OverloadBackoff)
}

// sleepCtx sleeps for d. It returns false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// trackConnection registers conn for forced closure during shutdown.
func (s *HTTPAdapter) trackConnection(id string, conn net.Conn) {
	s.activeConnections.Store(id, conn)
	s.metrics.SetActiveConnections(s.connCount.Add(1))
}

// untrackConnection removes conn once it has been closed.
func (s *HTTPAdapter) untrackConnection(id string) {
	s.activeConnections.Delete(id)
	s.metrics.SetActiveConnections(s.connCount.Add(-1))
	s.metrics.RecordConnectionClosed()
}

// forceCloseConnections closes all tracked connections.
//
// Workers blocked on read or write fail immediately and finish their task.
// Errors from Close are logged but ignored.
func (s *HTTPAdapter) forceCloseConnections() {
	closed := 0
	s.activeConnections.Range(func(key, value any) bool {
		conn := value.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing HTTP connection %s: %v", key, err)
		} else {
			closed++
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})

	if closed > 0 {
		logger.Info("Force-closed %d HTTP connections", closed)
	}
}

// logMetrics periodically logs server activity until ctx is cancelled.
func (s *HTTPAdapter) logMetrics(ctx context.Context, pool *workerpool.Pool) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			busy := pool.Busy()
			s.metrics.SetBusyWorkers(busy)
			logger.Info("HTTP metrics: active_connections=%d busy_workers=%d/%d",
				s.connCount.Load(), busy, pool.Size())
		}
	}
}

// GetActiveConnections returns the current number of active connections.
func (s *HTTPAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// IsRunning reports whether the accept loop is live.
func (s *HTTPAdapter) IsRunning() bool {
	return s.running.Load()
}

// Port returns the TCP port the adapter is listening on. Before the first
// Start it returns the configured port.
func (s *HTTPAdapter) Port() int {
	if p := s.boundPort.Load(); p != 0 {
		return int(p)
	}
	return s.config.Port
}

// Protocol returns "HTTP" for logging and metrics.
func (s *HTTPAdapter) Protocol() string {
	return "HTTP"
}
