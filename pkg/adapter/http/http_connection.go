package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/protocol/http1"
	"github.com/marmos91/dittohttp/pkg/registry"
)

// HTTPConnection serves the single request carried by one TCP connection.
type HTTPConnection struct {
	server   *HTTPAdapter
	conn     net.Conn
	registry *registry.Registry
	id       string
}

// NewHTTPConnection wraps conn. The registry is captured at accept time.
func NewHTTPConnection(server *HTTPAdapter, conn net.Conn, reg *registry.Registry) *HTTPConnection {
	return &HTTPConnection{
		server:   server,
		conn:     conn,
		registry: reg,
		id:       uuid.NewString(),
	}
}

// Serve reads one request, dispatches it and writes the response.
//
// A request that fails to parse is passed to the resolved handler as nil,
// which the fallback answers with 400. A handler that fails, panics or
// returns without producing a response gets a 500 in its place. The connection is always closed
// when Serve returns, and panics never escape.
func (c *HTTPConnection) Serve(ctx context.Context) {
	start := time.Now()
	clientAddr := c.conn.RemoteAddr().String()
	w := http1.NewResponseWriter(c.conn)
	method := "-"

	c.server.trackConnection(c.id, c.conn)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in HTTP connection %s from %s: %v", c.id, clientAddr, r)
		}
		if err := c.conn.Close(); err != nil {
			logger.Debug("Error closing HTTP connection %s: %v", c.id, err)
		}
		c.server.untrackConnection(c.id)

		c.server.metrics.RecordRequest(method, w.Status(), time.Since(start))
		c.server.metrics.RecordBytesWritten(w.BytesWritten())
	}()

	if err := ctx.Err(); err != nil {
		logger.Debug("HTTP connection %s from %s dropped: %v", c.id, clientAddr, err)
		return
	}

	c.setDeadlines()

	cfg := &c.server.config
	req, err := http1.ParseRequest(http1.NewReader(c.conn, cfg.LookaheadLimit), cfg.parserOptions())
	if err != nil {
		c.logParseFailure(clientAddr, err)
		req = nil
	} else {
		method = req.Method()
		logger.Debug("HTTP %s %s from %s [%s]", req.Method(), req.Path(), clientAddr, c.id)
	}

	handler := c.registry.Resolve(req)
	err = c.invoke(ctx, handler, req, w)
	switch {
	case err != nil && w.Written():
		logger.Warn("HTTP handler failed after response started [%s]: %v", c.id, err)
	case err != nil:
		logger.Warn("HTTP handler failed [%s]: %v", c.id, err)
	case !w.Written():
		// The client always gets a status line.
		logger.Warn("HTTP handler returned without writing a response [%s]", c.id)
	}
	if !w.Written() {
		if err := w.WriteEmpty(http1.StatusInternalServerError); err != nil {
			logger.Debug("Failed to write 500 [%s]: %v", c.id, err)
		}
	}

	if err := w.Flush(); err != nil {
		logger.Debug("Failed to send HTTP response to %s [%s]: %v", clientAddr, c.id, err)
		return
	}

	logger.Debug("HTTP %s from %s answered %d (%d bytes) in %v [%s]",
		method, clientAddr, w.Status(), w.BytesWritten(), time.Since(start), c.id)
}

// setDeadlines applies the configured read and write timeouts. A zero
// timeout leaves that direction unbounded.
func (c *HTTPConnection) setDeadlines() {
	cfg := &c.server.config
	now := time.Now()

	if cfg.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(now.Add(cfg.ReadTimeout)); err != nil {
			logger.Debug("Failed to set read deadline [%s]: %v", c.id, err)
		}
	}
	if cfg.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(now.Add(cfg.ReadTimeout + cfg.WriteTimeout)); err != nil {
			logger.Debug("Failed to set write deadline [%s]: %v", c.id, err)
		}
	}
}

// invoke runs the handler, turning a panic into an error.
func (c *HTTPConnection) invoke(ctx context.Context, h registry.Handler, req *http1.Request, w *http1.ResponseWriter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, req, w)
}

func (c *HTTPConnection) logParseFailure(clientAddr string, err error) {
	reason := "unknown"
	var perr *http1.ParseError
	if errors.As(err, &perr) {
		reason = perr.Reason
	}
	c.server.metrics.RecordParseFailure(reason)

	if perr != nil && perr.IsTransport() {
		logger.Warn("HTTP read from %s failed [%s]: %v", clientAddr, c.id, err)
		return
	}
	logger.Debug("Malformed HTTP request from %s [%s]: %v", clientAddr, c.id, err)
}
