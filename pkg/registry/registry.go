package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/marmos91/dittohttp/internal/protocol/http1"
)

// Handler produces the response for one request.
//
// req is nil when the request could not be parsed; only the default handler
// ever sees a nil request. A handler must write a complete response to w
// (WriteHead plus body, or raw bytes). Returning an error before anything
// was written lets the connection answer with 500 instead.
type Handler interface {
	Handle(ctx context.Context, req *http1.Request, w *http1.ResponseWriter) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *http1.Request, w *http1.ResponseWriter) error

// Handle calls f(ctx, req, w).
func (f HandlerFunc) Handle(ctx context.Context, req *http1.Request, w *http1.ResponseWriter) error {
	return f(ctx, req, w)
}

// Route identifies a registered handler.
type Route struct {
	Method string
	Path   string
}

func (r Route) String() string {
	return r.Method + " " + r.Path
}

// Registry maps exact (method, path) pairs to handlers and falls back to a
// default handler for everything else.
//
// Example usage:
//
//	reg := registry.New(static.NewHandler(store, allowed))
//	reg.Register(http1.MethodGet, "/health", healthHandler)
//
//	h := reg.Resolve(req) // healthHandler for GET /health, fallback otherwise
//
// Registration takes the write lock; Resolve only takes the read lock and is
// safe to call from every connection at once.
type Registry struct {
	mu       sync.RWMutex
	routes   map[Route]Handler
	fallback Handler
}

// New creates a registry with the given default handler. It panics if
// fallback is nil, since Resolve must always return something callable.
func New(fallback Handler) *Registry {
	if fallback == nil {
		panic("registry: fallback handler must not be nil")
	}
	return &Registry{
		routes:   make(map[Route]Handler),
		fallback: fallback,
	}
}

// Register binds handler to (method, path), replacing any previous binding.
//
// Returns an error if the handler is nil, the method is one the parser never
// accepts, or the path does not start with '/'. Such a route could never
// match a parsed request.
func (r *Registry) Register(method, path string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("cannot register nil handler for %s %s", method, path)
	}
	if !http1.IsAllowedMethod(method) {
		return fmt.Errorf("cannot register handler for unsupported method %q", method)
	}
	if !strings.HasPrefix(path, "/") || strings.Contains(path, "?") {
		return fmt.Errorf("cannot register handler for invalid path %q", path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[Route{Method: method, Path: path}] = handler
	return nil
}

// Unregister removes the binding for (method, path). It reports whether a
// binding existed.
func (r *Registry) Unregister(method, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Route{Method: method, Path: path}
	if _, ok := r.routes[key]; !ok {
		return false
	}
	delete(r.routes, key)
	return true
}

// Resolve returns the handler bound to the request's method and path, or the
// default handler if there is none or req is nil.
func (r *Registry) Resolve(req *http1.Request) Handler {
	if req == nil {
		return r.fallback
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.routes[Route{Method: req.Method(), Path: req.Path()}]; ok {
		return h
	}
	return r.fallback
}

// Fallback returns the default handler.
func (r *Registry) Fallback() Handler {
	return r.fallback
}

// Routes returns the registered routes sorted by path, then method.
func (r *Registry) Routes() []Route {
	r.mu.RLock()
	routes := make([]Route, 0, len(r.routes))
	for route := range r.routes {
		routes = append(routes, route)
	}
	r.mu.RUnlock()

	slices.SortFunc(routes, func(a, b Route) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return routes
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}
