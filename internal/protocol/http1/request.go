package http1

import "maps"

// HTTP methods accepted by the parser.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// allowedMethods is the closed set of methods the server understands.
// Anything else fails parsing and is answered with 400.
var allowedMethods = map[string]struct{}{
	MethodGet:  {},
	MethodPost: {},
}

// IsAllowedMethod reports whether method is one the parser accepts.
func IsAllowedMethod(method string) bool {
	_, ok := allowedMethods[method]
	return ok
}

// isBodyless reports whether a request body is never read for method,
// regardless of the headers that came with it.
func isBodyless(method string) bool {
	return method == MethodGet
}

// Request is a fully parsed HTTP/1.x request.
//
// A Request is immutable once returned by ParseRequest. Accessors that expose
// maps return copies.
//
// Duplicate query keys and duplicate header names are resolved by keeping the
// last occurrence. Header names are stored exactly as received.
type Request struct {
	method  string
	path    string
	version string
	query   map[string]string
	headers map[string]string
	body    []byte
	hasBody bool
}

// Method returns the request method (GET or POST).
func (r *Request) Method() string { return r.method }

// Path returns the request-target up to the first '?'. It always begins
// with '/' and is not percent-decoded.
func (r *Request) Path() string { return r.path }

// Version returns the HTTP-version token as sent by the client.
func (r *Request) Version() string { return r.version }

// Query returns the value of a query parameter.
func (r *Request) Query(name string) (string, bool) {
	v, ok := r.query[name]
	return v, ok
}

// QueryParams returns a copy of all query parameters.
func (r *Request) QueryParams() map[string]string {
	return maps.Clone(r.query)
}

// Header returns the value of a header. The lookup is case-sensitive.
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.headers[name]
	return v, ok
}

// Headers returns a copy of all headers.
func (r *Request) Headers() map[string]string {
	return maps.Clone(r.headers)
}

// Body returns the request body. It is nil when HasBody is false.
func (r *Request) Body() []byte { return r.body }

// HasBody reports whether a body was framed by Content-Length.
// A Content-Length of zero yields HasBody() == true and an empty Body.
func (r *Request) HasBody() bool { return r.hasBody }

// NewRequest builds a Request outside the parser, mainly for handler tests.
// The maps are copied.
func NewRequest(method, path string, query, headers map[string]string, body []byte) *Request {
	req := &Request{
		method:  method,
		path:    path,
		version: "HTTP/1.1",
		query:   make(map[string]string, len(query)),
		headers: make(map[string]string, len(headers)),
	}
	maps.Copy(req.query, query)
	maps.Copy(req.headers, headers)
	if body != nil {
		req.body = body
		req.hasBody = true
	}
	return req
}
