package http1

import (
	"errors"
	"net"
)

// ErrMalformedRequest is matched by every parse failure via errors.Is.
var ErrMalformedRequest = errors.New("malformed request")

// ParseError describes why a request could not be parsed.
//
// Reason is a short, stable description suitable for logs and metric labels.
// Err holds the underlying cause when the failure came from the byte source
// (timeout, reset, EOF) rather than from the request bytes themselves.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "malformed request: " + e.Reason + ": " + e.Err.Error()
	}
	return "malformed request: " + e.Reason
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedRequest, e.Err}
	}
	return []error{ErrMalformedRequest}
}

// IsTransport reports whether the failure was caused by the connection
// (I/O error or deadline) rather than by malformed request bytes.
func (e *ParseError) IsTransport() bool {
	if e.Err == nil {
		return false
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr)
}

func parseFailure(reason string) *ParseError {
	return &ParseError{Reason: reason}
}

func streamFailure(reason string, err error) *ParseError {
	return &ParseError{Reason: reason, Err: err}
}

// Parse failure reasons.
const (
	ReasonEmptyRequest      = "empty request"
	ReasonRequestLineTooBig = "request line exceeds look-ahead limit"
	ReasonHeadersTooBig     = "header block exceeds look-ahead limit"
	ReasonIncompleteHead    = "stream ended before end of headers"
	ReasonBadRequestLine    = "request line must have exactly 3 tokens"
	ReasonMethodNotAllowed  = "method not allowed"
	ReasonBadPath           = "path must start with '/'"
	ReasonBadQuery          = "malformed query string"
	ReasonBadHeader         = "malformed header line"
	ReasonBadContentLength  = "invalid Content-Length"
	ReasonBodyTooLarge      = "body exceeds maximum size"
	ReasonTruncatedBody     = "body shorter than Content-Length"
	ReasonReadFailed        = "read failed"
)
