package http1

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Status codes produced by the server.
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusInternalServerError = 500
	StatusServiceUnavailable  = 503
)

var statusText = map[int]string{
	StatusOK:                  "OK",
	StatusBadRequest:          "Bad Request",
	StatusNotFound:            "Not Found",
	StatusInternalServerError: "Internal Server Error",
	StatusServiceUnavailable:  "Service Unavailable",
}

// StatusText returns the reason phrase for code, or "Unknown" if the server
// never emits it.
func StatusText(code int) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return "Unknown"
}

// ErrHeadWritten is returned when a handler writes the status line twice.
var ErrHeadWritten = errors.New("response head already written")

// ResponseWriter buffers an HTTP/1.1 response for a single connection.
//
// Every head written through WriteHead carries Content-Length and
// "Connection: close", since each connection serves exactly one request.
// Handlers may also write a complete raw response through Write.
type ResponseWriter struct {
	bw        *bufio.Writer
	status    int
	wroteHead bool
	written   int64
}

// NewResponseWriter returns a ResponseWriter that buffers writes to w.
func NewResponseWriter(w io.Writer) *ResponseWriter {
	return &ResponseWriter{bw: bufio.NewWriter(w)}
}

// WriteHead writes the status line and the fixed header set. An empty
// contentType omits the Content-Type header.
func (w *ResponseWriter) WriteHead(status int, contentType string, contentLength int64) error {
	if w.wroteHead {
		return ErrHeadWritten
	}
	w.wroteHead = true
	w.status = status

	head := make([]byte, 0, 128)
	head = fmt.Appendf(head, "HTTP/1.1 %d %s\r\n", status, StatusText(status))
	if contentType != "" {
		head = append(head, "Content-Type: "...)
		head = append(head, contentType...)
		head = append(head, "\r\n"...)
	}
	head = append(head, "Content-Length: "...)
	head = strconv.AppendInt(head, contentLength, 10)
	head = append(head, "\r\nConnection: close\r\n\r\n"...)

	_, err := w.write(head)
	return err
}

// WriteEmpty writes a complete body-less response with Content-Length: 0.
func (w *ResponseWriter) WriteEmpty(status int) error {
	return w.WriteHead(status, "", 0)
}

// WriteResponse writes a complete response with body.
func (w *ResponseWriter) WriteResponse(status int, contentType string, body []byte) error {
	if err := w.WriteHead(status, contentType, int64(len(body))); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// Write writes body bytes, or raw response bytes if WriteHead was not used.
func (w *ResponseWriter) Write(p []byte) (int, error) {
	return w.write(p)
}

func (w *ResponseWriter) write(p []byte) (int, error) {
	n, err := w.bw.Write(p)
	w.written += int64(n)
	return n, err
}

// Flush sends any buffered bytes to the underlying writer.
func (w *ResponseWriter) Flush() error {
	return w.bw.Flush()
}

// Written reports whether any byte of the response has been produced.
func (w *ResponseWriter) Written() bool {
	return w.written > 0
}

// Status returns the status passed to WriteHead, or 0 for raw responses.
func (w *ResponseWriter) Status() int {
	return w.status
}

// BytesWritten returns the number of response bytes produced so far.
func (w *ResponseWriter) BytesWritten() int64 {
	return w.written
}
