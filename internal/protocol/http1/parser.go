package http1

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

const (
	// DefaultLookaheadLimit bounds how many bytes are inspected while looking
	// for the end of the request head (request line + headers).
	DefaultLookaheadLimit = 4096

	// DefaultMaxBodySize bounds the Content-Length accepted for a body.
	DefaultMaxBodySize = 10 << 20
)

var (
	crlf     = []byte("\r\n")
	crlfcrlf = []byte("\r\n\r\n")
)

// ParserOptions tunes ParseRequest. Zero values select the defaults.
type ParserOptions struct {
	// LookaheadLimit is the maximum size of the request head. It is further
	// capped by the size of the bufio.Reader buffer.
	LookaheadLimit int

	// MaxBodySize is the largest Content-Length accepted.
	MaxBodySize int64
}

func (o ParserOptions) lookahead(r *bufio.Reader) int {
	limit := o.LookaheadLimit
	if limit <= 0 {
		limit = DefaultLookaheadLimit
	}
	return min(limit, r.Size())
}

func (o ParserOptions) maxBody() int64 {
	if o.MaxBodySize <= 0 {
		return DefaultMaxBodySize
	}
	return o.MaxBodySize
}

// NewReader wraps rd in a bufio.Reader large enough to hold a request head
// of up to limit bytes, which is what ParseRequest peeks into.
func NewReader(rd io.Reader, limit int) *bufio.Reader {
	if limit <= 0 {
		limit = DefaultLookaheadLimit
	}
	return bufio.NewReaderSize(rd, limit)
}

// requestLine holds the validated pieces of the first line.
type requestLine struct {
	method  string
	path    string
	version string
	query   map[string]string
}

// ParseRequest reads exactly one request from r.
//
// The request head is located by peeking into r's buffer, without consuming
// anything, until the blank line that ends the headers shows up or the
// look-ahead limit is reached. Only then are the head bytes consumed, from
// the true start of the stream. For non-GET methods a body of exactly
// Content-Length bytes is read afterwards.
//
// On failure the returned error is a *ParseError and no Request is returned.
func ParseRequest(r *bufio.Reader, opts ParserOptions) (*Request, error) {
	limit := opts.lookahead(r)

	head, line, perr := peekHead(r, limit)
	if perr != nil {
		return nil, perr
	}

	lineEnd := bytes.Index(head, crlf)
	headEnd := bytes.Index(head, crlfcrlf) + len(crlfcrlf)

	// The head has only been peeked so far. Skip the request line, then read
	// the header block from its exact offset.
	headersStart := lineEnd + len(crlf)
	blockLen := max(headEnd-len(crlfcrlf)-headersStart, 0)

	if _, err := r.Discard(headersStart); err != nil {
		return nil, streamFailure(ReasonReadFailed, err)
	}
	block := make([]byte, blockLen)
	if _, err := io.ReadFull(r, block); err != nil {
		return nil, streamFailure(ReasonReadFailed, err)
	}
	if _, err := r.Discard(headEnd - headersStart - blockLen); err != nil {
		return nil, streamFailure(ReasonReadFailed, err)
	}

	headers, rawLength, hasLength, perr := parseHeaders(block)
	if perr != nil {
		return nil, perr
	}

	req := &Request{
		method:  line.method,
		path:    line.path,
		version: line.version,
		query:   line.query,
		headers: headers,
	}

	// Body-less methods never read a body, whatever Content-Length says.
	if isBodyless(req.method) || !hasLength {
		return req, nil
	}

	contentLength, ok := parseContentLength(rawLength)
	if !ok {
		return nil, parseFailure(ReasonBadContentLength)
	}

	body, perr := readBody(r, contentLength, opts.maxBody())
	if perr != nil {
		return nil, perr
	}
	req.body = body
	req.hasBody = true

	return req, nil
}

// peekHead grows the peeked window until it contains the header terminator.
// The request line is validated as soon as its CRLF is visible so a bad line
// is rejected without waiting for the rest of the head.
func peekHead(r *bufio.Reader, limit int) ([]byte, *requestLine, *ParseError) {
	var line *requestLine

	want := 1
	for {
		buf, err := r.Peek(want)
		if n := r.Buffered(); n > len(buf) {
			buf, _ = r.Peek(n)
		}
		if len(buf) > limit {
			buf = buf[:limit]
		}

		if line == nil {
			if idx := bytes.Index(buf, crlf); idx >= 0 {
				parsed, perr := parseRequestLine(string(buf[:idx]))
				if perr != nil {
					return nil, nil, perr
				}
				line = parsed
			}
		}

		if line != nil && bytes.Contains(buf, crlfcrlf) {
			return buf, line, nil
		}

		if len(buf) >= limit {
			if line == nil {
				return nil, nil, parseFailure(ReasonRequestLineTooBig)
			}
			return nil, nil, parseFailure(ReasonHeadersTooBig)
		}

		if err != nil {
			if len(buf) == 0 && errors.Is(err, io.EOF) {
				return nil, nil, parseFailure(ReasonEmptyRequest)
			}
			if errors.Is(err, io.EOF) {
				return nil, nil, parseFailure(ReasonIncompleteHead)
			}
			return nil, nil, streamFailure(ReasonReadFailed, err)
		}

		want = len(buf) + 1
	}
}

func parseRequestLine(line string) (*requestLine, *ParseError) {
	tokens := strings.Fields(line)
	if len(tokens) != 3 {
		return nil, parseFailure(ReasonBadRequestLine)
	}

	method, target, version := tokens[0], tokens[1], tokens[2]
	if !IsAllowedMethod(method) {
		return nil, parseFailure(ReasonMethodNotAllowed)
	}

	path, rawQuery, hasQuery := strings.Cut(target, "?")
	if !strings.HasPrefix(path, "/") {
		return nil, parseFailure(ReasonBadPath)
	}

	query := make(map[string]string)
	if hasQuery {
		if !parseQuery(rawQuery, query) {
			return nil, parseFailure(ReasonBadQuery)
		}
	}

	return &requestLine{
		method:  method,
		path:    path,
		version: version,
		query:   query,
	}, nil
}

// parseQuery accepts key=value(&key=value)* where neither side is empty nor
// contains '&', '?' or '='. Later duplicates overwrite earlier ones.
func parseQuery(raw string, into map[string]string) bool {
	for _, pair := range strings.Split(raw, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" || value == "" {
			return false
		}
		if strings.ContainsAny(key, "?=") || strings.ContainsAny(value, "?=") {
			return false
		}
		into[key] = value
	}
	return true
}

// parseHeaders splits the header block into name/value pairs and returns
// the raw Content-Length value, whose name is matched case-insensitively.
func parseHeaders(block []byte) (map[string]string, string, bool, *ParseError) {
	headers := make(map[string]string)
	if len(block) == 0 {
		return headers, "", false, nil
	}

	var (
		rawLength string
		hasLength bool
	)

	for _, line := range strings.Split(string(block), "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, "", false, parseFailure(ReasonBadHeader)
		}
		value = strings.Trim(value, " \t")
		headers[name] = value

		if strings.EqualFold(name, "Content-Length") {
			rawLength = value
			hasLength = true
		}
	}

	return headers, rawLength, hasLength, nil
}

func parseContentLength(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func readBody(r *bufio.Reader, length, maxSize int64) ([]byte, *ParseError) {
	if length > maxSize {
		return nil, parseFailure(ReasonBodyTooLarge)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, streamFailure(ReasonTruncatedBody, err)
	}
	return body, nil
}
