// Package static serves allow-listed files from a content store. Its Handler
// is the server's fallback for requests no registered handler matches.
package static

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"slices"

	"github.com/gabriel-vasile/mimetype"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/protocol/http1"
	"github.com/marmos91/dittohttp/pkg/content"
)

// DefaultAllowedPaths is the set of paths served when no allow-list is
// configured.
var DefaultAllowedPaths = []string{
	"/index.html",
	"/spring.svg",
	"/spring.png",
	"/resources.html",
	"/styles.css",
	"/app.js",
	"/links.html",
	"/forms.html",
	"/classic.html",
	"/events.html",
	"/events.js",
}

// DefaultContentType is used when neither the extension nor the content
// identifies the type.
const DefaultContentType = "application/octet-stream"

// sniffLen is how many leading bytes are inspected for content sniffing.
const sniffLen = 3072

// Handler answers GET requests for allow-listed paths with the matching
// content, 404 for anything else and 400 for requests that failed to parse.
type Handler struct {
	store   content.ContentStore
	allowed map[string]struct{}
}

// NewHandler creates a handler serving the given paths from store. A nil or
// empty allowed slice selects DefaultAllowedPaths.
//
// Panics if store is nil.
func NewHandler(store content.ContentStore, allowed []string) *Handler {
	if store == nil {
		panic("content store cannot be nil")
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedPaths
	}

	set := make(map[string]struct{}, len(allowed))
	for _, p := range allowed {
		set[p] = struct{}{}
	}
	return &Handler{store: store, allowed: set}
}

// Allowed reports whether p is in the allow-list.
func (h *Handler) Allowed(p string) bool {
	_, ok := h.allowed[p]
	return ok
}

// AllowedPaths returns the allow-list, sorted.
func (h *Handler) AllowedPaths() []string {
	paths := make([]string, 0, len(h.allowed))
	for p := range h.allowed {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Handle implements registry.Handler.
func (h *Handler) Handle(ctx context.Context, req *http1.Request, w *http1.ResponseWriter) error {
	if req == nil {
		return w.WriteEmpty(http1.StatusBadRequest)
	}
	if req.Method() != http1.MethodGet || !h.Allowed(req.Path()) {
		return w.WriteEmpty(http1.StatusNotFound)
	}

	id, err := content.IDFromPath(req.Path())
	if err != nil {
		return w.WriteEmpty(http1.StatusNotFound)
	}

	rc, size, err := open(ctx, h.store, id)
	if errors.Is(err, content.ErrContentNotFound) {
		logger.Debug("Static content %s not in store", id)
		return w.WriteEmpty(http1.StatusNotFound)
	}
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	br := bufio.NewReaderSize(rc, sniffLen)
	head, _ := br.Peek(sniffLen)

	if err := w.WriteHead(http1.StatusOK, ContentType(req.Path(), head), int64(size)); err != nil {
		return err
	}
	if _, err := io.CopyN(w, br, int64(size)); err != nil {
		return fmt.Errorf("send %s: %w", id, err)
	}
	return nil
}

// open looks up the size of id and opens it for reading.
func open(ctx context.Context, store content.ContentStore, id content.ContentID) (io.ReadCloser, uint64, error) {
	size, err := store.GetContentSize(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("stat %s: %w", id, err)
	}
	rc, err := store.ReadContent(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", id, err)
	}
	return rc, size, nil
}

// ContentType picks the Content-Type for p. The extension wins; otherwise
// head (the first bytes of the content) is sniffed.
func ContentType(p string, head []byte) string {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	if len(head) > 0 {
		return mimetype.Detect(head).String()
	}
	return DefaultContentType
}
