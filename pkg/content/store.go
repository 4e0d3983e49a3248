package content

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// ContentID names a piece of content inside a store.
//
// IDs are slash-separated relative paths such as "index.html" or
// "assets/app.css". A request path maps to an ID by dropping the leading
// slash; see IDFromPath.
type ContentID string

// IDFromPath converts a request path into a ContentID.
//
// The path must start with '/' and must not contain "." or ".." segments.
// Returns ErrInvalidContentID otherwise.
func IDFromPath(p string) (ContentID, error) {
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("path %q: %w", p, ErrInvalidContentID)
	}
	return ParseID(strings.TrimPrefix(p, "/"))
}

// ParseID validates a relative, slash-separated ID.
func ParseID(raw string) (ContentID, error) {
	if raw == "" || strings.HasPrefix(raw, "/") || strings.Contains(raw, "\\") {
		return "", fmt.Errorf("id %q: %w", raw, ErrInvalidContentID)
	}
	for _, segment := range strings.Split(raw, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("id %q: %w", raw, ErrInvalidContentID)
		}
	}
	if path.Clean(raw) != raw {
		return "", fmt.Errorf("id %q: %w", raw, ErrInvalidContentID)
	}
	return ContentID(raw), nil
}

// ============================================================================
// ContentStore Interface
// ============================================================================

// ContentStore is read access to the bytes served by the static handler.
//
// Backends (local directory, memory, BadgerDB, S3) only store bytes. Which
// IDs are reachable over HTTP is decided by the handler's allow-list, not by
// the store.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type ContentStore interface {
	// ReadContent returns a reader for the content. The caller must close it.
	//
	// Returns ErrContentNotFound (wrapped) if the content doesn't exist.
	ReadContent(ctx context.Context, id ContentID) (io.ReadCloser, error)

	// GetContentSize returns the size of the content in bytes without
	// reading it. Used for the Content-Length header.
	GetContentSize(ctx context.Context, id ContentID) (uint64, error)

	// ContentExists reports whether the content exists. A missing ID is
	// (false, nil), not an error.
	ContentExists(ctx context.Context, id ContentID) (bool, error)

	// Close releases resources held by the store.
	Close() error
}

// WritableContentStore adds full-object writes and deletes. It is used to
// seed stores at startup and by tests.
type WritableContentStore interface {
	ContentStore

	// WriteContent stores data under id, replacing any previous content.
	WriteContent(ctx context.Context, id ContentID, data []byte) error

	// Delete removes content. Deleting a missing ID succeeds.
	Delete(ctx context.Context, id ContentID) error
}
