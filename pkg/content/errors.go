package content

import "errors"

// ============================================================================
// Standard Content Store Errors
// ============================================================================

// Implementations wrap these with the content ID so callers can match them
// with errors.Is:
//
//	if !exists {
//	    return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
//	}

var (
	// ErrContentNotFound indicates the requested content does not exist.
	// The static handler maps it to 404 Not Found.
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidContentID indicates an ID that is empty, absolute, or escapes
	// the store root via "..".
	ErrInvalidContentID = errors.New("invalid content ID")

	// ErrStoreClosed is returned by operations on a store after Close.
	ErrStoreClosed = errors.New("content store closed")
)
