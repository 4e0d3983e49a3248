package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/content"
)

// FSContentStore serves content from a directory tree on local disk.
//
// Content IDs map one-to-one to relative file paths under the root, so a
// document root like ./public can be served as is. IDs are validated on
// every call; nothing outside the root is ever opened.
type FSContentStore struct {
	root string
}

// NewFSContentStore creates a store rooted at root, creating the directory
// if it does not exist.
func NewFSContentStore(ctx context.Context, root string) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve content root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content root: %w", err)
	}

	logger.Debug("Filesystem content store rooted at %s", abs)
	return &FSContentStore{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *FSContentStore) Root() string {
	return s.root
}

func (s *FSContentStore) filePath(id content.ContentID) (string, error) {
	if _, err := content.ParseID(string(id)); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(string(id))), nil
}

// stat returns the file info for id, treating directories as missing.
func (s *FSContentStore) stat(ctx context.Context, id content.ContentID) (string, fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	p, err := s.filePath(id)
	if err != nil {
		return "", nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return "", nil, fmt.Errorf("failed to stat content: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	return p, info, nil
}

// ReadContent opens the file for id.
func (s *FSContentStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	p, _, err := s.stat(ctx, id)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to open content: %w", err)
	}
	return file, nil
}

// GetContentSize returns the file size.
func (s *FSContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	_, info, err := s.stat(ctx, id)
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}

// ContentExists reports whether a regular file exists for id.
func (s *FSContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	_, _, err := s.stat(ctx, id)
	if err != nil {
		if errors.Is(err, content.ErrContentNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WriteContent writes data to a temporary file and renames it into place,
// so concurrent readers see either the old or the new content.
func (s *FSContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := s.filePath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create content directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close content: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set content mode: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move content into place: %w", err)
	}
	return nil
}

// Delete removes the file for id. Missing files are ignored.
func (s *FSContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := s.filePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

// Close is a no-op; the store holds no open files.
func (s *FSContentStore) Close() error {
	return nil
}
