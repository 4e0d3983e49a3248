package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/content"
)

// keyPrefix namespaces content keys so the database can hold other records
// later without collisions.
const keyPrefix = "content:"

// BadgerContentStore keeps content as values in an embedded BadgerDB.
//
// It suits sites that are seeded once at startup and then served from a
// single file-backed store. Each value is the whole document.
type BadgerContentStore struct {
	db *badger.DB
}

// BadgerContentStoreConfig configures the store.
type BadgerContentStoreConfig struct {
	// DBPath is the BadgerDB directory. Ignored when InMemory is true.
	DBPath string

	// InMemory runs BadgerDB without touching disk. Used by tests.
	InMemory bool

	// BadgerOptions overrides every other setting when non-nil.
	BadgerOptions *badger.Options
}

// NewBadgerContentStore opens (or creates) the database.
func NewBadgerContentStore(ctx context.Context, cfg BadgerContentStoreConfig) (*BadgerContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	switch {
	case cfg.BadgerOptions != nil:
		opts = *cfg.BadgerOptions
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	default:
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger content store: db path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	logger.Debug("Badger content store opened (path=%q in_memory=%v)", cfg.DBPath, cfg.InMemory)
	return &BadgerContentStore{db: db}, nil
}

func key(id content.ContentID) []byte {
	return []byte(keyPrefix + string(id))
}

// value copies the stored value for id out of a read transaction.
func (s *BadgerContentStore) value(ctx context.Context, id content.ContentID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		if errors.Is(err, badger.ErrDBClosed) {
			return nil, content.ErrStoreClosed
		}
		return nil, fmt.Errorf("failed to read content %s: %w", id, err)
	}
	return data, nil
}

// ReadContent returns a reader over the stored value.
func (s *BadgerContentStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	data, err := s.value(ctx, id)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// GetContentSize returns the value size without copying the value.
func (s *BadgerContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var size int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		size = item.ValueSize()
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to stat content %s: %w", id, err)
	}
	return uint64(size), nil
}

// ContentExists reports whether a value is stored for id.
func (s *BadgerContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	_, err := s.GetContentSize(ctx, id)
	if err != nil {
		if errors.Is(err, content.ErrContentNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WriteContent stores data under id.
func (s *BadgerContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(id), stored)
	})
	if err != nil {
		return fmt.Errorf("failed to write content %s: %w", id, err)
	}
	return nil
}

// Delete removes id. Missing keys are ignored by BadgerDB.
func (s *BadgerContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete content %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored documents.
func (s *BadgerContentStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close closes the database.
func (s *BadgerContentStore) Close() error {
	return s.db.Close()
}
