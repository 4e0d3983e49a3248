package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittohttp/pkg/content"
	contenttesting "github.com/marmos91/dittohttp/pkg/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FSContentStore {
	t.Helper()
	store, err := NewFSContentStore(context.Background(), filepath.Join(t.TempDir(), "public"))
	require.NoError(t, err)
	return store
}

func TestFSContentStore(t *testing.T) {
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.ContentStore {
			return newTestStore(t)
		},
	}
	suite.Run(t)
}

func TestFSContentStore_ServesExistingTree(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "index.html"), []byte("<p>x</p>"), 0o644))

	size, err := store.GetContentSize(context.Background(), "index.html")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), size)
}

func TestFSContentStore_DirectoryIsNotContent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(store.Root(), "dir"), 0o755))

	_, err := store.ReadContent(context.Background(), "dir")
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func TestFSContentStore_RejectsTraversal(t *testing.T) {
	parent := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret"), []byte("s"), 0o600))

	store, err := NewFSContentStore(context.Background(), filepath.Join(parent, "public"))
	require.NoError(t, err)

	for _, id := range []content.ContentID{"../secret", "a/../../secret", "/secret"} {
		_, err := store.ReadContent(context.Background(), id)
		assert.ErrorIs(t, err, content.ErrInvalidContentID, string(id))

		assert.ErrorIs(t, store.WriteContent(context.Background(), id, []byte("x")), content.ErrInvalidContentID)
	}
}
