package memory

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

func TestMemoryContentStore(t *testing.T) {
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.ContentStore {
			return NewMemoryContentStore()
		},
	}
	suite.Run(t)
}

func TestMemoryContentStore_CopiesInput(t *testing.T) {
	store := NewMemoryContentStore()
	ctx := context.Background()

	data := []byte("original")
	require.NoError(t, store.WriteContent(ctx, "a.txt", data))
	data[0] = 'X'

	size, err := store.GetContentSize(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), size)
	assert.Equal(t, 1, store.Len())
}

func TestSeed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "site.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))

	store := NewMemoryContentStore()
	n, err := content.Seed(context.Background(), store, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	exists, err := store.ContentExists(context.Background(), "css/site.css")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ContentExists(context.Background(), ".git/HEAD")
	require.NoError(t, err)
	assert.False(t, exists)

	t.Run("MissingDirectory", func(t *testing.T) {
		_, err := content.Seed(context.Background(), store, filepath.Join(dir, "missing"))
		assert.Error(t, err)
	})

	t.Run("NotADirectory", func(t *testing.T) {
		_, err := content.Seed(context.Background(), store, filepath.Join(dir, "index.html"))
		assert.Error(t, err)
	})
}
