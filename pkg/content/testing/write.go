package testing

import (
	"io"
	"sync"
	"testing"

	"github.com/marmos91/dittohttp/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWriteTests executes WritableContentStore tests. Read-only stores skip
// them.
func (suite *StoreTestSuite) RunWriteTests(t *testing.T) {
	t.Run("WriteContent_Basic", suite.testWriteContentBasic)
	t.Run("WriteContent_Overwrite", suite.testWriteContentOverwrite)
	t.Run("WriteContent_Empty", suite.testWriteContentEmpty)
	t.Run("WriteContent_Nested", suite.testWriteContentNested)
	t.Run("WriteContent_Large", suite.testWriteContentLarge)
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("Delete_Idempotent", suite.testDeleteIdempotent)
	t.Run("ConcurrentReads", suite.testConcurrentReads)
}

// ============================================================================
// WriteContent Tests
// ============================================================================

func (suite *StoreTestSuite) testWriteContentBasic(t *testing.T) {
	store := suite.newWritable(t)

	id := content.ContentID("index.html")
	data := []byte("<html><body>Hello</body></html>")

	mustWriteContent(t, store, id, data)

	assertContentExists(t, store, id, true)
	assertContentEquals(t, store, id, data)
	assertContentSize(t, store, id, uint64(len(data)))
}

func (suite *StoreTestSuite) testWriteContentOverwrite(t *testing.T) {
	store := suite.newWritable(t)

	id := content.ContentID("page.html")
	mustWriteContent(t, store, id, []byte("Old data that is long"))
	mustWriteContent(t, store, id, []byte("New"))

	assertContentEquals(t, store, id, []byte("New"))
	assertContentSize(t, store, id, 3)
}

func (suite *StoreTestSuite) testWriteContentEmpty(t *testing.T) {
	store := suite.newWritable(t)

	id := content.ContentID("empty.txt")
	mustWriteContent(t, store, id, nil)

	assertContentExists(t, store, id, true)
	assertContentSize(t, store, id, 0)
	assert.Empty(t, mustReadContent(t, store, id))
}

func (suite *StoreTestSuite) testWriteContentNested(t *testing.T) {
	store := suite.newWritable(t)

	id := content.ContentID("assets/css/site.css")
	mustWriteContent(t, store, id, []byte("body { margin: 0 }"))

	assertContentEquals(t, store, id, []byte("body { margin: 0 }"))
	assertContentExists(t, store, "assets/css", false)
}

func (suite *StoreTestSuite) testWriteContentLarge(t *testing.T) {
	store := suite.newWritable(t)

	id := content.ContentID("large.bin")
	data := generateTestData(1 << 20)
	mustWriteContent(t, store, id, data)

	assertContentSize(t, store, id, uint64(len(data)))
	assertContentEquals(t, store, id, data)
}

// ============================================================================
// Delete Tests
// ============================================================================

func (suite *StoreTestSuite) testDeleteSuccess(t *testing.T) {
	store := suite.newWritable(t)

	id := content.ContentID("gone.html")
	mustWriteContent(t, store, id, []byte("bye"))
	require.NoError(t, store.Delete(testContext(), id))

	assertContentExists(t, store, id, false)
	_, err := store.ReadContent(testContext(), id)
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *StoreTestSuite) testDeleteIdempotent(t *testing.T) {
	store := suite.newWritable(t)

	assert.NoError(t, store.Delete(testContext(), "never-existed.html"))
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func (suite *StoreTestSuite) testConcurrentReads(t *testing.T) {
	store := suite.newWritable(t)

	id := content.ContentID("shared.html")
	data := generateTestData(64 << 10)
	mustWriteContent(t, store, id, data)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reader, err := store.ReadContent(testContext(), id)
			if !assert.NoError(t, err) {
				return
			}
			defer reader.Close()
			got, err := io.ReadAll(reader)
			assert.NoError(t, err)
			assert.Equal(t, data, got)
		}()
	}
	wg.Wait()
}
