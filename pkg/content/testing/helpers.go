package testing

import (
	"io"
	"testing"

	"github.com/marmos91/dittohttp/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustWriteContent writes content and fails the test if it errors.
func mustWriteContent(t *testing.T, store content.WritableContentStore, id content.ContentID, data []byte) {
	t.Helper()
	err := store.WriteContent(testContext(), id, data)
	require.NoError(t, err, "WriteContent should succeed")
}

// mustReadContent reads content and fails the test if it errors.
func mustReadContent(t *testing.T, store content.ContentStore, id content.ContentID) []byte {
	t.Helper()
	reader, err := store.ReadContent(testContext(), id)
	require.NoError(t, err, "ReadContent should succeed")
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err, "Reading content should succeed")
	return data
}

// assertContentExists checks if content exists.
func assertContentExists(t *testing.T, store content.ContentStore, id content.ContentID, expected bool) {
	t.Helper()
	exists, err := store.ContentExists(testContext(), id)
	require.NoError(t, err, "ContentExists should not error")
	assert.Equal(t, expected, exists, "Content existence mismatch")
}

// assertContentEquals checks if content matches expected data.
func assertContentEquals(t *testing.T, store content.ContentStore, id content.ContentID, expected []byte) {
	t.Helper()
	actual := mustReadContent(t, store, id)
	assert.Equal(t, expected, actual, "Content data mismatch")
}

// assertContentSize checks if content size matches expected.
func assertContentSize(t *testing.T, store content.ContentStore, id content.ContentID, expected uint64) {
	t.Helper()
	actual, err := store.GetContentSize(testContext(), id)
	require.NoError(t, err, "GetContentSize should succeed")
	assert.Equal(t, expected, actual, "Content size mismatch")
}

// generateTestData creates test data of specified size.
func generateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}
