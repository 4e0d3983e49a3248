package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittohttp/pkg/content"
	"github.com/stretchr/testify/assert"
)

// RunBasicTests executes read-path tests that work on any store.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("ReadContent_NotFound", suite.testReadContentNotFound)
	t.Run("GetContentSize_NotFound", suite.testGetContentSizeNotFound)
	t.Run("ContentExists_NotFound", suite.testContentExistsNotFound)
	t.Run("CancelledContext", suite.testCancelledContext)
}

func (suite *StoreTestSuite) testReadContentNotFound(t *testing.T) {
	store := suite.newStore(t)

	reader, err := store.ReadContent(testContext(), "missing.html")
	assert.Nil(t, reader)
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *StoreTestSuite) testGetContentSizeNotFound(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.GetContentSize(testContext(), "missing.html")
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *StoreTestSuite) testContentExistsNotFound(t *testing.T) {
	store := suite.newStore(t)
	assertContentExists(t, store, "missing.html", false)
}

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	store := suite.newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ReadContent(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.ContentExists(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}
