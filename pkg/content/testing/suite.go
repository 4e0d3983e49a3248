// Package testing provides a conformance suite shared by every ContentStore
// implementation.
package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittohttp/pkg/content"
)

// StoreTestSuite tests the ContentStore contract, not implementation details,
// so one suite covers the filesystem, memory, BadgerDB and S3 backends.
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &contenttesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.ContentStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test. Stores that need
	// on-disk state should use t.TempDir().
	NewStore func(t *testing.T) content.ContentStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("WriteOperations", suite.RunWriteTests)
}

// newStore creates a store and closes it when the test ends.
func (suite *StoreTestSuite) newStore(t *testing.T) content.ContentStore {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newWritable creates a store, skipping the test if it is read-only.
func (suite *StoreTestSuite) newWritable(t *testing.T) content.WritableContentStore {
	t.Helper()
	writable, ok := suite.newStore(t).(content.WritableContentStore)
	if !ok {
		t.Skip("Store does not implement WritableContentStore")
	}
	return writable
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
