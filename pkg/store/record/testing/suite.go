package testing

import (
	"testing"

	"github.com/marmos91/dittodir/pkg/store/record"
)

// StoreTestSuite is a conformance suite for RecordStore implementations.
// It tests the interface contract, not implementation details, so every
// backend (memory, badger, s3, sql) runs the same checks.
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func() record.RecordStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Find", suite.RunFindTests)
	t.Run("Save", suite.RunSaveTests)
	t.Run("Delete", suite.RunDeleteTests)
	t.Run("Directory", suite.RunDirectoryTests)
	t.Run("Healthcheck", suite.RunHealthcheckTests)
}
