package testutil

import (
	"testing"

	"evd-go/internal/evd"
	"evd-go/internal/index"
)

// NewTestIndex creates an in-memory SQLite index with migrations applied.
// The index is automatically closed when the test completes.
func NewTestIndex(t *testing.T) evd.Index {
	t.Helper()

	idx, err := index.NewSQLiteIndex(":memory:")
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}

	t.Cleanup(func() {
		idx.Close()
	})

	return idx
}
