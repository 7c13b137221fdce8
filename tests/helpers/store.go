package helpers

import (
	"testing"

	"github.com/Aswinikumar555/ai-customer-support/internal/repository"
)

// NewTestSQLiteStore returns a migrated in-memory store closed on test cleanup.
func NewTestSQLiteStore(t *testing.T) *repository.SQLStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
