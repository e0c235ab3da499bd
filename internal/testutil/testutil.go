// Package testutil provides shared test helpers.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vilela/ideaflash/internal/db"
)

// NewTestDB opens an in-memory SQLite database with all migrations applied.
// The single-connection pool keeps the in-memory database alive for the
// duration of the test.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	t.Helper()
	require.NoError(t, closer.Close())
}
